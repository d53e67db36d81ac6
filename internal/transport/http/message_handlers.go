package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ovasiliev/converse-server/internal/store"
)

// MessageHandlers provides HTTP handlers for message persistence. The socket
// relay never writes messages; clients persist here first, then emit the
// relay event.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// SendMessageRequest represents the message creation request body.
type SendMessageRequest struct {
	ChatID      int64        `json:"chat_id" binding:"required"`
	Content     string       `json:"content"`
	MessageType string       `json:"message_type"`
	File        *FilePayload `json:"file,omitempty"`
}

// FilePayload describes an externally stored file attachment.
type FilePayload struct {
	Name        string `json:"name" binding:"required"`
	MimeType    string `json:"mimeType"`
	ViewURL     string `json:"viewUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID          int64        `json:"id"`
	ChatID      int64        `json:"chat_id"`
	SenderID    int64        `json:"sender_id"`
	Content     string       `json:"content"`
	MessageType string       `json:"message_type"`
	File        *FilePayload `json:"file,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func messageResponse(msg *store.Message) MessageResponse {
	resp := MessageResponse{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		MessageType: string(msg.Kind),
		CreatedAt:   msg.CreatedAt,
	}
	if msg.File != nil {
		resp.File = &FilePayload{
			Name:        msg.File.Name,
			MimeType:    msg.File.MimeType,
			ViewURL:     msg.File.ViewURL,
			DownloadURL: msg.File.DownloadURL,
		}
	}
	return resp
}

// SendMessage persists a chat message.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	member, err := h.store.IsMember(c.Request.Context(), uid, req.ChatID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this chat"})
		return
	}

	kind := store.MessageKindText
	var file *store.FileDescriptor
	if req.File != nil {
		kind = store.MessageKindFile
		file = &store.FileDescriptor{
			Name:        req.File.Name,
			MimeType:    req.File.MimeType,
			ViewURL:     req.File.ViewURL,
			DownloadURL: req.File.DownloadURL,
		}
	} else if req.Content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content or file is required"})
		return
	}

	msg := &store.Message{
		ChatID:   req.ChatID,
		SenderID: uid,
		Kind:     kind,
		Content:  req.Content,
		File:     file,
	}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("chat_id", req.ChatID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, messageResponse(msg))
}

// ListMessages returns a chat's message history, oldest first.
// GET /api/messages/:chatID?limit=50&before=<id>
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chatID, err := strconv.ParseInt(c.Param("chatID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	member, err := h.store.IsMember(c.Request.Context(), uid, chatID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this chat"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			beforeID = &parsed
		}
	}

	messages, err := h.store.ListMessages(c.Request.Context(), chatID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, messageResponse(msg))
	}

	c.JSON(http.StatusOK, response)
}
