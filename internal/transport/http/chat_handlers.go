package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ovasiliev/converse-server/internal/store"
)

// ChatHandlers provides HTTP handlers for chat operations.
type ChatHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store: st,
		log:   logger,
	}
}

// ChatResponse represents a chat in API responses.
type ChatResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	AdminID *int64  `json:"admin_id,omitempty"`
	Members []int64 `json:"members,omitempty"`
}

// CreateDirectChatRequest opens (or returns) a direct chat with another user.
type CreateDirectChatRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// CreateGroupChatRequest creates a named group chat.
type CreateGroupChatRequest struct {
	Name    string  `json:"name" binding:"required,min=1,max=64"`
	Members []int64 `json:"members" binding:"required,min=1"`
}

// RenameChatRequest renames a group chat.
type RenameChatRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// AddMemberRequest adds a user to a group chat.
type AddMemberRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// directKey builds the deduplication key for a direct chat pair.
func directKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

func (h *ChatHandlers) chatResponse(c *gin.Context, chat *store.Chat) ChatResponse {
	resp := ChatResponse{
		ID:      chat.ID,
		Name:    chat.Name,
		Type:    string(chat.Type),
		AdminID: chat.AdminID,
	}
	if members, err := h.store.ListMembers(c.Request.Context(), chat.ID); err == nil {
		resp.Members = members
	}
	return resp
}

// CreateDirectChat handles opening a direct chat.
// POST /api/chats
func (h *ChatHandlers) CreateDirectChat(c *gin.Context) {
	var req CreateDirectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if req.UserID == uid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot open a chat with yourself"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	chat, err := h.store.CreateDirectChat(c.Request.Context(), directKey(uid, req.UserID), uid, req.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to create direct chat")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, h.chatResponse(c, chat))
}

// CreateGroupChat handles creating a group chat.
// POST /api/chats/group
func (h *ChatHandlers) CreateGroupChat(c *gin.Context) {
	var req CreateGroupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chat, err := h.store.CreateGroupChat(c.Request.Context(), req.Name, uid, req.Members)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to create group chat")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, h.chatResponse(c, chat))
}

// ListChats lists the authenticated user's chats.
// GET /api/chats
func (h *ChatHandlers) ListChats(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chats, err := h.store.ListChats(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list chats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChatResponse, 0, len(chats))
	for _, chat := range chats {
		response = append(response, h.chatResponse(c, chat))
	}

	c.JSON(http.StatusOK, response)
}

// chatFromPath resolves the :id path parameter and checks the requester is a
// member; group-admin-only operations additionally check adminOnly.
func (h *ChatHandlers) chatFromPath(c *gin.Context, adminOnly bool) (*store.Chat, int64, bool) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil, 0, false
	}

	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return nil, 0, false
	}

	chat, err := h.store.GetChatByID(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "chat not found"})
		return nil, 0, false
	}

	member, err := h.store.IsMember(c.Request.Context(), uid, chatID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this chat"})
		return nil, 0, false
	}

	if adminOnly && (chat.AdminID == nil || *chat.AdminID != uid) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "admin access required"})
		return nil, 0, false
	}

	return chat, uid, true
}

// RenameChat renames a group chat.
// PUT /api/chats/:id/rename
func (h *ChatHandlers) RenameChat(c *gin.Context) {
	var req RenameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	chat, _, ok := h.chatFromPath(c, true)
	if !ok {
		return
	}

	if err := h.store.RenameChat(c.Request.Context(), chat.ID, req.Name); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chat.ID).Msg("failed to rename chat")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	chat.Name = req.Name
	c.JSON(http.StatusOK, h.chatResponse(c, chat))
}

// AddMember adds a user to a group chat.
// POST /api/chats/:id/members
func (h *ChatHandlers) AddMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	chat, _, ok := h.chatFromPath(c, true)
	if !ok {
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), req.UserID, chat.ID); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chat.ID).Msg("failed to add member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.chatResponse(c, chat))
}

// RemoveMember removes a user from a group chat. Members may remove
// themselves; only the admin may remove others.
// DELETE /api/chats/:id/members/:userID
func (h *ChatHandlers) RemoveMember(c *gin.Context) {
	chat, uid, ok := h.chatFromPath(c, false)
	if !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	if targetID != uid && (chat.AdminID == nil || *chat.AdminID != uid) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "admin access required"})
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), targetID, chat.ID); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chat.ID).Msg("failed to remove member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.chatResponse(c, chat))
}
