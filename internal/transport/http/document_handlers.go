package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ovasiliev/converse-server/internal/store"
)

// DocumentHandlers provides HTTP handlers for collaborative documents.
type DocumentHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewDocumentHandlers creates a new document handlers instance.
func NewDocumentHandlers(st store.Store, logger *zerolog.Logger) *DocumentHandlers {
	return &DocumentHandlers{
		store: st,
		log:   logger,
	}
}

// CreateDocumentRequest creates a document attached to a chat. ID is
// optional; clients that open editor sessions before the REST call may
// supply their own UUID.
type CreateDocumentRequest struct {
	ID      string          `json:"id"`
	ChatID  int64           `json:"chat_id" binding:"required"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

// UpdateDocumentRequest updates a document's name and/or content.
type UpdateDocumentRequest struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
}

// DocumentResponse represents a document in API responses.
type DocumentResponse struct {
	ID        string          `json:"id"`
	ChatID    int64           `json:"chat_id"`
	Name      string          `json:"name"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func documentResponse(doc *store.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		ChatID:    doc.ChatID,
		Name:      doc.Name,
		Content:   doc.Content,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// CreateDocument creates a new document.
// POST /api/documents
func (h *DocumentHandlers) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
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

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "document id must be a UUID"})
		return
	}

	doc := &store.Document{
		ID:      id,
		ChatID:  req.ChatID,
		Name:    req.Title,
		Content: req.Content,
	}
	if err := h.store.CreateDocument(c.Request.Context(), doc); err != nil {
		h.log.Error().Err(err).Str("doc_id", id).Msg("failed to create document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, documentResponse(doc))
}

// ListByChat lists the documents attached to a chat.
// GET /api/chats/:id/documents
func (h *DocumentHandlers) ListByChat(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	member, err := h.store.IsMember(c.Request.Context(), uid, chatID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this chat"})
		return
	}

	docs, err := h.store.ListDocumentsByChat(c.Request.Context(), chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to list documents")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, documentResponse(doc))
	}

	c.JSON(http.StatusOK, response)
}

// GetDocument retrieves a document by id.
// GET /api/documents/:id
func (h *DocumentHandlers) GetDocument(c *gin.Context) {
	doc, err := h.store.LoadDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error().Err(err).Str("doc_id", c.Param("id")).Msg("failed to load document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
		return
	}

	c.JSON(http.StatusOK, documentResponse(doc))
}

// UpdateDocument updates a document's name and/or content.
// PUT /api/documents/:id
func (h *DocumentHandlers) UpdateDocument(c *gin.Context) {
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := c.Param("id")
	doc, err := h.store.LoadDocument(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("doc_id", id).Msg("failed to load document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
		return
	}

	if len(req.Content) > 0 {
		if err := h.store.UpsertDocumentContent(c.Request.Context(), id, req.Content); err != nil {
			h.log.Error().Err(err).Str("doc_id", id).Msg("failed to update document content")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}
	if req.Name != "" {
		if err := h.store.RenameDocument(c.Request.Context(), id, req.Name); err != nil {
			h.log.Error().Err(err).Str("doc_id", id).Msg("failed to rename document")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}

	updated, err := h.store.LoadDocument(c.Request.Context(), id)
	if err != nil || updated == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, documentResponse(updated))
}
