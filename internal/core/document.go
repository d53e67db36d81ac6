package core

import (
	"context"
	"encoding/json"
)

// emptyContent is the snapshot a freshly created document starts with.
var emptyContent = json.RawMessage(`""`)

// DocumentStore is the narrow view of the external document store the core
// needs. Content is opaque; the core loads it once per first join, passes it
// through, and writes snapshots back without interpreting them.
type DocumentStore interface {
	// LoadDocument returns the stored content for id, or ok=false when no
	// record exists.
	LoadDocument(ctx context.Context, id string) (content json.RawMessage, ok bool, err error)

	// CreateDocument creates a new record with the given content.
	CreateDocument(ctx context.Context, id string, content json.RawMessage) error

	// UpsertDocumentContent overwrites the stored snapshot for id.
	// Writes are idempotent last-write-wins.
	UpsertDocumentContent(ctx context.Context, id string, content json.RawMessage) error
}

// docSession caches a document's content while at least one editor holds the
// room open. The cache is authoritative only for replying to late joiners;
// clients reconcile their own views from relayed deltas.
type docSession struct {
	content json.RawMessage
}

// openDocument returns the in-memory session for docID, loading or lazily
// creating the stored record on first join.
func (h *Hub) openDocument(ctx context.Context, docID string) (*docSession, *CoreError) {
	if sess, ok := h.docs[docID]; ok {
		return sess, nil
	}

	content, ok, err := h.store.LoadDocument(ctx, docID)
	if err != nil {
		h.log.Error().Err(err).Str("doc_id", docID).Msg("load document")
		return nil, coreError(ErrCodeDocUnavailable, "document store unavailable")
	}
	if !ok {
		if err := h.store.CreateDocument(ctx, docID, emptyContent); err != nil {
			h.log.Error().Err(err).Str("doc_id", docID).Msg("create document")
			return nil, coreError(ErrCodeDocUnavailable, "document store unavailable")
		}
		content = emptyContent
	}

	sess := &docSession{content: content}
	h.docs[docID] = sess
	return sess, nil
}

// closeDocumentIfEmpty evicts the session cache once the last editor left.
// Stored content is already durable, so no further teardown is needed.
func (h *Hub) closeDocumentIfEmpty(docID string) {
	if h.rooms.Empty(docID) {
		delete(h.docs, docID)
	}
}
