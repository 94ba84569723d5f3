// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/service"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"

	"github.com/gorilla/mux"
)

const healthPingTimeout = 3 * time.Second

// DocumentHandler handles publishing and serving documents.
type DocumentHandler struct {
	documentService *service.DocumentService
	maxFileSize     int64
	maxTextSize     int64
	dbConfigured    bool
	logger          domain.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *service.DocumentService, maxFileSize, maxTextSize int64, dbConfigured bool, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxFileSize:     maxFileSize,
		maxTextSize:     maxTextSize,
		dbConfigured:    dbConfigured,
		logger:          logger,
	}
}

// Convert publishes one file, pasted text or URL.
func (h *DocumentHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxFileSize+h.maxTextSize); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	input, err := readConvertInput(r, h.maxFileSize, h.maxTextSize)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	result, err := h.documentService.Convert(r.Context(), input)
	if err != nil {
		h.logger.Warn("Convert failed", "kind", string(input.Kind()), "error", err)
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Combine publishes already converted documents as one.
func (h *DocumentHandler) Combine(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxTextSize); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	raw := r.PostForm["doc_ids"]
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "Provide doc_ids")
		return
	}
	// Titles pair with ids by position, so a blank id is rejected rather than skipped.
	ids := make([]string, len(raw))
	for i, id := range raw {
		if ids[i] = strings.TrimSpace(id); ids[i] == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Blank doc_id at position %d", i))
			return
		}
	}

	result, err := h.documentService.Combine(r.Context(), ids, r.PostForm["titles"], r.PostForm.Get("combined_title"))
	if err != nil {
		h.logger.Warn("Combine failed", "count", len(ids), "error", err)
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ServeHTML serves the published page.
func (h *DocumentHandler) ServeHTML(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.HTMLBody))
}

// ServeMarkdown serves the Markdown source of a published document.
func (h *DocumentHandler) ServeMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.load(w, r)
	if !ok {
		return
	}
	markdown, err := h.documentService.DocumentMarkdown(doc)
	if err != nil {
		h.logger.Error("Failed to render markdown", err, "id", doc.ID)
		http.Error(w, "Failed to render markdown", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markdown + "\n"))
}

func (h *DocumentHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Document, bool) {
	id := mux.Vars(r)["id"]
	doc, err := h.documentService.GetDocument(r.Context(), id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("Failed to load document", err, "id", id)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return nil, false
	}
	return doc, true
}

// Health reports liveness and, when a database is configured, whether it answers.
func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"ok": true, "db": nil}
	if h.dbConfigured {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.documentService.Ping(ctx); err != nil {
			h.logger.Warn("Database ping failed", "error", err)
			resp["db"] = false
		} else {
			resp["db"] = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
