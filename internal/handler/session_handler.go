package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/orchestrator"
	"github.com/MattB543/textpress-matt-test/internal/service"

	"github.com/gorilla/mux"
)

// SessionHandler exposes orchestration sessions over HTTP.
type SessionHandler struct {
	sessions    *service.SessionRegistry
	maxFileSize int64
	maxTextSize int64
	logger      domain.Logger
}

type createSessionRequest struct {
	Slots         int    `json:"slots"`
	CombinedTitle string `json:"combined_title"`
}

type titleRequest struct {
	CombinedTitle string `json:"combined_title"`
}

type sessionResponse struct {
	ID string `json:"id"`
	orchestrator.Session
}

func NewSessionHandler(sessions *service.SessionRegistry, maxFileSize, maxTextSize int64, logger domain.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:    sessions,
		maxFileSize: maxFileSize,
		maxTextSize: maxTextSize,
		logger:      logger,
	}
}

// Create starts a session. An empty body uses the configured slot count.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Slots < 0 {
		writeError(w, http.StatusBadRequest, "slots must not be negative")
		return
	}

	id, o, err := h.sessions.Create(req.Slots, req.CombinedTitle)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Session: o.Snapshot()})
}

// Get returns the current snapshot.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, o, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Session: o.Snapshot()})
}

// Delete abandons the session; outstanding results are dropped.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sessions.Remove(id); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BindSlot binds a file, text or URL to a slot and starts converting it.
func (h *SessionHandler) BindSlot(w http.ResponseWriter, r *http.Request) {
	id, o, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := slotIndex(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r, h.maxFileSize+h.maxTextSize); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	input, err := readConvertInput(r, h.maxFileSize, h.maxTextSize)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	if err := o.BindInput(index, input, r.FormValue("title")); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{ID: id, Session: o.Snapshot()})
}

// ResetSlot returns a complete or failed slot to waiting.
func (h *SessionHandler) ResetSlot(w http.ResponseWriter, r *http.Request) {
	id, o, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := slotIndex(w, r)
	if !ok {
		return
	}
	if err := o.ResetSlot(index); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Session: o.Snapshot()})
}

// SetTitle edits the combined title.
func (h *SessionHandler) SetTitle(w http.ResponseWriter, r *http.Request) {
	id, o, ok := h.session(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := o.SetCombinedTitle(req.CombinedTitle); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Session: o.Snapshot()})
}

// RetryCombine re-evaluates the join after a combine failure.
func (h *SessionHandler) RetryCombine(w http.ResponseWriter, r *http.Request) {
	id, o, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := o.RetryCombine(); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{ID: id, Session: o.Snapshot()})
}

// Events streams snapshots as server-sent events until the client goes away
// or the session is closed.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, o, ok := h.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	updates, cancel := o.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-updates:
			if !open {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			payload, err := json.Marshal(sessionResponse{ID: id, Session: snap})
			if err != nil {
				h.logger.Error("Failed to encode snapshot", err, "session_id", id)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (string, *orchestrator.Orchestrator, bool) {
	id := mux.Vars(r)["id"]
	o, err := h.sessions.Get(id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return "", nil, false
	}
	return id, o, true
}

func slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot index")
		return 0, false
	}
	return index, true
}

// decodeJSON accepts an empty body as the zero value.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
