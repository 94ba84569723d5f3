package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeAppError maps service and domain errors onto a status code and message.
func writeAppError(w http.ResponseWriter, logger domain.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, domain.ErrSessionClosed):
		writeError(w, http.StatusGone, "Session closed")
		return
	case errors.Is(err, domain.ErrSlotOutOfRange), errors.Is(err, domain.ErrInvalidSlotCount):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrSlotBusy), errors.Is(err, domain.ErrTitleFrozen):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, domain.ErrTooManySessions):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, "Too many active sessions")
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, "status", status)
		if apperrors.IsType(err, apperrors.ErrorTypeInternal) || !isAppError(err) {
			writeError(w, status, "Internal error")
			return
		}
	}
	writeError(w, status, apperrors.Message(err))
}

func isAppError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}
