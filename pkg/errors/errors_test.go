package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidationError("bad input", "slot 4")
	if err.Error() != "validation: bad input (slot 4)" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}

	err = NewNotFoundError("document not found")
	if err.Error() != "not_found: document not found" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestIsType_Wrapped(t *testing.T) {
	base := NewRemoteError(http.StatusRequestEntityTooLarge, "too large")
	wrapped := fmt.Errorf("convert slot 2: %w", base)

	if !IsType(wrapped, ErrorTypeRemote) {
		t.Fatalf("expected wrapped error to be remote")
	}
	if IsType(wrapped, ErrorTypeTransport) {
		t.Fatalf("did not expect transport type")
	}
	if GetStatusCode(wrapped) != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", GetStatusCode(wrapped))
	}
	if Message(wrapped) != "too large" {
		t.Fatalf("unexpected message %q", Message(wrapped))
	}
}

func TestGetStatusCode_PlainError(t *testing.T) {
	if GetStatusCode(fmt.Errorf("boom")) != http.StatusInternalServerError {
		t.Fatalf("expected 500 for plain errors")
	}
}

func TestNewTransportError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewTransportError("request failed", cause)
	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be preserved")
	}
	if err.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", err.StatusCode)
	}
}

func TestNewSizeLimitError_Details(t *testing.T) {
	err := NewSizeLimitError("file too large", 20, 10)
	if err.Details != "20 bytes exceeds limit of 10 bytes" {
		t.Fatalf("unexpected details %q", err.Details)
	}
	if err.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", err.StatusCode)
	}
}
