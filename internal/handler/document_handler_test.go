package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/repository"
	"github.com/MattB543/textpress-matt-test/internal/service"
)

// pingRepository wraps the memory repository with a controllable Ping.
type pingRepository struct {
	*repository.MemoryDocumentRepository
	pingErr error
}

func (r *pingRepository) Ping(ctx context.Context) error {
	return r.pingErr
}

func newDocumentHandler(repo domain.DocumentRepository, dbConfigured bool) *DocumentHandler {
	logger := NewMockHandlerLogger()
	converter := service.NewContentConverter(5*time.Second, 1<<20, logger)
	svc := service.NewDocumentService(repo, converter, logger, "https://docs.example.com")
	return NewDocumentHandler(svc, 1<<20, 1<<20, dbConfigured, logger)
}

func TestHealth_DatabaseConfigured(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    string
	}{
		{"Database up", nil, `{"db":true,"ok":true}`},
		{"Database down", errors.New("connection refused"), `{"db":false,"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &pingRepository{MemoryDocumentRepository: repository.NewMemoryDocumentRepository(), pingErr: tt.pingErr}
			h := newDocumentHandler(repo, true)

			rr := httptest.NewRecorder()
			h.Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if strings.TrimSpace(rr.Body.String()) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, rr.Body.String())
			}
		})
	}
}

func TestConvert_URLEncodedForm(t *testing.T) {
	h := newDocumentHandler(repository.NewMemoryDocumentRepository(), false)

	form := url.Values{"text": {"# Plain form\n\nbody"}}
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	h.Convert(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"public_url":"https://docs.example.com/d/`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestConvert_BodyOverLimit(t *testing.T) {
	logger := NewMockHandlerLogger()
	converter := service.NewContentConverter(5*time.Second, 1<<20, logger)
	svc := service.NewDocumentService(repository.NewMemoryDocumentRepository(), converter, logger, "")
	h := NewDocumentHandler(svc, 8, 8, false, logger)

	form := url.Values{"text": {strings.Repeat("x", 2<<20)}}
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	h.Convert(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rr.Code, rr.Body.String())
	}
}
