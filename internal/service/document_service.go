package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/observability"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"

	"github.com/google/uuid"
)

// DocumentService converts inputs, persists the result and builds public links.
// It also satisfies domain.Transport, so sessions can run in-process.
type DocumentService struct {
	repo          domain.DocumentRepository
	converter     *ContentConverter
	logger        domain.Logger
	publicBaseURL string
	now           func() time.Time
}

func NewDocumentService(
	repo domain.DocumentRepository,
	converter *ContentConverter,
	logger domain.Logger,
	publicBaseURL string,
) *DocumentService {
	return &DocumentService{
		repo:          repo,
		converter:     converter,
		logger:        logger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Convert publishes one input and returns its id and public URL.
func (s *DocumentService) Convert(ctx context.Context, input domain.ConvertInput) (*domain.ConvertResult, error) {
	if input.Kind() == domain.InputNone {
		return nil, apperrors.NewInvalidInputError("Provide file or text or url")
	}

	s.logger.Info("Convert start",
		"kind", string(input.Kind()),
		"file", input.FileName,
		"text_len", len(input.Text),
		"url", strings.TrimSpace(input.URL),
	)

	converted, err := s.converter.Convert(ctx, input)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         newDocumentID(),
		Status:     "ready",
		SourceType: converted.SourceType,
		InputName:  input.DisplayName(),
		Title:      stripNUL(converted.Title),
		HTMLBody:   stripNUL(converted.HTML),
		CreatedAt:  s.now(),
	}
	if converted.Markdown != nil {
		markdown := stripNUL(*converted.Markdown)
		doc.MarkdownBody = &markdown
	}

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	return &domain.ConvertResult{ID: doc.ID, PublicURL: s.PublicURL(doc.ID)}, nil
}

// GetDocument loads a published document.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, apperrors.NewNotFoundError("Not found")
		}
		return nil, apperrors.NewInternalError("Failed to load document", err)
	}
	return doc, nil
}

// Ping checks the document store.
func (s *DocumentService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// PublicURL is the address a published document is served from.
func (s *DocumentService) PublicURL(id string) string {
	return s.publicBaseURL + "/d/" + id + ".html"
}

func (s *DocumentService) save(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return apperrors.NewValidationError("Invalid document", err.Error())
	}
	s.logger.Info("Saving document", "id", doc.ID, "source_type", doc.SourceType, "html_len", len(doc.HTMLBody))
	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to save document", err, "id", doc.ID)
		return apperrors.NewInternalError("Failed to save document", err)
	}
	observability.RecordDocumentStored(doc.SourceType)
	return nil
}

// newDocumentID returns a random 32-character hex id.
func newDocumentID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
