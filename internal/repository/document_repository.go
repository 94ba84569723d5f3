package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/MattB543/textpress-matt-test/internal/domain"
)

// MemoryDocumentRepository keeps documents in process memory. It is the
// default store when no database is configured.
type MemoryDocumentRepository struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{documents: make(map[string]*domain.Document)}
}

func (r *MemoryDocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	if err := document.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.documents[document.ID]; exists {
		return fmt.Errorf("document %s already exists", document.ID)
	}
	r.documents[document.ID] = copyDocument(document)
	return nil
}

func (r *MemoryDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return copyDocument(doc), nil
}

func (r *MemoryDocumentRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyDocument(d *domain.Document) *domain.Document {
	out := *d
	if d.MarkdownBody != nil {
		md := *d.MarkdownBody
		out.MarkdownBody = &md
	}
	return &out
}
