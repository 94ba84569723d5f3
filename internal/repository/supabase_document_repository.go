package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	infrasupabase "github.com/MattB543/textpress-matt-test/internal/infra/supabase"
)

const documentsTable = "documents"

// SupabaseDocumentRepository stores published documents in the Supabase "documents" table.
type SupabaseDocumentRepository struct {
	client *infrasupabase.Client
	logger domain.Logger
}

// NewSupabaseDocumentRepository creates a new Supabase document repository
func NewSupabaseDocumentRepository(client *infrasupabase.Client, logger domain.Logger) *SupabaseDocumentRepository {
	return &SupabaseDocumentRepository{
		client: client,
		logger: logger,
	}
}

type documentRow struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	SourceType string    `json:"source_type"`
	InputName  string    `json:"input_name,omitempty"`
	Title      string    `json:"title,omitempty"`
	HTMLBody   string    `json:"html_body"`
	MDBody     *string   `json:"md_body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Create a new document in Supabase
func (r *SupabaseDocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	if err := document.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	row := documentRow{
		ID:         document.ID,
		Status:     document.Status,
		SourceType: document.SourceType,
		InputName:  document.InputName,
		Title:      document.Title,
		HTMLBody:   document.HTMLBody,
		MDBody:     document.MarkdownBody,
		CreatedAt:  document.CreatedAt,
	}

	_, _, err := r.client.DB().From(documentsTable).Insert(row, false, "", "", "").Execute()
	if err != nil {
		r.logger.Error("Failed to insert document", err, "id", document.ID)
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *SupabaseDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := r.client.DB().From(documentsTable).
		Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrDocumentNotFound
	}

	row := rows[0]
	return &domain.Document{
		ID:           row.ID,
		Status:       row.Status,
		SourceType:   row.SourceType,
		InputName:    row.InputName,
		Title:        row.Title,
		HTMLBody:     row.HTMLBody,
		MarkdownBody: row.MDBody,
		CreatedAt:    row.CreatedAt,
	}, nil
}

// Ping runs a one-row query to confirm the table is reachable.
func (r *SupabaseDocumentRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := r.client.DB().From(documentsTable).
		Select("id", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("documents table unreachable: %w", err)
	}
	return nil
}
