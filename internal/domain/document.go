package domain

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// InputKind identifies which field of a ConvertInput is meaningful.
type InputKind string

const (
	InputNone InputKind = ""
	InputFile InputKind = "file"
	InputText InputKind = "text"
	InputURL  InputKind = "url"
)

// ConvertInput is one user-supplied source: an uploaded file, pasted text or a URL.
// When several are set the file wins, then text, then URL.
type ConvertInput struct {
	File     []byte `json:"-"`
	FileName string `json:"file_name,omitempty"`
	Text     string `json:"-"`
	URL      string `json:"url,omitempty"`
}

// Kind reports the effective input kind after applying precedence.
func (in ConvertInput) Kind() InputKind {
	switch {
	case len(in.File) > 0 || strings.TrimSpace(in.FileName) != "":
		return InputFile
	case strings.TrimSpace(in.Text) != "":
		return InputText
	case strings.TrimSpace(in.URL) != "":
		return InputURL
	default:
		return InputNone
	}
}

// DisplayName is the default label for the input.
func (in ConvertInput) DisplayName() string {
	switch in.Kind() {
	case InputFile:
		name := filepath.Base(strings.TrimSpace(in.FileName))
		if name == "." || name == string(filepath.Separator) || name == "" {
			return "document"
		}
		if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" {
			return stem
		}
		return name
	case InputText:
		line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(in.Text), "\n", 2)[0])
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if len(line) > 60 {
			line = strings.TrimSpace(line[:60])
		}
		if line == "" {
			return "Pasted text"
		}
		return line
	case InputURL:
		return strings.TrimSpace(in.URL)
	default:
		return ""
	}
}

// ConvertResult is the backend's answer to a single conversion.
type ConvertResult struct {
	ID        string `json:"id"`
	PublicURL string `json:"public_url"`
}

// CombinedResult is the published artifact built from several converted documents.
type CombinedResult struct {
	ID            string   `json:"id"`
	PublicURL     string   `json:"public_url"`
	ComponentIDs  []string `json:"component_ids"`
	ComponentURLs []string `json:"component_urls"`
}

// Clone returns a deep copy.
func (r *CombinedResult) Clone() *CombinedResult {
	if r == nil {
		return nil
	}
	out := *r
	out.ComponentIDs = append([]string(nil), r.ComponentIDs...)
	out.ComponentURLs = append([]string(nil), r.ComponentURLs...)
	return &out
}

// Document is a published document as stored by the backend.
type Document struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	SourceType   string    `json:"source_type"`
	InputName    string    `json:"input_name,omitempty"`
	Title        string    `json:"title,omitempty"`
	HTMLBody     string    `json:"html_body"`
	MarkdownBody *string   `json:"md_body,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the fields a repository requires before persisting.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return &ValidationError{Field: "id", Message: "document ID is required"}
	}
	if strings.TrimSpace(d.SourceType) == "" {
		return &ValidationError{Field: "source_type", Message: "source type is required"}
	}
	if strings.ContainsRune(d.HTMLBody, 0) {
		return &ValidationError{Field: "html_body", Message: "html body contains NUL bytes"}
	}
	if d.MarkdownBody != nil && strings.ContainsRune(*d.MarkdownBody, 0) {
		return &ValidationError{Field: "md_body", Message: "markdown body contains NUL bytes"}
	}
	return nil
}

// ConvertedDocument is the output of a Converter before it is persisted.
type ConvertedDocument struct {
	HTML       string
	Markdown   *string
	SourceType string
	Title      string
}

// DocumentRepository defines persistence operations for published documents.
type DocumentRepository interface {
	Create(ctx context.Context, document *Document) error
	GetByID(ctx context.Context, id string) (*Document, error)
	Ping(ctx context.Context) error
}

// Converter turns a ConvertInput into HTML and Markdown.
type Converter interface {
	Convert(ctx context.Context, input ConvertInput) (*ConvertedDocument, error)
}

// Transport issues the two remote operations the orchestrator depends on.
type Transport interface {
	Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error)
	Combine(ctx context.Context, documentIDs, titles []string, combinedTitle string) (*CombinedResult, error)
}
