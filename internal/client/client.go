// Package client talks to the textpress publishing backend over multipart HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"
)

const (
	DefaultMaxFileSize = 15 << 20
	DefaultMaxTextSize = 2 << 20

	// errorBodyLimit caps how much of an error response is read.
	errorBodyLimit = 64 << 10
)

// Options configures a Client. BaseURL is the API root, e.g. http://localhost:8080/api.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	MaxFileSize int64
	MaxTextSize int64
	Logger      domain.Logger
}

// Client implements domain.Transport. It holds no session state and is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxFileSize int64
	maxTextSize int64
	logger      domain.Logger
}

// New creates a client for the given backend.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, apperrors.NewValidationError("Base URL is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MaxTextSize <= 0 {
		opts.MaxTextSize = DefaultMaxTextSize
	}
	return &Client{
		baseURL:     base,
		httpClient:  opts.HTTPClient,
		maxFileSize: opts.MaxFileSize,
		maxTextSize: opts.MaxTextSize,
		logger:      opts.Logger,
	}, nil
}

// Convert uploads one input and returns the published document's id and URL.
func (c *Client) Convert(ctx context.Context, input domain.ConvertInput) (*domain.ConvertResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	switch input.Kind() {
	case domain.InputFile:
		if len(input.File) == 0 {
			return nil, apperrors.NewInvalidInputError("File is empty")
		}
		if size := int64(len(input.File)); size > c.maxFileSize {
			return nil, apperrors.NewSizeLimitError(
				fmt.Sprintf("File too large. Maximum upload size is %s", humanSize(c.maxFileSize)), size, c.maxFileSize)
		}
		name := filepath.Base(strings.TrimSpace(input.FileName))
		if name == "." || name == "" {
			name = "upload"
		}
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to build upload", err)
		}
		if _, err := part.Write(input.File); err != nil {
			return nil, apperrors.NewInternalError("Failed to build upload", err)
		}
	case domain.InputText:
		if size := int64(len(input.Text)); size > c.maxTextSize {
			return nil, apperrors.NewSizeLimitError(
				fmt.Sprintf("Text too large. Maximum size is %s", humanSize(c.maxTextSize)), size, c.maxTextSize)
		}
		if err := writer.WriteField("text", input.Text); err != nil {
			return nil, apperrors.NewInternalError("Failed to build upload", err)
		}
	case domain.InputURL:
		if err := writer.WriteField("url", strings.TrimSpace(input.URL)); err != nil {
			return nil, apperrors.NewInternalError("Failed to build upload", err)
		}
	default:
		return nil, apperrors.NewInvalidInputError("Provide file or text or url")
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewInternalError("Failed to build upload", err)
	}

	resp, err := c.post(ctx, "/convert", writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewRemoteError(resp.StatusCode, convertErrorMessage(resp))
	}

	var result domain.ConvertResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewTransportError("Invalid response from server", err)
	}
	if result.ID == "" {
		return nil, apperrors.NewTransportError("Invalid response from server", fmt.Errorf("missing document id"))
	}
	c.debug("Converted document", "kind", string(input.Kind()), "id", result.ID)
	return &result, nil
}

// Combine asks the backend to publish the given documents as one. Titles, when
// present, pair with documentIDs by position.
func (c *Client) Combine(ctx context.Context, documentIDs, titles []string, combinedTitle string) (*domain.CombinedResult, error) {
	if len(documentIDs) == 0 {
		return nil, apperrors.NewInvalidInputError("At least one document is required")
	}
	if len(titles) > 0 && len(titles) != len(documentIDs) {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("Got %d titles for %d documents", len(titles), len(documentIDs)))
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, id := range documentIDs {
		if err := writer.WriteField("doc_ids", id); err != nil {
			return nil, apperrors.NewInternalError("Failed to build request", err)
		}
	}
	for _, title := range titles {
		if err := writer.WriteField("titles", title); err != nil {
			return nil, apperrors.NewInternalError("Failed to build request", err)
		}
	}
	if strings.TrimSpace(combinedTitle) != "" {
		if err := writer.WriteField("combined_title", combinedTitle); err != nil {
			return nil, apperrors.NewInternalError("Failed to build request", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewInternalError("Failed to build request", err)
	}

	resp, err := c.post(ctx, "/combine", writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
		return nil, apperrors.NewRemoteError(resp.StatusCode,
			fmt.Sprintf("Combine failed with status %d", resp.StatusCode))
	}

	var result domain.CombinedResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewTransportError("Invalid response from server", err)
	}
	c.debug("Combined documents", "count", len(documentIDs), "id", result.ID)
	return &result, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewTransportError("Request cancelled or timed out", ctxErr)
		}
		return nil, apperrors.NewTransportError("Network error contacting server", err)
	}
	return resp, nil
}

// convertErrorMessage reads {"error": ...} or {"detail": ...} from a failed
// convert response, falling back to a status-based message.
func convertErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var payload struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &payload) == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}
	}

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "File too large for the server to accept"
	}
	return fmt.Sprintf("Convert failed with status %d", resp.StatusCode)
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func (c *Client) debug(msg string, fields ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, fields...)
	}
}
