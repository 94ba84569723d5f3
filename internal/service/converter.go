package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Source types recorded with each document.
const (
	SourceText     = "text"
	SourceURL      = "url"
	SourceCombined = "combined"
)

// AllowedExtensions are the upload suffixes ContentConverter understands.
var AllowedExtensions = map[string]string{
	".docx":     "docx",
	".md":       "md",
	".markdown": "md",
	".txt":      "txt",
	".html":     "html",
	".htm":      "html",
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// ContentConverter turns uploads, pasted text and web pages into HTML and Markdown.
type ContentConverter struct {
	client       *http.Client
	toMarkdown   *md.Converter
	markdown     goldmark.Markdown
	maxFetchSize int64
	logger       domain.Logger
}

func NewContentConverter(fetchTimeout time.Duration, maxFetchSize int64, logger domain.Logger) *ContentConverter {
	return &ContentConverter{
		client:       &http.Client{Timeout: fetchTimeout},
		toMarkdown:   md.NewConverter("", true, nil).Remove("head", "script", "style", "noscript"),
		markdown:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		maxFetchSize: maxFetchSize,
		logger:       logger,
	}
}

// Convert implements domain.Converter.
func (c *ContentConverter) Convert(ctx context.Context, input domain.ConvertInput) (*domain.ConvertedDocument, error) {
	switch input.Kind() {
	case domain.InputFile:
		return c.convertFile(input.FileName, input.File)
	case domain.InputText:
		return c.fromMarkdown(input.Text, SourceText, "")
	case domain.InputURL:
		return c.convertURL(ctx, strings.TrimSpace(input.URL))
	default:
		return nil, apperrors.NewInvalidInputError("Provide file or text or url")
	}
}

func (c *ContentConverter) convertFile(name string, data []byte) (*domain.ConvertedDocument, error) {
	ext := strings.ToLower(filepath.Ext(name))
	format, ok := AllowedExtensions[ext]
	if !ok {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("Unsupported file type %q", ext))
	}
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	switch format {
	case "docx":
		extracted, err := extractDOCX(data)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return nil, appErr
			}
			return nil, apperrors.NewProcessingError("Failed to read Word document", err)
		}
		title := extracted.Title
		if title == "" {
			title = stem
		}
		return c.fromMarkdown(extracted.Markdown, format, title)
	case "html":
		return c.fromHTML(data, format, stem)
	default:
		src := string(bytes.ToValidUTF8(data, []byte{}))
		return c.fromMarkdown(src, format, stem)
	}
}

func (c *ContentConverter) convertURL(ctx context.Context, raw string) (*domain.ConvertedDocument, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.NewInvalidInputError("URL must be an absolute http or https address")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("Invalid URL")
	}
	req.Header.Set("Accept", "text/html, text/markdown;q=0.9, text/plain;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("Failed to fetch %s", u.Host), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProcessingError(
			fmt.Sprintf("Fetching %s returned status %d", u.Host, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFetchSize+1))
	if err != nil {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("Failed to read %s", u.Host), err)
	}
	if int64(len(body)) > c.maxFetchSize {
		return nil, apperrors.NewSizeLimitError("Fetched page is too large", int64(len(body)), c.maxFetchSize)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	c.logger.Debug("Fetched URL", "url", u.String(), "content_type", mediaType, "size", len(body))

	switch {
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return c.fromHTML(body, SourceURL, u.Host)
	case strings.HasPrefix(mediaType, "text/"):
		return c.fromMarkdown(string(bytes.ToValidUTF8(body, []byte{})), SourceURL, u.Host)
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("Unsupported content type %q", mediaType))
	}
}

func (c *ContentConverter) fromMarkdown(src, sourceType, fallbackTitle string) (*domain.ConvertedDocument, error) {
	src = normalizeText(src)
	title := markdownTitle(src)
	if title == "" {
		title = fallbackTitle
	}

	body, err := c.RenderMarkdown(src)
	if err != nil {
		return nil, err
	}
	page, err := RenderPage(title, body)
	if err != nil {
		return nil, err
	}
	return &domain.ConvertedDocument{HTML: page, Markdown: &src, SourceType: sourceType, Title: title}, nil
}

func (c *ContentConverter) fromHTML(data []byte, sourceType, fallbackTitle string) (*domain.ConvertedDocument, error) {
	raw := string(bytes.ToValidUTF8(data, []byte{}))
	markdown, err := c.toMarkdown.ConvertString(raw)
	if err != nil {
		return nil, apperrors.NewProcessingError("Failed to convert HTML to Markdown", err)
	}
	markdown = normalizeText(markdown)

	title := htmlTitle(data)
	if title == "" {
		title = fallbackTitle
	}

	// Re-render from Markdown so scripts and styles never reach the published page.
	body, err := c.RenderMarkdown(markdown)
	if err != nil {
		return nil, err
	}
	page, err := RenderPage(title, body)
	if err != nil {
		return nil, err
	}
	return &domain.ConvertedDocument{HTML: page, Markdown: &markdown, SourceType: sourceType, Title: title}, nil
}

// HTMLToMarkdown converts a stored HTML page back to Markdown.
func (c *ContentConverter) HTMLToMarkdown(page string) (string, error) {
	out, err := c.toMarkdown.ConvertString(page)
	if err != nil {
		return "", apperrors.NewProcessingError("Failed to convert HTML to Markdown", err)
	}
	return normalizeText(out), nil
}

// RenderMarkdown renders Markdown to an HTML fragment. Raw HTML in the source is dropped.
func (c *ContentConverter) RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(src), &buf); err != nil {
		return "", apperrors.NewProcessingError("Failed to render Markdown", err)
	}
	return buf.String(), nil
}

// RenderPage wraps an HTML fragment in a standalone page.
func RenderPage(title, bodyHTML string) (string, error) {
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(bodyHTML)})
	if err != nil {
		return "", apperrors.NewInternalError("Failed to render page", err)
	}
	return buf.String(), nil
}
