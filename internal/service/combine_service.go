package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"

	"golang.org/x/sync/errgroup"
)

const (
	defaultCombinedTitle = "Combined document"
	maxCombineLoads      = 8
)

// Combine publishes the given documents, in order, as a single document.
func (s *DocumentService) Combine(ctx context.Context, documentIDs, titles []string, combinedTitle string) (*domain.CombinedResult, error) {
	if len(documentIDs) == 0 {
		return nil, apperrors.NewInvalidInputError("Provide at least one document id")
	}
	if len(titles) > 0 && len(titles) != len(documentIDs) {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("Got %d titles for %d documents", len(titles), len(documentIDs)))
	}
	combinedTitle = strings.TrimSpace(combinedTitle)
	if combinedTitle == "" {
		combinedTitle = defaultCombinedTitle
	}

	docs := make([]*domain.Document, len(documentIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCombineLoads)
	for i, id := range documentIDs {
		i, id := i, id
		g.Go(func() error {
			doc, err := s.GetDocument(gctx, id)
			if err != nil {
				if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
					return apperrors.NewNotFoundError("Document not found: " + id)
				}
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var markdown, body strings.Builder
	markdown.WriteString("# " + combinedTitle + "\n")
	body.WriteString("<h1>" + html.EscapeString(combinedTitle) + "</h1>\n")

	urls := make([]string, len(docs))
	for i, doc := range docs {
		title := partTitle(doc, titles, i)
		part, err := s.DocumentMarkdown(doc)
		if err != nil {
			return nil, err
		}
		markdown.WriteString("\n## " + title + "\n\n" + part + "\n")
		fmt.Fprintf(&body, "<section id=\"part-%d\">\n<h2>%s</h2>\n%s\n</section>\n",
			i+1, html.EscapeString(title), bodyInnerHTML(doc.HTMLBody))
		urls[i] = s.PublicURL(doc.ID)
	}

	page, err := RenderPage(combinedTitle, body.String())
	if err != nil {
		return nil, err
	}
	combinedMarkdown := markdown.String()

	doc := &domain.Document{
		ID:           newDocumentID(),
		Status:       "ready",
		SourceType:   SourceCombined,
		InputName:    strings.Join(documentIDs, ","),
		Title:        combinedTitle,
		HTMLBody:     stripNUL(page),
		MarkdownBody: &combinedMarkdown,
		CreatedAt:    s.now(),
	}
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Combined documents", "id", doc.ID, "components", len(docs))
	return &domain.CombinedResult{
		ID:            doc.ID,
		PublicURL:     s.PublicURL(doc.ID),
		ComponentIDs:  append([]string(nil), documentIDs...),
		ComponentURLs: urls,
	}, nil
}

func partTitle(doc *domain.Document, titles []string, i int) string {
	if i < len(titles) {
		if t := strings.TrimSpace(titles[i]); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Part %d", i+1)
}

// DocumentMarkdown returns the stored Markdown, converting the HTML when none was kept.
func (s *DocumentService) DocumentMarkdown(doc *domain.Document) (string, error) {
	if doc.MarkdownBody != nil {
		return strings.TrimSpace(stripNUL(*doc.MarkdownBody)), nil
	}
	return s.converter.HTMLToMarkdown(doc.HTMLBody)
}
