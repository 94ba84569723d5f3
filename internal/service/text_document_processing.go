package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"

	"golang.org/x/net/html"
)

// ExtractedTextDocument is Markdown recovered from a structured upload.
type ExtractedTextDocument struct {
	Title    string
	Markdown string
}

// --- DOCX extraction ---

// extractDOCX turns word/document.xml into Markdown. Heading styles become
// #-headings and numbered paragraphs become list items; everything else is a paragraph.
func extractDOCX(docxBytes []byte) (ExtractedTextDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return ExtractedTextDocument{}, fmt.Errorf("failed to open docx: %w", err)
	}

	body, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return ExtractedTextDocument{}, fmt.Errorf("invalid docx (missing document.xml): %w", err)
	}

	var title string
	if core, err := readZipFile(zr, "docProps/core.xml"); err == nil {
		title = parseCoreTitle(core)
	}

	paragraphs := parseDocumentXML(body)
	var sb strings.Builder
	for _, p := range paragraphs {
		text := strings.TrimSpace(p.text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		switch {
		case p.heading > 0:
			sb.WriteString(strings.Repeat("#", p.heading) + " " + text)
			if title == "" {
				title = text
			}
		case p.listItem:
			sb.WriteString("- " + text)
		default:
			sb.WriteString(text)
		}
	}

	return ExtractedTextDocument{
		Title:    strings.TrimSpace(title),
		Markdown: normalizeText(sb.String()),
	}, nil
}

type docxParagraph struct {
	text     string
	heading  int
	listItem bool
}

func parseDocumentXML(documentXML []byte) []docxParagraph {
	var out []docxParagraph
	var current *docxParagraph
	var text strings.Builder
	inText := false

	dec := xml.NewDecoder(bytes.NewReader(documentXML))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current = &docxParagraph{}
				text.Reset()
			case "pStyle":
				if current != nil {
					current.heading = headingLevel(attrValue(t, "val"))
				}
			case "numPr":
				if current != nil {
					current.listItem = true
				}
			case "t":
				inText = true
			case "tab":
				text.WriteString("\t")
			case "br", "cr":
				text.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if current != nil {
					current.text = text.String()
					out = append(out, *current)
					current = nil
				}
			}
		case xml.CharData:
			if inText {
				text.Write([]byte(t))
			}
		}
	}
	return out
}

// headingLevel maps Word style ids such as "Heading2" or "Title" to a Markdown level.
func headingLevel(style string) int {
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if style == "title" {
		return 1
	}
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	level := 0
	fmt.Sscanf(strings.TrimPrefix(style, "heading"), "%d", &level)
	if level < 1 || level > 6 {
		return 0
	}
	return level
}

func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parseCoreTitle(coreXML []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(coreXML))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok && strings.ToLower(se.Name.Local) == "title" {
			return strings.TrimSpace(readElementText(dec))
		}
	}
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	// Try exact match first.
	for _, f := range zr.File {
		if f.Name == name {
			return readZipEntry(f)
		}
	}
	lower := strings.ToLower(name)
	for _, f := range zr.File {
		if strings.ToLower(f.Name) == lower {
			return readZipEntry(f)
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

// maxZipEntrySize caps the inflated size of a single archive entry; the upload
// ceiling only bounds compressed bytes.
const maxZipEntrySize = 32 << 20

func readZipEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxZipEntrySize {
		return nil, zipEntryTooLarge(f.Name, int64(f.UncompressedSize64))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// The header size can lie, so the read is bounded as well.
	data, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxZipEntrySize {
		return nil, zipEntryTooLarge(f.Name, int64(len(data)))
	}
	return data, nil
}

func zipEntryTooLarge(name string, size int64) error {
	return apperrors.NewSizeLimitError(
		fmt.Sprintf("Document too large once decompressed (%s)", name), size, maxZipEntrySize)
}

func readElementText(dec *xml.Decoder) string {
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			out.Write([]byte(t))
		case xml.EndElement:
			return out.String()
		}
	}
	return out.String()
}

// --- HTML helpers ---

// htmlTitle returns the <title> text, or the first <h1> when the title is empty.
func htmlTitle(b []byte) string {
	doc, err := html.Parse(bytes.NewReader(b))
	if err != nil || doc == nil {
		return ""
	}

	var title, h1 string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "title":
				if title == "" {
					title = nodeText(n)
				}
			case "h1":
				if h1 == "" {
					h1 = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return strings.TrimSpace(h1)
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// bodyInnerHTML returns the children of <body> rendered back to HTML, or the
// input unchanged when it has no body element.
func bodyInnerHTML(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}

	var body *html.Node
	var find func(n *html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && strings.ToLower(n.Data) == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if body == nil {
		return page
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return page
		}
	}
	return strings.TrimSpace(buf.String())
}

// markdownTitle returns the first ATX heading in src.
func markdownTitle(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	return ""
}

func normalizeText(s string) string {
	s = stripNUL(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	// Replace non-breaking spaces.
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		t := strings.TrimRight(line, " \t")
		if strings.TrimSpace(t) == "" {
			blank++
			if blank <= 1 {
				out = append(out, "")
			}
			continue
		}
		blank = 0
		out = append(out, t)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// stripNUL removes NUL bytes, which the document store rejects.
func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
