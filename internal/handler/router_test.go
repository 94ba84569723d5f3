package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MattB543/textpress-matt-test/internal/config"
)

type formFile struct {
	field string
	name  string
	data  []byte
}

func newTestRouter(t *testing.T, mutate func(*config.AppConfig)) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	container, err := config.NewContainerWith(cfg, NewMockHandlerLogger())
	if err != nil {
		t.Fatalf("failed to build container: %v", err)
	}
	t.Cleanup(container.Close)
	return NewRouter(container)
}

func multipartRequest(t *testing.T, method, target string, fields map[string][]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
	}
}

func TestHealthz_NoDatabase(t *testing.T) {
	router := newTestRouter(t, nil)
	rr := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"db":null,"ok":true}` {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "textpress_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/convert", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := serve(router, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow origin, got %q", got)
	}
}

func TestConvertAndServe(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, multipartRequest(t, http.MethodPost, "/api/convert",
		map[string][]string{"text": {"# Hello\n\nWorld"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result struct {
		ID        string `json:"id"`
		PublicURL string `json:"public_url"`
	}
	decodeBody(t, rr, &result)
	if result.ID == "" {
		t.Fatalf("expected document id")
	}
	if result.PublicURL != "http://localhost:8080/d/"+result.ID+".html" {
		t.Fatalf("unexpected public url %q", result.PublicURL)
	}

	page := serve(router, httptest.NewRequest(http.MethodGet, "/d/"+result.ID+".html", nil))
	if page.Code != http.StatusOK {
		t.Fatalf("expected 200 for page, got %d", page.Code)
	}
	if ct := page.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(page.Body.String(), "<title>Hello</title>") {
		t.Fatalf("expected page title, got %s", page.Body.String())
	}

	md := serve(router, httptest.NewRequest(http.MethodGet, "/d/"+result.ID+".md", nil))
	if md.Code != http.StatusOK {
		t.Fatalf("expected 200 for markdown, got %d", md.Code)
	}
	if ct := md.Header().Get("Content-Type"); ct != "text/markdown; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(md.Body.String(), "# Hello") {
		t.Fatalf("unexpected markdown %q", md.Body.String())
	}
}

func TestConvert_FileWinsOverText(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, multipartRequest(t, http.MethodPost, "/api/convert",
		map[string][]string{"text": {"# From text"}},
		formFile{field: "file", name: "notes.md", data: []byte("# From file\n")}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result struct {
		ID string `json:"id"`
	}
	decodeBody(t, rr, &result)

	md := serve(router, httptest.NewRequest(http.MethodGet, "/d/"+result.ID+".md", nil))
	if !strings.Contains(md.Body.String(), "From file") {
		t.Fatalf("expected file content to be published, got %q", md.Body.String())
	}
}

func TestConvert_TextLimitOnlyAppliesToText(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.AppConfig) {
		cfg.MaxTextSize = 32
	})

	rr := serve(router, multipartRequest(t, http.MethodPost, "/api/convert",
		map[string][]string{"text": {strings.Repeat("b", 64)}},
		formFile{field: "file", name: "notes.md", data: []byte("# From file\n")}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when a file is present, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestConvert_Errors(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.AppConfig) {
		cfg.MaxFileSize = 16
		cfg.MaxTextSize = 32
	})

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantBody   string
	}{
		{
			name:       "No input",
			req:        multipartRequest(t, http.MethodPost, "/api/convert", map[string][]string{"text": {"   "}}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "Provide file or text or url",
		},
		{
			name: "File too large",
			req: multipartRequest(t, http.MethodPost, "/api/convert", nil,
				formFile{field: "file", name: "big.md", data: bytes.Repeat([]byte("a"), 64)}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   "File too large",
		},
		{
			name:       "Text too large",
			req:        multipartRequest(t, http.MethodPost, "/api/convert", map[string][]string{"text": {strings.Repeat("b", 40)}}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   "Text too large",
		},
		{
			name: "Unsupported extension",
			req: multipartRequest(t, http.MethodPost, "/api/convert", nil,
				formFile{field: "file", name: "slides.pdf", data: []byte("%PDF")}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "Unsupported",
		},
		{
			name:       "Bad url scheme",
			req:        multipartRequest(t, http.MethodPost, "/api/convert", map[string][]string{"url": {"ftp://example.com/x"}}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "http or https",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(router, tt.req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Fatalf("expected body to contain %q, got %s", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestServeDocument_NotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/d/missing.html", "/d/missing.md"} {
		rr := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rr.Code)
		}
		if strings.TrimSpace(rr.Body.String()) != "Not found" {
			t.Fatalf("%s: unexpected body %q", path, rr.Body.String())
		}
	}
}

func convertText(t *testing.T, router http.Handler, text string) string {
	t.Helper()
	rr := serve(router, multipartRequest(t, http.MethodPost, "/api/convert", map[string][]string{"text": {text}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("convert failed: %d %s", rr.Code, rr.Body.String())
	}
	var result struct {
		ID string `json:"id"`
	}
	decodeBody(t, rr, &result)
	return result.ID
}

func TestCombine(t *testing.T) {
	router := newTestRouter(t, nil)
	first := convertText(t, router, "# One\n\nalpha")
	second := convertText(t, router, "# Two\n\nbeta")

	rr := serve(router, multipartRequest(t, http.MethodPost, "/api/combine", map[string][]string{
		"doc_ids":        {first, second},
		"titles":         {"First part", "Second part"},
		"combined_title": {"Bundle"},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result struct {
		ID            string   `json:"id"`
		PublicURL     string   `json:"public_url"`
		ComponentIDs  []string `json:"component_ids"`
		ComponentURLs []string `json:"component_urls"`
	}
	decodeBody(t, rr, &result)
	if len(result.ComponentIDs) != 2 || result.ComponentIDs[0] != first || result.ComponentIDs[1] != second {
		t.Fatalf("unexpected component ids %v", result.ComponentIDs)
	}
	if len(result.ComponentURLs) != 2 || !strings.HasSuffix(result.ComponentURLs[1], "/d/"+second+".html") {
		t.Fatalf("unexpected component urls %v", result.ComponentURLs)
	}

	md := serve(router, httptest.NewRequest(http.MethodGet, "/d/"+result.ID+".md", nil))
	body := md.Body.String()
	if !strings.HasPrefix(body, "# Bundle") {
		t.Fatalf("expected combined heading, got %q", body)
	}
	if strings.Index(body, "## First part") > strings.Index(body, "## Second part") {
		t.Fatalf("expected parts in request order, got %q", body)
	}
}

func TestCombine_Errors(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, multipartRequest(t, http.MethodPost, "/api/combine", map[string][]string{"combined_title": {"x"}}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without doc_ids, got %d", rr.Code)
	}

	first := convertText(t, router, "# One\n\nalpha")
	rr = serve(router, multipartRequest(t, http.MethodPost, "/api/combine", map[string][]string{
		"doc_ids": {first, "  "},
		"titles":  {"First part", "Second part"},
	}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a blank id, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Blank doc_id at position 1") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	rr = serve(router, multipartRequest(t, http.MethodPost, "/api/combine", map[string][]string{"doc_ids": {"nope"}}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Document not found: nope") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
