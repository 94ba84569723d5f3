package domain

import (
	"testing"
)

// TestConvertInput_Kind tests the file > text > url precedence.
func TestConvertInput_Kind(t *testing.T) {
	tests := []struct {
		name  string
		input ConvertInput
		want  InputKind
	}{
		{
			name:  "Empty input",
			input: ConvertInput{},
			want:  InputNone,
		},
		{
			name:  "Whitespace only text and url",
			input: ConvertInput{Text: "   \n", URL: "  "},
			want:  InputNone,
		},
		{
			// File wins when every field is set
			name:  "All fields set",
			input: ConvertInput{File: []byte("# hi"), FileName: "a.md", Text: "text", URL: "https://example.com"},
			want:  InputFile,
		},
		{
			name:  "Text and url",
			input: ConvertInput{Text: "hello", URL: "https://example.com"},
			want:  InputText,
		},
		{
			name:  "Url only",
			input: ConvertInput{URL: "https://example.com/report"},
			want:  InputURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertInput_DisplayName(t *testing.T) {
	tests := []struct {
		name  string
		input ConvertInput
		want  string
	}{
		{"File strips directory and extension", ConvertInput{File: []byte("x"), FileName: "/tmp/q3-report.docx"}, "q3-report"},
		{"Dotfile keeps name", ConvertInput{File: []byte("x"), FileName: ".notes"}, ".notes"},
		{"Text uses first heading", ConvertInput{Text: "# Weekly update\n\nbody"}, "Weekly update"},
		{"Blank heading falls back", ConvertInput{Text: "#\nbody"}, "Pasted text"},
		{"Url is used verbatim", ConvertInput{URL: " https://example.com/a "}, "https://example.com/a"},
		{"Nothing", ConvertInput{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDocument_Validate tests the checks applied before persistence.
func TestDocument_Validate(t *testing.T) {
	md := "body"
	bad := "a\x00b"

	tests := []struct {
		name    string
		doc     Document
		wantErr string
	}{
		{"Valid document", Document{ID: "abc", SourceType: "md", HTMLBody: "<p>body</p>", MarkdownBody: &md}, ""},
		{"Missing ID", Document{SourceType: "md"}, "id: document ID is required"},
		{"Missing source type", Document{ID: "abc"}, "source_type: source type is required"},
		{"NUL in html", Document{ID: "abc", SourceType: "md", HTMLBody: bad}, "html_body: html body contains NUL bytes"},
		{"NUL in markdown", Document{ID: "abc", SourceType: "md", MarkdownBody: &bad}, "md_body: markdown body contains NUL bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCombinedResult_Clone(t *testing.T) {
	orig := &CombinedResult{ID: "c", ComponentIDs: []string{"a", "b"}, ComponentURLs: []string{"u1", "u2"}}
	cp := orig.Clone()
	cp.ComponentIDs[0] = "changed"
	if orig.ComponentIDs[0] != "a" {
		t.Fatalf("clone shares backing array with original")
	}
	var nilResult *CombinedResult
	if nilResult.Clone() != nil {
		t.Fatalf("expected nil clone of nil result")
	}
}
