package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"
)

const (
	// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
	multipartMemory = 8 << 20
	formOverhead    = 1 << 20
)

// parseForm reads a multipart or urlencoded body no larger than limit.
func parseForm(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return apperrors.NewSizeLimitError("Request too large. Maximum upload size is "+formatMB(limit), r.ContentLength, limit)
	}
	return apperrors.NewInvalidInputError("Invalid form data")
}

// readConvertInput builds a ConvertInput from the file, text and url form fields.
// The form must already be parsed.
func readConvertInput(r *http.Request, maxFileSize, maxTextSize int64) (domain.ConvertInput, error) {
	var input domain.ConvertInput

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > maxFileSize {
			return input, apperrors.NewSizeLimitError("File too large. Maximum upload size is "+formatMB(maxFileSize), header.Size, maxFileSize)
		}
		data, err := io.ReadAll(io.LimitReader(file, maxFileSize+1))
		if err != nil {
			return input, apperrors.NewInvalidInputError("Failed to read uploaded file")
		}
		if int64(len(data)) > maxFileSize {
			return input, apperrors.NewSizeLimitError("File too large. Maximum upload size is "+formatMB(maxFileSize), int64(len(data)), maxFileSize)
		}
		input.File = data
		input.FileName = header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return input, apperrors.NewInvalidInputError("Invalid file upload")
	}

	input.Text = r.FormValue("text")
	input.URL = strings.TrimSpace(r.FormValue("url"))

	switch input.Kind() {
	case domain.InputNone:
		return input, apperrors.NewInvalidInputError("Provide file or text or url")
	case domain.InputText:
		if int64(len(input.Text)) > maxTextSize {
			return input, apperrors.NewSizeLimitError("Text too large. Maximum size is "+formatMB(maxTextSize), int64(len(input.Text)), maxTextSize)
		}
	case domain.InputFile:
		// A file wins over text; the ignored text is not carried along.
		input.Text = ""
	}
	return input, nil
}

func formatMB(n int64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d bytes", n)
	case n < 1<<20:
		return fmt.Sprintf("%d KB", n>>10)
	case n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
}
