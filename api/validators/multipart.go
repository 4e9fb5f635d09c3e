package validators

import (
	"errors"
	"io"
	"net/http"

	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

const multipartOverhead = 1 << 20

// MultipartLimit is the largest body accepted for a form carrying one file of
// up to maxFileBytes.
func MultipartLimit(maxFileBytes int64) int64 {
	return maxFileBytes + multipartOverhead
}

// ParseMultipart parses a multipart form whose single file part may be up to
// maxFileBytes. Larger bodies are rejected before they are buffered.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxFileBytes int64) error {
	limit := MultipartLimit(maxFileBytes)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "proof image too large").
				WithDetails(map[string]any{"max_bytes": maxFileBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormFileBytes reads the named file part. A missing part is a validation
// error; content checks belong to the caller.
func FormFileBytes(r *http.Request, field string, maxBytes int64) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" file is required").
				WithDetails(map[string]any{"field": field})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field+" file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read "+field+" file")
	}
	return data, nil
}

// FormValue returns a sanitized form field capped at maxLen runes.
func FormValue(r *http.Request, field string, maxLen int) string {
	return SanitizeString(r.FormValue(field), maxLen)
}

// OptionalFormValue returns nil for an absent or blank field.
func OptionalFormValue(r *http.Request, field string, maxLen int) *string {
	value := FormValue(r, field, maxLen)
	if value == "" {
		return nil
	}
	return &value
}
