/*
Package req binds JSON and multipart request bodies, mapping failures to errs codes.
*/
package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"labchat/internal/pkg/errs"
)

const (
	// MaxFormMemory is the in-memory budget of ParseMultipartForm; larger parts spill to temp files.
	MaxFormMemory int64 = 8 << 20

	// MaxRequestFileSize caps the whole multipart body.
	MaxRequestFileSize int64 = 26 << 20

	// MaxJSONBody caps JSON request bodies.
	MaxJSONBody int64 = 64 << 10
)

// BindJSON decodes a single JSON object from the body into dst, rejecting unknown fields.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart parses a multipart body bounded by MaxRequestFileSize.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	err := r.ParseMultipartForm(MaxFormMemory)

	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}

		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}
