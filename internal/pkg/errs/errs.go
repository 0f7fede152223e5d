package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"labchat/internal/pkg/logx"
)

// CustomError carries an application code, a client-facing message and the HTTP status to answer with.
// Cause keeps the underlying failure for logs; it never reaches clients.
type CustomError struct {
	Code    int
	Message string
	Status  int
	Cause   error
}

// Error implements error.
func (e CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("error code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e CustomError) Unwrap() error {
	return e.Cause
}

// NewError builds a *CustomError from the code table.
// An error among details becomes the Cause; the remaining details fill a templated message.
// Unknown codes collapse to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	template, ok := errorMap[code]
	if !ok {
		logx.Warn("Unknown error code requested", "requested_code", code)
		template = errorMap[ErrUnknown]
	}

	customErr := template
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	args := make([]any, 0, len(details))
	for _, d := range details {
		if err, isErr := d.(error); isErr && customErr.Cause == nil {
			customErr.Cause = err
			continue
		}
		args = append(args, d)
	}

	if len(args) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, args...)
		} else {
			logx.Warn("Error details ignored, message has no placeholders", "code", customErr.Code)
		}
	}

	return &customErr
}

// FromError returns the *CustomError inside err, or an ErrUnknown wrapping err.
// A nil err also yields ErrUnknown.
func FromError(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) && customErr != nil {
		return customErr
	}
	if err == nil {
		return NewError(ErrUnknown)
	}
	return NewError(ErrUnknown, err)
}
