package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_FormatsTemplate(t *testing.T) {
	err := NewError(ErrFileSizeTooLarge, 5)

	require.Equal(t, ErrFileSizeTooLarge, err.Code)
	require.Equal(t, "File is too large (max 5 MB).", err.Message)
	require.Equal(t, http.StatusRequestEntityTooLarge, err.Status)
}

func TestNewError_DefaultsStatusToOK(t *testing.T) {
	err := NewError(ErrSessionReplaced)
	require.Equal(t, http.StatusOK, err.Status)
}

func TestNewError_UnknownCode(t *testing.T) {
	err := NewError(424242)
	require.Equal(t, ErrUnknown, err.Code)
	require.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestCustomError_As(t *testing.T) {
	var wrapped error = NewError(ErrRoomKeyInvalid)

	var target *CustomError
	require.True(t, errors.As(wrapped, &target))
	require.Equal(t, ErrRoomKeyInvalid, target.Code)
}

func TestNewError_KeepsCause(t *testing.T) {
	req := require.New(t)
	cause := errors.New("connection refused")

	err := NewError(ErrHistoryUnavailable, cause)

	req.ErrorIs(err, cause)
	req.Equal("Chat history is temporarily unavailable.", err.Message)
	req.Contains(err.Error(), "connection refused")
}

func TestFromError(t *testing.T) {
	req := require.New(t)

	// Given a CustomError wrapped with context
	wrapped := fmt.Errorf("join lab: %w", NewError(ErrRoomKeyInvalid))
	req.Equal(ErrRoomKeyInvalid, FromError(wrapped).Code)

	// Given a plain error
	plain := FromError(errors.New("boom"))
	req.Equal(ErrUnknown, plain.Code)
	req.Equal(http.StatusInternalServerError, plain.Status)

	// Given nil
	req.Equal(ErrUnknown, FromError(nil).Code)
}
