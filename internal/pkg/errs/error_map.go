package errs

import "net/http"

// errorMap holds the template for every code. A zero Status means HTTP 200 with the code in the body.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Malformed JSON body.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrRoomKeyInvalid:        {Code: ErrRoomKeyInvalid, Message: "Invalid room key.", Status: http.StatusBadRequest},
	ErrHistoryLimitInvalid:   {Code: ErrHistoryLimitInvalid, Message: "Invalid history limit.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB).", Status: http.StatusRequestEntityTooLarge},
	ErrFileTypeNotAllowed:    {Code: ErrFileTypeNotAllowed, Message: "This file type is not allowed.", Status: http.StatusUnsupportedMediaType},

	ErrDisplayNameInvalid: {Code: ErrDisplayNameInvalid, Message: "Display name must be 1-64 characters.", Status: http.StatusBadRequest},
	ErrSessionReplaced:    {Code: ErrSessionReplaced, Message: "You joined this room from another connection."},

	ErrUnknown:                {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrHistoryUnavailable:     {Code: ErrHistoryUnavailable, Message: "Chat history is temporarily unavailable.", Status: http.StatusServiceUnavailable},
	ErrFileStorageUnavailable: {Code: ErrFileStorageUnavailable, Message: "File sharing is not configured on this server.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed:      {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
}
