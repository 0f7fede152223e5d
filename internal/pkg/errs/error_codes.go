/*
Package errs defines the application error type and its code table.

Codes are grouped by range: 1xxx request handling, 2xxx rooms and content,
3xxx sessions, 5xxx internal failures.
*/
package errs

// 1xxx: request handling
const (
	ErrInvalidParams         = 1001
	ErrUnsupportedMediaType  = 1002
	ErrInvalidJSONFormat     = 1003
	ErrExtraContentInBody    = 1004
	ErrFormParseFailed       = 1005
	ErrRequestEntityTooLarge = 1006
	ErrRateLimitExceeded     = 1007
)

// 2xxx: rooms and content
const (
	// ErrRoomKeyInvalid is returned when a room key is empty, too long or contains control characters.
	ErrRoomKeyInvalid = 2101

	// ErrHistoryLimitInvalid is returned for a non-numeric history limit.
	ErrHistoryLimitInvalid = 2102

	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge is returned when an upload exceeds MaxAttachmentSize.
	ErrFileSizeTooLarge = 2202

	// ErrFileTypeNotAllowed is returned when the declared or sniffed MIME type is not accepted.
	ErrFileTypeNotAllowed = 2203
)

// 3xxx: sessions
const (
	ErrDisplayNameInvalid = 3001

	// ErrSessionReplaced is sent to a connection whose roster entry was taken over by a newer join.
	ErrSessionReplaced = 3002
)

// 5xxx: internal
const (
	ErrUnknown = 5000

	ErrHistoryUnavailable = 5001

	// ErrFileStorageUnavailable is returned when object storage is not configured.
	ErrFileStorageUnavailable = 5002

	ErrFileStorageFailed = 5003
)
