package chat

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"labchat/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 25

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// PresignedURLDuration is how long a presigned upload URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// ExtToMIME maps accepted file extensions to their MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".zip":  "application/zip",
}

// AllowedMIMETypes is the set of accepted MIME types, derived from ExtToMIME.
var AllowedMIMETypes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ExtToMIME))
	for _, mime := range ExtToMIME {
		m[mime] = struct{}{}
	}
	return m
}()

// BaseMIME strips parameters such as "; charset=utf-8" and lower-cases the type.
func BaseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// ValidateFileSize checks that fileSize is positive and within MaxAttachmentSize.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxAttachmentSizeMB)
	}

	return nil
}

// ValidateFileType checks that mimeType is accepted and agrees with the extension of fileName.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	base := BaseMIME(mimeType)

	if _, ok := AllowedMIMETypes[base]; !ok {
		return errs.NewError(errs.ErrFileTypeNotAllowed)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeNotAllowed)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != base {
		return errs.NewError(errs.ErrFileTypeNotAllowed)
	}

	return nil
}

// ValidateAttachmentRef checks a shared file reference: an absolute http(s) URL with a host
// and a non-blank name.
func ValidateAttachmentRef(rawURL, name string) *errs.CustomError {
	if strings.TrimSpace(name) == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}
