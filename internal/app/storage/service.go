/*
Package storage stores shared chat files in S3-compatible object storage.

Files are either uploaded by the browser through a presigned PUT URL or streamed through the
server with Upload. Either way the chat only ever references them by their public URL.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// S3PublicURL is the base URL objects are served from, e.g. a CDN in front of the bucket.
	S3PublicURL string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// Upload streams body to key.
	Upload(ctx context.Context, key string, mimeType string, body io.Reader) error

	// PublicURL returns the URL clients use to fetch key.
	PublicURL(key string) string
}

// NewStorageService is the factory function for StorageService.
// Only S3 compatible implementations are supported.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
