package common

import (
	"context"
	"time"
)

// PresignedURL is a time-limited URL for direct client access to an object
type PresignedURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ObjectStorage stores files such as license scans, OCR sources and bill PDFs
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string, expiresIn time.Duration) (PresignedURL, error)
	PresignDownload(ctx context.Context, key string, expiresIn time.Duration) (PresignedURL, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Download returns the object body and its content type
	Download(ctx context.Context, key string) ([]byte, string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
