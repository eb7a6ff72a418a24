// Package files hands out presigned object storage URLs so clients upload and
// download documents without streaming them through the API.
package files

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Purpose is the first segment of every storage key
type Purpose string

const (
	PurposeLicense  Purpose = "license"
	PurposeDocument Purpose = "document"
	PurposeOCR      Purpose = "ocr"
)

// IsValid checks if the purpose is known
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeLicense, PurposeDocument, PurposeOCR:
		return true
	}
	return false
}

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/bmp":       true,
	"application/pdf": true,
}

// AllowedContentType reports whether files of contentType may be stored
func AllowedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return allowedContentTypes[ct]
}

const maxFileNameLength = 120

// CleanFileName keeps the base name of a client supplied file name and
// replaces characters that do not belong in an object key.
func CleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '?' || r == '#' || r == '%' || r == '&' || r < 0x20:
			b.WriteRune('_')
		case r == ' ':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if runes := []rune(out); len(runes) > maxFileNameLength {
		out = string(runes[len(runes)-maxFileNameLength:])
	}
	return out
}

// NewKey builds a storage key of the form <purpose>/<uuid>/<file name>
func NewKey(purpose Purpose, fileName string) (string, error) {
	if !purpose.IsValid() {
		return "", shared.NewDomainErrorf("INVALID_PURPOSE", "Unknown file purpose %q", purpose)
	}
	name := CleanFileName(fileName)
	if name == "" {
		return "", shared.NewDomainError("INVALID_FILE_NAME", "File name is required")
	}
	return string(purpose) + "/" + uuid.NewString() + "/" + name, nil
}

// ValidKey reports whether key has the shape NewKey produces
func ValidKey(key string) bool {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || !Purpose(parts[0]).IsValid() {
		return false
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return false
	}
	return parts[2] != "" && parts[2] != "." && parts[2] != ".."
}

// UploadInput requests a presigned upload
type UploadInput struct {
	Purpose     string `json:"purpose" binding:"required"`
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// Service issues presigned URLs
type Service struct {
	storage common.ObjectStorage
	expiry  time.Duration
	logger  *zap.Logger
}

// NewService creates a file service. expiry defaults to 15 minutes.
func NewService(storage common.ObjectStorage, expiry time.Duration, logger *zap.Logger) *Service {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Service{storage: storage, expiry: expiry, logger: logger}
}

// UploadURL returns a presigned PUT URL for a new object
func (s *Service) UploadURL(ctx context.Context, actor shared.Actor, input UploadInput) (*common.PresignedURL, error) {
	if !AllowedContentType(input.ContentType) {
		return nil, shared.NewDomainErrorf("INVALID_CONTENT_TYPE", "Content type %q is not allowed, use an image or PDF", input.ContentType)
	}
	key, err := NewKey(Purpose(strings.ToLower(input.Purpose)), input.FileName)
	if err != nil {
		return nil, err
	}
	u, err := s.storage.PresignUpload(ctx, key, input.ContentType, s.expiry)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Upload URL issued",
		zap.String("key", key),
		zap.String("user_id", actor.UserID.String()))
	return &u, nil
}

// DownloadURL returns a presigned GET URL for an existing object
func (s *Service) DownloadURL(ctx context.Context, actor shared.Actor, key string) (*common.PresignedURL, error) {
	if !ValidKey(key) {
		return nil, shared.NewDomainError("INVALID_KEY", "Malformed file key")
	}
	ok, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "File not found")
	}
	u, err := s.storage.PresignDownload(ctx, key, s.expiry)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Download URL issued",
		zap.String("key", key),
		zap.String("user_id", actor.UserID.String()))
	return &u, nil
}
