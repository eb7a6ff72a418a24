// Package ocr recognizes business licenses, bills of lading and ID cards from
// uploaded scans or files already in object storage.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/application/files"
	"github.com/freightport/backend/internal/domain/shared"
	ocrapi "github.com/freightport/backend/internal/infrastructure/ocr"
	"go.uber.org/zap"
)

// Recognizer runs document recognition on an image
type Recognizer interface {
	Recognize(ctx context.Context, docType ocrapi.DocumentType, image []byte) (*ocrapi.Result, error)
}

// RecognizeInput names either an uploaded file (Data) or a stored FileKey
type RecognizeInput struct {
	DocumentType string
	FileKey      string
	FileName     string
	ContentType  string
	Data         []byte
}

// ResultDTO is the recognition result returned to callers
type ResultDTO struct {
	DocumentType string            `json:"document_type"`
	FileKey      string            `json:"file_key,omitempty"`
	Fields       map[string]string `json:"fields"`
	Words        []string          `json:"words"`
}

// Service runs OCR
type Service struct {
	recognizer Recognizer
	storage    common.ObjectStorage
	logger     *zap.Logger
}

// NewService creates an OCR service. A nil recognizer means OCR is disabled.
func NewService(recognizer Recognizer, storage common.ObjectStorage, logger *zap.Logger) *Service {
	return &Service{recognizer: recognizer, storage: storage, logger: logger}
}

// Enabled reports whether a recognizer is configured
func (s *Service) Enabled() bool {
	return s.recognizer != nil
}

// Recognize stores an uploaded file under ocr/<uuid>/<name>, or loads the
// file at FileKey, and runs recognition on it.
func (s *Service) Recognize(ctx context.Context, actor shared.Actor, input RecognizeInput) (*ResultDTO, error) {
	if s.recognizer == nil {
		return nil, fmt.Errorf("%w: OCR is not enabled", shared.ErrServiceUnavailable)
	}
	docType := ocrapi.DocumentType(strings.ToUpper(strings.TrimSpace(input.DocumentType)))
	if !docType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_DOCUMENT_TYPE",
			"document_type must be BUSINESS_LICENSE, BILL_OF_LADING or ID_CARD, got %q", input.DocumentType)
	}

	image, key, err := s.source(ctx, input)
	if err != nil {
		return nil, err
	}

	res, err := s.recognizer.Recognize(ctx, docType, image)
	if err != nil {
		s.logger.Warn("OCR recognition failed",
			zap.String("document_type", string(docType)),
			zap.String("file_key", key),
			zap.Error(err))
		return nil, recognitionError(err)
	}

	s.logger.Info("Document recognized",
		zap.String("document_type", string(docType)),
		zap.String("file_key", key),
		zap.Int("fields", len(res.Fields)),
		zap.String("user_id", actor.UserID.String()))

	words := res.Words
	if words == nil {
		words = []string{}
	}
	return &ResultDTO{
		DocumentType: string(res.DocumentType),
		FileKey:      key,
		Fields:       res.Fields,
		Words:        words,
	}, nil
}

func (s *Service) source(ctx context.Context, input RecognizeInput) ([]byte, string, error) {
	if len(input.Data) > 0 {
		if input.ContentType != "" && !files.AllowedContentType(input.ContentType) {
			return nil, "", shared.NewDomainErrorf("INVALID_CONTENT_TYPE", "Content type %q is not allowed, use an image", input.ContentType)
		}
		if s.storage == nil {
			return input.Data, "", nil
		}
		name := input.FileName
		if files.CleanFileName(name) == "" {
			name = "upload"
		}
		key, err := files.NewKey(files.PurposeOCR, name)
		if err != nil {
			return nil, "", err
		}
		if err := s.storage.Upload(ctx, key, input.Data, input.ContentType); err != nil {
			return nil, "", err
		}
		return input.Data, key, nil
	}

	if input.FileKey == "" {
		return nil, "", shared.NewDomainError("INVALID_INPUT", "Either a file or file_key is required")
	}
	if !files.ValidKey(input.FileKey) {
		return nil, "", shared.NewDomainError("INVALID_KEY", "Malformed file key")
	}
	if s.storage == nil {
		return nil, "", fmt.Errorf("%w: object storage is not configured", shared.ErrServiceUnavailable)
	}
	data, _, err := s.storage.Download(ctx, input.FileKey)
	if err != nil {
		return nil, "", err
	}
	return data, input.FileKey, nil
}

func recognitionError(err error) error {
	var de *shared.DomainError
	switch {
	case errors.Is(err, ocrapi.ErrImageTooLarge):
		return shared.NewDomainError("INVALID_IMAGE", "Image exceeds 4MB")
	case errors.Is(err, shared.ErrUpstream):
		return err
	case errors.As(err, &de):
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
}
