package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/shared"
)

type stubObject struct {
	data        []byte
	contentType string
}

// StubObjectStorage keeps objects in memory and hands out fake URLs. It is
// used when S3 is not configured and in tests.
type StubObjectStorage struct {
	BaseURL string
	Expiry  time.Duration

	mu      sync.RWMutex
	objects map[string]stubObject
}

// NewStubObjectStorage creates an empty stub store
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{
		BaseURL: "https://storage.local",
		Expiry:  15 * time.Minute,
		objects: make(map[string]stubObject),
	}
}

func (s *StubObjectStorage) presign(op, key string, expiresIn time.Duration) (common.PresignedURL, error) {
	if key == "" {
		return common.PresignedURL{}, errKeyRequired
	}
	if expiresIn <= 0 {
		expiresIn = s.Expiry
	}
	expiresAt := time.Now().Add(expiresIn)
	u := s.BaseURL + "/" + op + "/" + url.PathEscape(key) + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return common.PresignedURL{URL: u, Key: key, ExpiresAt: expiresAt}, nil
}

// PresignUpload returns a fake upload URL
func (s *StubObjectStorage) PresignUpload(_ context.Context, key, _ string, expiresIn time.Duration) (common.PresignedURL, error) {
	return s.presign("upload", key, expiresIn)
}

// PresignDownload returns a fake download URL
func (s *StubObjectStorage) PresignDownload(_ context.Context, key string, expiresIn time.Duration) (common.PresignedURL, error) {
	return s.presign("download", key, expiresIn)
}

// Upload stores a copy of data
func (s *StubObjectStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = stubObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Download returns a stored object or shared.ErrNotFound
func (s *StubObjectStorage) Download(_ context.Context, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", errKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", shared.ErrNotFound
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

// Exists reports whether key was uploaded
func (s *StubObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Delete removes key
func (s *StubObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

var _ common.ObjectStorage = (*StubObjectStorage)(nil)
