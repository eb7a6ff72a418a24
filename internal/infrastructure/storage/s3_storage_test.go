package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	_, err := NewS3ObjectStorage(nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3ObjectStorage(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3ObjectStorage(&config.StorageConfig{Bucket: "fp", SecretKey: "s"})
	assert.ErrorContains(t, err, "access key")

	s, err := NewS3ObjectStorage(&config.StorageConfig{
		Bucket:    "fp",
		AccessKey: "k",
		SecretKey: "s",
		Endpoint:  "minio.local:9000",
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, "fp", s.Bucket())
	assert.Equal(t, 15*time.Minute, s.presignExpiry)
	assert.Equal(t, int64(10<<20), s.maxObjectSize)
}

func newTestS3(t *testing.T, endpoint string) *S3ObjectStorage {
	t.Helper()
	s, err := NewS3ObjectStorage(&config.StorageConfig{
		Bucket:        "freightport",
		AccessKey:     "test-key",
		SecretKey:     "test-secret",
		Region:        "us-east-1",
		Endpoint:      endpoint,
		UsePathStyle:  true,
		PresignExpiry: 10 * time.Minute,
	})
	require.NoError(t, err)
	return s
}

func TestS3ObjectStorage_Presign(t *testing.T) {
	s := newTestS3(t, "http://localhost:9000")
	ctx := context.Background()

	_, err := s.PresignUpload(ctx, "", "image/png", 0)
	assert.ErrorIs(t, err, errKeyRequired)

	up, err := s.PresignUpload(ctx, "license/abc/scan.png", "image/png", 0)
	require.NoError(t, err)
	assert.Contains(t, up.URL, "localhost:9000/freightport/license/abc/scan.png")
	assert.Contains(t, up.URL, "X-Amz-Signature=")
	assert.Equal(t, "license/abc/scan.png", up.Key)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), up.ExpiresAt, 5*time.Second)

	down, err := s.PresignDownload(ctx, "bills/INV-2026-00001.pdf", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, down.URL, "bills/INV-2026-00001.pdf")
	assert.Contains(t, down.URL, "X-Amz-Expires=3600")
}

// fakeS3 serves path-style object requests from a map
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/freightport/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3ObjectStorage_ObjectLifecycle(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{objects: map[string][]byte{}, types: map[string]string{}})
	defer srv.Close()
	s := newTestS3(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "ocr/1/license.jpg", []byte("jpeg-bytes"), "image/jpeg"))

	exists, err := s.Exists(ctx, "ocr/1/license.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	data, contentType, err := s.Download(ctx, "ocr/1/license.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", contentType)

	require.NoError(t, s.Delete(ctx, "ocr/1/license.jpg"))

	exists, err = s.Exists(ctx, "ocr/1/license.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = s.Download(ctx, "ocr/1/license.jpg")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestS3ObjectStorage_DownloadLimit(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{
		objects: map[string][]byte{"big.bin": []byte(strings.Repeat("x", 64))},
		types:   map[string]string{"big.bin": "application/octet-stream"},
	})
	defer srv.Close()
	s := newTestS3(t, srv.URL)
	s.maxObjectSize = 32

	_, _, err := s.Download(context.Background(), "big.bin")
	assert.ErrorContains(t, err, "exceeds 32 bytes")
}
