package files

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"license.jpg", "license.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\scans\bill of lading.pdf`, "bill-of-lading.pdf"},
		{"a?b#c.png", "a_b_c.png"},
		{"  ", ""},
		{"..", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanFileName(tt.in), tt.in)
	}
}

func TestNewKey(t *testing.T) {
	key, err := NewKey(PurposeLicense, "scan.png")
	require.NoError(t, err)
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "license", parts[0])
	_, err = uuid.Parse(parts[1])
	assert.NoError(t, err)
	assert.Equal(t, "scan.png", parts[2])
	assert.True(t, ValidKey(key))

	_, err = NewKey("avatar", "me.png")
	assert.Error(t, err)
	_, err = NewKey(PurposeOCR, "")
	assert.Error(t, err)

	assert.False(t, ValidKey("license/not-a-uuid/scan.png"))
	assert.False(t, ValidKey("bills/"+uuid.NewString()+"/x.pdf"))
	assert.False(t, ValidKey("license/"+uuid.NewString()+"/a/b.png"))
}

func TestAllowedContentType(t *testing.T) {
	assert.True(t, AllowedContentType("image/jpeg"))
	assert.True(t, AllowedContentType("application/pdf; charset=binary"))
	assert.True(t, AllowedContentType("IMAGE/PNG"))
	assert.False(t, AllowedContentType("text/html"))
	assert.False(t, AllowedContentType(""))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStubObjectStorage()
	svc := NewService(store, 10*time.Minute, zaptest.NewLogger(t))
	actor := shared.Actor{UserID: uuid.New(), Role: shared.RoleCustomer}

	t.Run("upload url", func(t *testing.T) {
		before := time.Now()
		u, err := svc.UploadURL(ctx, actor, UploadInput{Purpose: "Document", FileName: "bl.pdf", ContentType: "application/pdf"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u.Key, "document/"))
		assert.True(t, strings.HasSuffix(u.Key, "/bl.pdf"))
		assert.Contains(t, u.URL, "/upload/")
		assert.WithinDuration(t, before.Add(10*time.Minute), u.ExpiresAt, 5*time.Second)
	})

	t.Run("rejects content type", func(t *testing.T) {
		_, err := svc.UploadURL(ctx, actor, UploadInput{Purpose: "license", FileName: "x.exe", ContentType: "application/octet-stream"})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_CONTENT_TYPE", de.Code)
	})

	t.Run("download url", func(t *testing.T) {
		key, err := NewKey(PurposeLicense, "scan.png")
		require.NoError(t, err)

		_, err = svc.DownloadURL(ctx, actor, key)
		assert.True(t, shared.IsNotFound(err))

		require.NoError(t, store.Upload(ctx, key, []byte("png"), "image/png"))
		u, err := svc.DownloadURL(ctx, actor, key)
		require.NoError(t, err)
		assert.Equal(t, key, u.Key)
		assert.Contains(t, u.URL, "/download/")

		_, err = svc.DownloadURL(ctx, actor, "../secrets")
		assert.Error(t, err)
	})
}
