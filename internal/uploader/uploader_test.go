package uploader

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droplink-app/droplink/internal/storage"
)

type putCall struct {
	key         string
	contentType string
	size        int
}

// fakeStore scripts PutObject failures and records every call.
type fakeStore struct {
	putErrs []error
	puts    []putCall
	deletes []string
	delErr  error
}

func (f *fakeStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	f.puts = append(f.puts, putCall{key: key, contentType: contentType, size: len(data)})
	if len(f.putErrs) == 0 {
		return nil
	}
	err := f.putErrs[0]
	f.putErrs = f.putErrs[1:]
	return err
}

func (f *fakeStore) HeadObject(ctx context.Context, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key}, nil
}

func (f *fakeStore) DeleteObject(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return f.delErr
}

var _ storage.ObjectStorage = (*fakeStore)(nil)

func newTestUploader(store storage.ObjectStorage, baseURL string) (*Uploader, *[]time.Duration) {
	u := New(store, baseURL)
	var sleeps []time.Duration
	u.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return u, &sleeps
}

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	unavailable := &storage.ResponseError{StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	store := &fakeStore{putErrs: []error{unavailable, unavailable}}
	u, sleeps := newTestUploader(store, "https://files.example.com/")

	result, err := u.Upload(context.Background(), writeArtifact(t, "artifact.zip", "zip bytes"))
	require.NoError(t, err)

	assert.Len(t, store.puts, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
	assert.Regexp(t, `^u/[0-9a-f]{8}_artifact\.zip$`, result.Key)
	assert.Equal(t, "https://files.example.com/"+result.Key, result.URL)
	assert.Equal(t, int64(len("zip bytes")), result.Size)
	assert.Equal(t, "application/zip", store.puts[0].contentType)
}

func TestUploadFailsFastOnPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *storage.ResponseError
	}{
		{"forbidden", &storage.ResponseError{StatusCode: http.StatusForbidden, Status: "403 Forbidden", Body: "access denied"}},
		{"internal error", &storage.ResponseError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"}},
		{"request timeout", &storage.ResponseError{StatusCode: http.StatusRequestTimeout, Status: "408 Request Timeout"}},
		{"rate limited with retry text", &storage.ResponseError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests", Body: "please retry later"}},
		{"connection text in body", &storage.ResponseError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error", Body: "connection reset by upstream"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{putErrs: []error{tt.err, tt.err, tt.err}}
			u, sleeps := newTestUploader(store, "https://files.example.com")

			_, err := u.Upload(context.Background(), writeArtifact(t, "a.pdf", "x"))

			require.Error(t, err)
			assert.Len(t, store.puts, 1)
			assert.Empty(t, *sleeps)

			var respErr *storage.ResponseError
			require.ErrorAs(t, err, &respErr)
			assert.Equal(t, tt.err.StatusCode, respErr.StatusCode)
		})
	}
}

func TestUploadExhaustsAttempts(t *testing.T) {
	reset := errors.New("write tcp 127.0.0.1:443: connection reset by peer")
	store := &fakeStore{putErrs: []error{reset, reset, reset}}
	u, sleeps := newTestUploader(store, "https://files.example.com")

	_, err := u.Upload(context.Background(), writeArtifact(t, "a.pdf", "x"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, store.puts, 3)
	assert.Len(t, *sleeps, 2)
}

func TestUploadMissingArtifact(t *testing.T) {
	store := &fakeStore{}
	u, _ := newTestUploader(store, "https://files.example.com")

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.zip"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read artifact")
	assert.Empty(t, store.puts)
}

func TestValidateCredentials(t *testing.T) {
	t.Run("success cleans up probe", func(t *testing.T) {
		store := &fakeStore{}
		u, _ := newTestUploader(store, "https://files.example.com")

		require.NoError(t, u.ValidateCredentials(context.Background()))
		require.Len(t, store.puts, 1)
		assert.Equal(t, connectionTestKey, store.puts[0].key)
		assert.Equal(t, "text/plain", store.puts[0].contentType)
		assert.Equal(t, []string{connectionTestKey}, store.deletes)
	})

	t.Run("auth failure still deletes probe", func(t *testing.T) {
		denied := &storage.ResponseError{StatusCode: http.StatusForbidden, Status: "403 Forbidden"}
		store := &fakeStore{putErrs: []error{denied}}
		u, _ := newTestUploader(store, "https://files.example.com")

		err := u.ValidateCredentials(context.Background())
		require.EqualError(t, err, "invalid storage credentials")
		assert.Equal(t, []string{connectionTestKey}, store.deletes)
	})

	t.Run("timeout", func(t *testing.T) {
		store := &fakeStore{putErrs: []error{errors.New("dial tcp 10.0.0.1:443: i/o timeout")}}
		u, _ := newTestUploader(store, "")

		err := u.ValidateCredentials(context.Background())
		require.EqualError(t, err, "connection timed out - please try again")
	})

	t.Run("refused", func(t *testing.T) {
		store := &fakeStore{putErrs: []error{errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")}}
		u, _ := newTestUploader(store, "")

		err := u.ValidateCredentials(context.Background())
		require.EqualError(t, err, "connection failed - check your network")
	})
}

func TestDelete(t *testing.T) {
	store := &fakeStore{delErr: &storage.ResponseError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"}}
	u, _ := newTestUploader(store, "")

	err := u.Delete(context.Background(), "u/abc_def.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u/abc_def.zip")
	assert.Len(t, store.deletes, 1)

	store.delErr = nil
	require.NoError(t, u.Delete(context.Background(), "u/abc_def.zip"))
	assert.Len(t, store.deletes, 2)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad gateway status", &storage.ResponseError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}, true},
		{"service unavailable status", &storage.ResponseError{StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}, true},
		{"gateway timeout status", &storage.ResponseError{StatusCode: http.StatusGatewayTimeout, Status: "504 Gateway Timeout"}, true},
		{"forbidden status", &storage.ResponseError{StatusCode: http.StatusForbidden, Status: "403 Forbidden"}, false},
		{"request timeout status", &storage.ResponseError{StatusCode: http.StatusRequestTimeout, Status: "408 Request Timeout"}, false},
		{"rate limit with retry text in body", &storage.ResponseError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests", Body: "please retry later"}, false},
		{"internal error status", &storage.ResponseError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"}, false},
		{"connection text in body", &storage.ResponseError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error", Body: "connection reset by upstream"}, false},
		{"timeout text", errors.New("dial tcp: i/o timeout"), true},
		{"temporarily text", errors.New("service temporarily overloaded"), true},
		{"plain failure", errors.New("bucket does not exist"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestDeriveObjectKey(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"My File (1).png", `^u/[0-9a-f]{8}_My_File__1_\.png$`},
		{"report.PDF", `^u/[0-9a-f]{8}_report\.pdf$`},
		{"noext", `^u/[0-9a-f]{8}_noext\.bin$`},
		{"archive_deadbeef.zip", `^u/[0-9a-f]{8}_archive_deadbeef\.zip$`},
		{"семейное фото.jpg", `^u/[0-9a-f]{8}_+\.jpg$`},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Regexp(t, tt.want, deriveObjectKey(tt.filename))
		})
	}
}

func TestDeriveObjectKeyUnique(t *testing.T) {
	assert.NotEqual(t, deriveObjectKey("a.txt"), deriveObjectKey("a.txt"))
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"u/a_b.zip", "application/zip"},
		{"u/a_b.webp", "image/webp"},
		{"u/a_b.jpg", "image/jpeg"},
		{"u/a_b.jpeg", "image/jpeg"},
		{"u/a_b.png", "image/png"},
		{"u/a_b.gif", "image/gif"},
		{"u/a_b.pdf", "application/pdf"},
		{"u/a_b.mp4", "video/mp4"},
		{"u/a_b.mov", "video/quicktime"},
		{"u/a_b.bin", "application/octet-stream"},
		{"u/a_b.txt", "application/octet-stream"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, contentTypeFor(tt.key), tt.key)
	}
}
