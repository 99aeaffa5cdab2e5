// internal/uploader/uploader.go
package uploader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/droplink-app/droplink/internal/domain"
	"github.com/droplink-app/droplink/internal/storage"
)

const (
	maxAttempts       = 3
	initialRetryDelay = 1000 * time.Millisecond

	// connectionTestKey is the throwaway object written by ValidateCredentials.
	connectionTestKey = ".droplink-connection-test"
)

// transientIndicators mark provider errors worth retrying when the failure
// carries no usable status code.
var transientIndicators = []string{
	"timeout",
	"connection",
	"temporarily",
	"network",
	"retry",
	"502",
	"503",
	"504",
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Uploader pushes processed artifacts to object storage and shapes the
// public URLs handed back to callers.
type Uploader struct {
	store   storage.ObjectStorage
	baseURL string

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// New returns an Uploader that serves public links under publicBaseURL.
func New(store storage.ObjectStorage, publicBaseURL string) *Uploader {
	return &Uploader{
		store:   store,
		baseURL: publicBaseURL,
		sleep:   time.Sleep,
	}
}

// Upload reads the artifact at path and stores it under a fresh object key.
// Transient failures are retried up to maxAttempts with a doubling delay;
// anything else aborts immediately.
func (u *Uploader) Upload(ctx context.Context, path string) (*domain.UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	key := deriveObjectKey(filepath.Base(path))
	contentType := contentTypeFor(key)

	delay := initialRetryDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			log.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("key", key).
				Msg("Retrying upload")
			u.sleep(delay)
			delay *= 2
		}

		err := u.store.PutObject(ctx, key, data, contentType)
		if err == nil {
			log.Info().Str("key", key).Int("size", len(data)).Msg("Upload complete")
			return &domain.UploadResult{
				URL:  joinURL(u.baseURL, key),
				Key:  key,
				Size: int64(len(data)),
			}, nil
		}

		if !isTransient(err) {
			return nil, fmt.Errorf("upload failed: %w", err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("upload failed after %d attempts: %w", maxAttempts, lastErr)
}

// ValidateCredentials round-trips a tiny probe object to prove the configured
// credentials can write to the bucket. The probe is deleted afterwards even
// when the write fails.
func (u *Uploader) ValidateCredentials(ctx context.Context) error {
	err := u.store.PutObject(ctx, connectionTestKey, []byte("test"), "text/plain")

	if delErr := u.store.DeleteObject(ctx, connectionTestKey); delErr != nil {
		log.Debug().Err(delErr).Msg("Connection test cleanup failed")
	}

	if err == nil {
		return nil
	}
	return categorizeCredentialError(err)
}

// Delete removes a previously uploaded object. Unlike Upload it makes a
// single attempt; callers decide whether a failed delete matters.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if err := u.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// isTransient reports whether err looks like a temporary provider or network
// condition. A completed response is judged by its status code alone; the
// indicator scan covers only transport-level errors, so status lines and
// response bodies never trigger a retry.
func isTransient(err error) bool {
	var respErr *storage.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range transientIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// categorizeCredentialError collapses a connection-test failure into one of
// three user-facing messages. The raw provider text is logged, not returned.
func categorizeCredentialError(err error) error {
	log.Debug().Err(err).Msg("Connection test failed")

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return errors.New("connection timed out - please try again")
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "network"):
		return errors.New("connection failed - check your network")
	default:
		return errors.New("invalid storage credentials")
	}
}

// deriveObjectKey builds the remote key u/<id>_<stem>.<ext> for an artifact
// file name. The stem keeps only [a-zA-Z0-9_-] so the key never needs URL
// escaping; a missing extension becomes "bin".
func deriveObjectKey(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	if ext == "" {
		ext = "bin"
	}
	stem = keySanitizer.ReplaceAllString(stem, "_")

	return fmt.Sprintf("u/%s_%s.%s", uuid.NewString()[:8], stem, ext)
}

// contentTypeFor maps the object key extension to the Content-Type header
// sent with the upload.
func contentTypeFor(key string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(key), ".")) {
	case "webp":
		return "image/webp"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "pdf":
		return "application/pdf"
	case "zip":
		return "application/zip"
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
