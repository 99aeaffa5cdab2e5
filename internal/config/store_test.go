package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "droplink"))
	require.NoError(t, err)
	return store
}

func validStorageConfig() StorageConfig {
	return StorageConfig{
		AccessKey:     "AKIATEST",
		SecretKey:     "secret",
		Bucket:        "drops",
		AccountID:     "abc123",
		PublicBaseURL: "https://files.example.com",
	}
}

func TestStorageConfigRoundtrip(t *testing.T) {
	store := newTestStore(t)

	_, err := store.StorageConfig()
	require.ErrorIs(t, err, ErrNotConfigured)

	cfg := validStorageConfig()
	require.NoError(t, store.SaveStorageConfig(cfg))

	got, err := store.StorageConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestSaveStorageConfigRejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	require.Error(t, store.SaveStorageConfig(StorageConfig{}))

	_, err := store.StorageConfig()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCredentialsFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	store := newTestStore(t)
	require.NoError(t, store.SaveStorageConfig(validStorageConfig()))

	info, err := os.Stat(filepath.Join(store.dir, credentialsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestClearStorageConfig(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveStorageConfig(validStorageConfig()))
	require.NoError(t, store.ClearStorageConfig())

	_, err := store.StorageConfig()
	assert.ErrorIs(t, err, ErrNotConfigured)

	// clearing again is not an error
	assert.NoError(t, store.ClearStorageConfig())
}

func TestSettingsDefaultToDemoMode(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.Settings()
	require.NoError(t, err)
	assert.True(t, settings.DemoMode)

	require.NoError(t, store.SaveSettings(Settings{DemoMode: false}))

	settings, err = store.Settings()
	require.NoError(t, err)
	assert.False(t, settings.DemoMode)
}

func TestStatus(t *testing.T) {
	store := newTestStore(t)

	status, err := store.Status()
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.True(t, status.DemoMode)
	assert.Empty(t, status.Bucket)

	require.NoError(t, store.SaveStorageConfig(validStorageConfig()))
	require.NoError(t, store.SaveSettings(Settings{DemoMode: false}))

	status, err = store.Status()
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.False(t, status.DemoMode)
	assert.Equal(t, "drops", status.Bucket)
	assert.Equal(t, "abc123", status.AccountID)
}

func TestStatusNeverExposesSecret(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveStorageConfig(validStorageConfig()))

	status, err := store.Status()
	require.NoError(t, err)

	data, err := json.Marshal(status)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "AKIATEST")
}

func TestStorageConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StorageConfig)
		wantErr string
	}{
		{"valid", func(c *StorageConfig) {}, ""},
		{"endpoint substitutes account id", func(c *StorageConfig) {
			c.AccountID = ""
			c.Endpoint = "http://127.0.0.1:9000"
		}, ""},
		{"missing access key", func(c *StorageConfig) { c.AccessKey = "" }, "access key"},
		{"missing secret key", func(c *StorageConfig) { c.SecretKey = "" }, "secret key"},
		{"missing bucket", func(c *StorageConfig) { c.Bucket = "" }, "bucket"},
		{"missing account id", func(c *StorageConfig) { c.AccountID = "" }, "account id"},
		{"missing public url", func(c *StorageConfig) { c.PublicBaseURL = "" }, "public url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validStorageConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
