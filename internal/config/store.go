// internal/config/store.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	credentialsFile = "credentials.json"
	settingsFile    = "settings.json"
)

// ErrNotConfigured is returned when remote mode is requested before storage
// credentials have been saved.
var ErrNotConfigured = errors.New("storage credentials not configured")

// StorageConfig is the persisted shape of the user's bucket credentials.
type StorageConfig struct {
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	Bucket        string `json:"bucket_name"`
	AccountID     string `json:"account_id"`
	PublicBaseURL string `json:"public_url_base"`
	// Endpoint substitutes the account-derived R2 endpoint, mainly for
	// self-hosted S3-compatible services.
	Endpoint string `json:"endpoint,omitempty"`
}

// Validate checks that every field required to reach the bucket is present.
func (c StorageConfig) Validate() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("access key and secret key are required")
	}
	if c.Bucket == "" {
		return errors.New("bucket name is required")
	}
	if c.AccountID == "" && c.Endpoint == "" {
		return errors.New("account id is required")
	}
	if c.PublicBaseURL == "" {
		return errors.New("public url base is required")
	}
	return nil
}

// Settings holds user preferences that are safe to expose.
type Settings struct {
	DemoMode bool `json:"demo_mode"`
}

// StorageStatus describes the configured storage without leaking the secret.
type StorageStatus struct {
	Configured bool   `json:"configured"`
	DemoMode   bool   `json:"demo_mode"`
	Bucket     string `json:"bucket_name,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
}

// Store persists credentials and settings as JSON files under a single
// directory. All methods are safe for concurrent use.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// SaveStorageConfig writes credentials.json with owner-only permissions.
func (s *Store) SaveStorageConfig(cfg StorageConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(credentialsFile, cfg, 0o600)
}

// StorageConfig loads the saved credentials, or ErrNotConfigured when none
// have been saved yet.
func (s *Store) StorageConfig() (StorageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg StorageConfig
	if err := s.readJSON(credentialsFile, &cfg); err != nil {
		if os.IsNotExist(err) {
			return StorageConfig{}, ErrNotConfigured
		}
		return StorageConfig{}, err
	}
	return cfg, nil
}

// ClearStorageConfig removes saved credentials. Clearing twice is fine.
func (s *Store) ClearStorageConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, credentialsFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// Settings returns saved preferences. A missing file means demo mode, so
// first runs never upload anywhere.
func (s *Store) Settings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var settings Settings
	if err := s.readJSON(settingsFile, &settings); err != nil {
		if os.IsNotExist(err) {
			return Settings{DemoMode: true}, nil
		}
		return Settings{}, err
	}
	return settings, nil
}

func (s *Store) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(settingsFile, settings, 0o644)
}

// Status reports what a client needs to render the storage screen.
func (s *Store) Status() (StorageStatus, error) {
	settings, err := s.Settings()
	if err != nil {
		return StorageStatus{}, err
	}

	status := StorageStatus{DemoMode: settings.DemoMode}

	cfg, err := s.StorageConfig()
	if errors.Is(err, ErrNotConfigured) {
		return status, nil
	}
	if err != nil {
		return StorageStatus{}, err
	}

	status.Configured = true
	status.Bucket = cfg.Bucket
	status.AccountID = cfg.AccountID
	return status, nil
}

// writeJSON writes to a temp file in the same directory and renames it over
// the target, so a crash never leaves a half-written file behind.
func (s *Store) writeJSON(name string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
