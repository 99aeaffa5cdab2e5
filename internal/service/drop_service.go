// internal/service/drop_service.go
package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/droplink-app/droplink/internal/config"
	"github.com/droplink-app/droplink/internal/domain"
	"github.com/droplink-app/droplink/internal/processor"
	"github.com/droplink-app/droplink/internal/storage"
	"github.com/droplink-app/droplink/internal/uploader"
)

const defaultMaxConcurrentDrops = 4

// DropService orchestrates a drop: validate and process the selected files,
// then either keep the artifact locally or upload it and hand back a link.
type DropService struct {
	store     *config.Store
	outputDir string

	// sem bounds how many drops run at once; group collapses identical
	// concurrent drops into a single run.
	sem   *semaphore.Weighted
	group singleflight.Group
}

func NewDropService(store *config.Store, outputDir string, maxConcurrent int) *DropService {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentDrops
	}
	return &DropService{
		store:     store,
		outputDir: outputDir,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// DropOptions tweak a single drop.
type DropOptions struct {
	// OutputDir overrides the service-wide artifact directory.
	OutputDir string
	// Mode forces "local" or "remote"; empty follows the demo mode setting.
	Mode string
}

// Drop runs the full pipeline for the selected paths. Identical concurrent
// drops share one run and one result.
func (s *DropService) Drop(ctx context.Context, paths []string, opts DropOptions) (*domain.DropResult, error) {
	mode, err := s.resolveMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = s.outputDir
	}

	result, err, shared := s.group.Do(dropKey(paths, mode, outputDir), func() (any, error) {
		return s.runDrop(ctx, paths, mode, outputDir)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("mode", mode).Msg("Joined in-flight drop")
	}
	return result.(*domain.DropResult), nil
}

// ValidateStorage checks that the saved credentials can write to the bucket.
func (s *DropService) ValidateStorage(ctx context.Context) error {
	up, err := s.uploader()
	if err != nil {
		return err
	}
	return up.ValidateCredentials(ctx)
}

// DeleteObject removes an uploaded object by key.
func (s *DropService) DeleteObject(ctx context.Context, key string) error {
	up, err := s.uploader()
	if err != nil {
		return err
	}
	return up.Delete(ctx, key)
}

// HeadObject returns metadata for an uploaded object.
func (s *DropService) HeadObject(ctx context.Context, key string) (storage.ObjectInfo, error) {
	client, _, err := s.storageClient()
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	return client.HeadObject(ctx, key)
}

func (s *DropService) runDrop(ctx context.Context, paths []string, mode, outputDir string) (*domain.DropResult, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire drop slot: %w", err)
	}
	defer s.sem.Release(1)

	// missing credentials should surface before any files are processed
	var up *uploader.Uploader
	if mode == domain.ModeRemote {
		var err error
		if up, err = s.uploader(); err != nil {
			return nil, err
		}
	}

	log.Info().Int("files", len(paths)).Str("mode", mode).Msg("Starting drop")

	artifact, err := processor.Process(paths, outputDir)
	if err != nil {
		return nil, err
	}

	if mode == domain.ModeLocal {
		log.Info().Str("path", artifact.Path).Msg("Drop complete")
		return &domain.DropResult{Mode: mode, Artifact: artifact}, nil
	}

	upload, err := up.Upload(ctx, artifact.Path)
	if err != nil {
		// failed uploads leave the artifact in place
		return nil, err
	}

	if err := os.Remove(artifact.Path); err != nil {
		log.Warn().Err(err).Str("path", artifact.Path).Msg("Could not remove uploaded artifact")
	}

	log.Info().Str("url", upload.URL).Msg("Drop complete")
	return &domain.DropResult{Mode: mode, Artifact: artifact, Upload: upload}, nil
}

// resolveMode maps an explicit mode request, or the demo mode setting when
// the request leaves it empty, to "local" or "remote".
func (s *DropService) resolveMode(mode string) (string, error) {
	switch mode {
	case domain.ModeLocal, domain.ModeRemote:
		return mode, nil
	case "":
	default:
		return "", fmt.Errorf("invalid mode %q", mode)
	}

	settings, err := s.store.Settings()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if settings.DemoMode {
		return domain.ModeLocal, nil
	}
	return domain.ModeRemote, nil
}

// storageClient builds a client from the saved credentials.
func (s *DropService) storageClient() (*storage.R2Client, string, error) {
	cfg, err := s.store.StorageConfig()
	if err != nil {
		return nil, "", err
	}

	client, err := storage.NewR2Client(storage.R2Config{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		AccountID: cfg.AccountID,
		Endpoint:  cfg.Endpoint,
	})
	if err != nil {
		return nil, "", err
	}
	return client, cfg.PublicBaseURL, nil
}

func (s *DropService) uploader() (*uploader.Uploader, error) {
	client, baseURL, err := s.storageClient()
	if err != nil {
		return nil, err
	}
	return uploader.New(client, baseURL), nil
}

// dropKey canonicalizes a drop request so concurrent duplicates collapse
// into one flight regardless of path order.
func dropKey(paths []string, mode, outputDir string) string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)
	return mode + "|" + outputDir + "|" + strings.Join(sorted, "\x00")
}
