package processor

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/droplink-app/droplink/internal/domain"
)

// buildArchive zips the selection into a single artifact. Every input is read
// fully into memory and stored as one Deflate entry named by its base name,
// so the archive never carries directory components.
func buildArchive(paths []string, outputDir string) (*domain.ProcessedArtifact, error) {
	finalPath := filepath.Join(outputDir, fmt.Sprintf("archive_%s.zip", shortID()))

	var originalSize int64
	err := writeAtomic(outputDir, finalPath, func(tmp *os.File) error {
		zw := zip.NewWriter(tmp)
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.DefaultCompression)
		})

		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			entry, err := zw.Create(filepath.Base(path))
			if err != nil {
				return fmt.Errorf("create entry %s: %w", filepath.Base(path), err)
			}
			if _, err := entry.Write(data); err != nil {
				return fmt.Errorf("write entry %s: %w", filepath.Base(path), err)
			}

			originalSize += int64(len(data))
		}

		return zw.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat output %s: %w", finalPath, err)
	}

	return &domain.ProcessedArtifact{
		Path:          finalPath,
		OriginalSize:  originalSize,
		ProcessedSize: info.Size(),
		FileType:      "archive",
	}, nil
}
