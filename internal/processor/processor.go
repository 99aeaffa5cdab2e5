// internal/processor/processor.go
package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/droplink-app/droplink/internal/domain"
)

// targetImageExt is the lossy format single images are converted into.
const targetImageExt = "webp"

// convertibleImageExts are image types the processor re-encodes. WebP inputs
// are deliberately absent: they are already in the target format and fall
// through to the passthrough copy.
var convertibleImageExts = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {}, "tiff": {}, "tif": {},
}

// Process turns a validated selection into a single output artifact inside
// outputDir, creating the directory if needed. Two or more files become a zip
// archive, a single convertible image is re-encoded to WebP, and anything
// else is copied byte for byte under a collision-safe name.
func Process(paths []string, outputDir string) (*domain.ProcessedArtifact, error) {
	if err := Validate(paths); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	if len(paths) >= 2 {
		log.Debug().Int("files", len(paths)).Msg("archiving selection")
		return buildArchive(paths, outputDir)
	}

	src := paths[0]
	if isConvertibleImage(src) {
		log.Debug().Str("file", filepath.Base(src)).Msg("re-encoding image")
		return convertImage(src, outputDir)
	}

	log.Debug().Str("file", filepath.Base(src)).Msg("copying file")
	return copyFile(src, outputDir)
}

func isConvertibleImage(path string) bool {
	_, ok := convertibleImageExts[normalizedExt(path)]
	return ok
}

// shortID returns an 8-character fragment of a random UUID, enough to avoid
// output-name collisions across repeated drops into the same directory.
func shortID() string {
	return uuid.NewString()[:8]
}

// splitName returns the base name without extension and the lower-cased
// extension, defaulting to "bin" when the file has none.
func splitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	ext = normalizedExt(base)
	if ext == "" {
		ext = "bin"
	}
	return stem, ext
}

// copyFile writes a byte-for-byte copy of src into outputDir under a fresh
// name. The copy lands in a temp file first and is renamed into place only
// once fully written.
func copyFile(src, outputDir string) (*domain.ProcessedArtifact, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	stem, ext := splitName(src)
	finalPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", stem, shortID(), ext))

	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := writeAtomic(outputDir, finalPath, func(tmp *os.File) error {
		_, err := tmp.ReadFrom(in)
		return err
	}); err != nil {
		return nil, fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}

	outInfo, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat output %s: %w", finalPath, err)
	}

	return &domain.ProcessedArtifact{
		Path:          finalPath,
		OriginalSize:  srcInfo.Size(),
		ProcessedSize: outInfo.Size(),
		FileType:      ext,
	}, nil
}

// writeAtomic runs write against a temp file in dir and renames it to
// finalPath only when everything succeeded. A failed write leaves no partial
// artifact behind.
func writeAtomic(dir, finalPath string, write func(tmp *os.File) error) error {
	tmp, err := os.CreateTemp(dir, ".droplink-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}
