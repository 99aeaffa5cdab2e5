package processor

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/droplink-app/droplink/internal/domain"
)

// webpQuality is the fixed lossy quality used for every conversion.
const webpQuality = 80

// convertImage decodes a single image and re-encodes it as lossy WebP under a
// fresh name. Animated inputs keep only their first frame.
func convertImage(src, outputDir string) (*domain.ProcessedArtifact, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	img, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(src), err)
	}

	stem, _ := splitName(src)
	finalPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", stem, shortID(), targetImageExt))

	if err := writeAtomic(outputDir, finalPath, func(tmp *os.File) error {
		return webp.Encode(tmp, img, webp.Options{Quality: webpQuality})
	}); err != nil {
		return nil, fmt.Errorf("encode %s to webp: %w", filepath.Base(src), err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat output %s: %w", finalPath, err)
	}

	return &domain.ProcessedArtifact{
		Path:          finalPath,
		OriginalSize:  srcInfo.Size(),
		ProcessedSize: info.Size(),
		FileType:      targetImageExt,
	}, nil
}
