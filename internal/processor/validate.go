package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/droplink-app/droplink/internal/domain"
)

// Selection limits. Fixed policy, not user-configurable.
const (
	MaxFileCount = 50
	MaxFileSize  = 500 * 1024 * 1024  // 500 MiB per file
	MaxTotalSize = 1024 * 1024 * 1024 // 1 GiB per selection
)

var allowedExtensions = map[string]struct{}{
	// images
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {}, "tiff": {}, "tif": {}, "webp": {}, "heic": {}, "heif": {},
	// documents
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {}, "txt": {}, "rtf": {}, "csv": {},
	// archives
	"zip": {}, "tar": {}, "gz": {}, "7z": {}, "rar": {},
	// video
	"mov": {}, "mp4": {}, "avi": {}, "mkv": {}, "webm": {}, "m4v": {},
	// audio
	"mp3": {}, "wav": {}, "aac": {}, "flac": {}, "m4a": {}, "ogg": {},
	// code and text
	"json": {}, "xml": {}, "html": {}, "css": {}, "js": {}, "ts": {}, "py": {}, "rs": {}, "go": {}, "swift": {},
	// other
	"svg": {}, "ico": {}, "dmg": {}, "pkg": {}, "app": {},
}

// Validate checks a file selection against the fixed count, size and type
// constraints. It stops at the first problem and never reads file contents,
// only filesystem metadata. Files without an extension pass and are treated
// as opaque binary.
func Validate(paths []string) error {
	if len(paths) == 0 {
		return &domain.ValidationError{Message: "no files selected"}
	}
	if len(paths) > MaxFileCount {
		return &domain.ValidationError{
			Message: fmt.Sprintf("too many files selected: %d (maximum is %d)", len(paths), MaxFileCount),
		}
	}

	var total int64
	for _, path := range paths {
		name := filepath.Base(path)

		info, err := os.Stat(path)
		if err != nil {
			return &domain.ValidationError{Path: path, Message: fmt.Sprintf("file not found: %s", name)}
		}
		if info.IsDir() {
			return &domain.ValidationError{
				Path:    path,
				Message: fmt.Sprintf("cannot share folders directly, zip the folder first: %s", name),
			}
		}
		if !info.Mode().IsRegular() {
			return &domain.ValidationError{Path: path, Message: fmt.Sprintf("not a regular file: %s", name)}
		}
		if info.Size() > MaxFileSize {
			return &domain.ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s is too large: %.1f MB (maximum is 500 MB)", name, toMB(info.Size())),
			}
		}
		if ext := normalizedExt(path); ext != "" {
			if _, ok := allowedExtensions[ext]; !ok {
				return &domain.ValidationError{Path: path, Message: fmt.Sprintf("file type not supported: .%s", ext)}
			}
		}

		total += info.Size()
	}

	if total > MaxTotalSize {
		return &domain.ValidationError{
			Message: fmt.Sprintf("selected files total %.1f MB (maximum is 1 GB)", toMB(total)),
		}
	}

	return nil
}

// normalizedExt returns the lower-cased extension without the leading dot,
// or "" when the path has none.
func normalizedExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func toMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
