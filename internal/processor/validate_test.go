package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droplink-app/droplink/internal/domain"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// sparseFile creates a file that reports the given size without allocating
// the bytes.
func sparseFile(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}

func TestValidateEmptySelection(t *testing.T) {
	err := Validate(nil)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "no files selected", verr.Message)
}

func TestValidateTooManyFiles(t *testing.T) {
	// The paths deliberately do not exist: the count check must fire before
	// any filesystem access happens.
	paths := make([]string, MaxFileCount+1)
	for i := range paths {
		paths[i] = fmt.Sprintf("/nonexistent/file-%d.txt", i)
	}

	err := Validate(paths)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "51")
	assert.Contains(t, verr.Message, "50")
}

func TestValidateMissingFile(t *testing.T) {
	err := Validate([]string{"/nonexistent/report.pdf"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "report.pdf")
	assert.Equal(t, "/nonexistent/report.pdf", verr.Path)
}

func TestValidateRejectsDirectory(t *testing.T) {
	dir := t.TempDir()

	err := Validate([]string{dir})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "zip the folder first")
	assert.Equal(t, dir, verr.Path)
}

func TestValidateFileTooLarge(t *testing.T) {
	dir := t.TempDir()
	// 500.5 MiB, just over the per-file limit.
	path := sparseFile(t, dir, "huge.mov", (500*1024+512)*1024)

	err := Validate([]string{path})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "huge.mov")
	assert.Contains(t, verr.Message, "500.5 MB")
}

func TestValidateTotalSizeLimit(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		sparseFile(t, dir, "a.mov", 400*1024*1024),
		sparseFile(t, dir, "b.mov", 400*1024*1024),
		sparseFile(t, dir, "c.mov", 400*1024*1024),
	}

	err := Validate(paths)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "1 GB")
	assert.Empty(t, verr.Path)
}

func TestValidateExtensions(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{name: "image allowed", file: "photo.JPG"},
		{name: "document allowed", file: "notes.pdf"},
		{name: "archive allowed", file: "bundle.tar"},
		{name: "code allowed", file: "main.go"},
		{name: "no extension allowed", file: "README"},
		{name: "unknown rejected", file: "disk.qcow2", wantErr: "file type not supported: .qcow2"},
		{name: "executable rejected", file: "setup.exe", wantErr: "file type not supported: .exe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, []byte("content"))

			err := Validate([]string{path})

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestValidateBoundaries(t *testing.T) {
	t.Run("exactly max count passes", func(t *testing.T) {
		dir := t.TempDir()
		paths := make([]string, 0, MaxFileCount)
		for i := 0; i < MaxFileCount; i++ {
			paths = append(paths, writeFile(t, dir, fmt.Sprintf("f%d.txt", i), []byte("x")))
		}
		assert.NoError(t, Validate(paths))
	})

	t.Run("exactly max file size passes", func(t *testing.T) {
		dir := t.TempDir()
		path := sparseFile(t, dir, "exact.mov", MaxFileSize)
		assert.NoError(t, Validate([]string{path}))
	})
}
