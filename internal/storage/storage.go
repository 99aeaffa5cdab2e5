package storage

import (
	"context"
	"fmt"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ObjectStorage captures the minimal S3-compatible operations the upload path
// needs. Any backend that can put, head and delete a keyed byte payload can
// stand in without touching retry or validation logic.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	HeadObject(ctx context.Context, key string) (ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
}

// ResponseError is returned when the storage endpoint answers with an
// unexpected HTTP status. The status code drives transient/permanent
// classification upstream; Body keeps the provider payload for diagnostics.
type ResponseError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("storage request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("storage request failed: %s", e.Status)
}
