// internal/domain/artifact.go
package domain

// Drop modes. An empty mode defers to the persisted demo-mode setting.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// ProcessedArtifact describes the single output file produced from a drop.
// ProcessedSize is always measured from the written output, never estimated.
type ProcessedArtifact struct {
	Path          string `json:"path"`
	OriginalSize  int64  `json:"original_size"`
	ProcessedSize int64  `json:"processed_size"`
	FileType      string `json:"file_type"`
}

// UploadResult describes a successfully published artifact.
type UploadResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// DropResult is the outcome of one drop: in local mode the artifact is kept
// on disk and Upload is nil, in remote mode the artifact has been published
// and removed from disk.
type DropResult struct {
	Mode     string             `json:"mode"`
	Artifact *ProcessedArtifact `json:"artifact"`
	Upload   *UploadResult      `json:"upload,omitempty"`
}
