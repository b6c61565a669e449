// Package ingest stores uploaded contract files and registers them as documents.
package ingest

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Upload is one file handed to the ingestor.
type Upload struct {
	TenantID    string
	Title       string
	Filename    string
	ContentType string
	Body        io.Reader
}

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string    `json:"source_path,omitempty"`
	DocumentID   uuid.UUID `json:"document_id"`
	Deduplicated bool      `json:"deduplicated"`
	HashHex      string    `json:"sha256"`
	ContentRef   string    `json:"content_ref"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Err          string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Ingestor is the behavior the HTTP gateway and batch CLI depend on.
type Ingestor interface {
	Ingest(ctx context.Context, up Upload) (IngestionResult, error)
	// IngestPath ingests a single local file.
	IngestPath(ctx context.Context, tenantID, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, tenantID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
