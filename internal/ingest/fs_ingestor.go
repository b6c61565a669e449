package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/storage"
)

// DefaultMaxBytes caps a single upload when no limit is configured.
const DefaultMaxBytes int64 = 25 << 20

// FSIngestor writes content to a BlobStore and registers the document row,
// deduplicating by (tenant, sha256).
type FSIngestor struct {
	documents repository.DocumentRepository
	blobs     storage.BlobStore
	maxBytes  int64
	logger    *slog.Logger
}

func NewFSIngestor(documents repository.DocumentRepository, blobs storage.BlobStore, maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &FSIngestor{documents: documents, blobs: blobs, maxBytes: maxBytes, logger: logger}
}

func (i *FSIngestor) Ingest(ctx context.Context, up Upload) (IngestionResult, error) {
	var out IngestionResult
	if err := common.NewValidator().
		Field("tenant_id", up.TenantID, common.Required, common.MaxLength(64)).
		Field("filename", up.Filename, common.Required, common.MaxLength(255)).
		Err(); err != nil {
		return out, err
	}
	if up.Body == nil {
		return out, common.NewAppError("INVALID_ARGUMENT", "file body is required", common.ErrInvalidInput)
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, i.maxBytes+1))
	if err != nil {
		i.logger.Error("ingest.read_failed", "filename", up.Filename, "error", err)
		return out, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return out, common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf("file exceeds %d bytes", i.maxBytes), common.ErrInvalidInput)
	}
	if len(data) == 0 {
		return out, common.NewAppError("INVALID_ARGUMENT", "file is empty", common.ErrInvalidInput)
	}

	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])

	if existing, err := i.documents.GetByTenantAndHash(ctx, up.TenantID, hashHex); err == nil {
		i.logger.Info("ingest.dedup", "document_id", existing.ID, "tenant_id", up.TenantID, "sha256", hashHex)
		return resultFor(existing, true), nil
	} else if !errors.Is(err, common.ErrDocumentNotFound) {
		return out, err
	}

	mime := up.ContentType
	if j := strings.IndexByte(mime, ';'); j >= 0 {
		mime = strings.TrimSpace(mime[:j])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = constants.MimeForExt(filepath.Ext(up.Filename))
	}
	title := strings.TrimSpace(up.Title)
	if title == "" {
		title = titleFromFilename(up.Filename)
	}

	key := contentKey(up.TenantID, hashHex, up.Filename)
	if err := i.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		i.logger.Error("ingest.store_failed", "key", key, "error", err)
		return out, fmt.Errorf("store content: %w", err)
	}

	doc, dedup, err := i.documents.UpsertByHash(ctx, &entity.Document{
		TenantID:   up.TenantID,
		Title:      title,
		Filename:   filepath.Base(up.Filename),
		MimeType:   mime,
		ContentRef: key,
		SizeBytes:  int64(len(data)),
		SHA256:     hashHex,
	})
	if err != nil {
		return out, err
	}
	i.logger.Info("ingest.ok", "document_id", doc.ID, "tenant_id", up.TenantID, "bytes", len(data), "deduplicated", dedup)
	return resultFor(doc, dedup), nil
}

func (i *FSIngestor) IngestPath(ctx context.Context, tenantID, path string) (IngestionResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return IngestionResult{SourcePath: path}, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return IngestionResult{SourcePath: abs}, common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}

	f, err := os.Open(abs)
	if err != nil {
		i.logger.Error("open error", "path", abs, "error", err)
		return IngestionResult{SourcePath: abs}, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file error", "path", abs, "error", err)
		}
	}(f)

	r, err := i.Ingest(ctx, Upload{
		TenantID:    tenantID,
		Filename:    filepath.Base(abs),
		ContentType: constants.MimeForExt(ext),
		Body:        f,
	})
	r.SourcePath = abs
	return r, err
}

func resultFor(doc *entity.Document, dedup bool) IngestionResult {
	return IngestionResult{
		DocumentID:   doc.ID,
		Deduplicated: dedup,
		HashHex:      doc.SHA256,
		ContentRef:   doc.ContentRef,
		SizeBytes:    doc.SizeBytes,
		UploadedAt:   doc.CreatedAt,
	}
}
