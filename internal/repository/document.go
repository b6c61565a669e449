package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

type DocumentRepository interface {
	// GetByID returns common.ErrDocumentNotFound when the id is unknown or owned by another tenant.
	// An empty tenantID skips the ownership check.
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*entity.Document, error)
	GetByTenantAndHash(ctx context.Context, tenantID, sha256 string) (*entity.Document, error)
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	// UpsertByHash returns the existing document with the same content hash, if any.
	UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error)
}

var documentColumns = []string{
	"id", "tenant_id", "title", "filename", "mime_type", "format",
	"content_ref", "size_bytes", "sha256", "created_at",
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*entity.Document, error) {
	p := entsql.EQ("id", id)
	if tenantID != "" {
		p = entsql.And(p, entsql.EQ("tenant_id", tenantID))
	}
	doc, err := r.one(ctx, p)
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, err
	}
	if doc == nil {
		return nil, common.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *documentRepo) GetByTenantAndHash(ctx context.Context, tenantID, sha256 string) (*entity.Document, error) {
	doc, err := r.one(ctx, entsql.And(entsql.EQ("tenant_id", tenantID), entsql.EQ("sha256", sha256)))
	if err != nil {
		r.logger.Error("failed to get document by tenant and hash", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	if doc == nil {
		return nil, common.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	out := *doc
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.Format == "" {
		out.Format = constants.FormatForMime(out.MimeType)
	}
	out.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	query, args := r.db.builder().Insert(tableDocument).
		Columns(documentColumns...).
		Values(out.ID, out.TenantID, out.Title, out.Filename, out.MimeType, string(out.Format),
			out.ContentRef, out.SizeBytes, out.SHA256, out.CreatedAt).
		Query()
	if _, err := r.db.exec(ctx, query, args); err != nil {
		r.logger.Error("failed to create document", "tenant_id", out.TenantID, "filename", out.Filename, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	r.logger.Info("document created", "document_id", out.ID, "tenant_id", out.TenantID, "format", out.Format)
	return &out, nil
}

func (r *documentRepo) UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if doc.SHA256 != "" {
		if existing, err := r.GetByTenantAndHash(ctx, doc.TenantID, doc.SHA256); err == nil {
			return existing, true, nil
		}
	}
	row, err := r.Create(ctx, doc)
	if err != nil {
		r.logger.Error("failed to upsert document by hash", "tenant_id", doc.TenantID, "filename", doc.Filename, "error", err)
		return nil, false, err
	}
	return row, false, nil
}

func (r *documentRepo) one(ctx context.Context, p *entsql.Predicate) (*entity.Document, error) {
	b := r.db.builder()
	query, args := b.Select(documentColumns...).From(b.Table(tableDocument)).Where(p).Limit(1).Query()
	var found *entity.Document
	err := r.db.query(ctx, query, args, func(rows *entsql.Rows) error {
		var d entity.Document
		var format string
		var title, sha sql.NullString
		if err := rows.Scan(&d.ID, &d.TenantID, &title, &d.Filename, &d.MimeType, &format,
			&d.ContentRef, &d.SizeBytes, &sha, &d.CreatedAt); err != nil {
			return err
		}
		d.Format = constants.Format(format)
		d.Title = title.String
		d.SHA256 = sha.String
		found = &d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return found, nil
}
