package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/async"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Orchestrator is the synchronous face of the analysis lifecycle. Extraction itself runs
// on the queue (see Processor).
type Orchestrator struct {
	logger    *slog.Logger
	records   repository.AnalysisRecordStore
	documents repository.DocumentRepository
	queue     async.Queue
}

func NewOrchestrator(logger *slog.Logger, records repository.AnalysisRecordStore, documents repository.DocumentRepository, queue async.Queue) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger, records: records, documents: documents, queue: queue}
}

// Submit validates the document, creates a PENDING record and queues it. It returns
// without waiting for extraction. Only document lookup and record creation fail the call;
// an enqueue failure leaves the record PENDING for Recover.
func (o *Orchestrator) Submit(ctx context.Context, documentID uuid.UUID, userID, tenantID string) (*entity.AnalysisRecord, error) {
	v := common.NewValidator().
		Field("tenant_id", tenantID, common.Required, common.MaxLength(64)).
		Field("user_id", userID, common.Required, common.MaxLength(64))
	if documentID == uuid.Nil {
		v.Field("document_id", "", common.Required)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := o.documents.GetByID(ctx, tenantID, documentID); err != nil {
		o.logger.Warn("analysis.submit.document_lookup_failed", "document_id", documentID, "tenant_id", tenantID, "error", err)
		return nil, err
	}

	rec, err := o.records.Create(ctx, &entity.AnalysisRecord{
		DocumentID: documentID,
		TenantID:   tenantID,
		UserID:     userID,
	})
	if err != nil {
		o.logger.Error("analysis.submit.create_failed", "document_id", documentID, "error", err)
		return nil, err
	}

	job := async.Job{
		AnalysisID:  rec.ID,
		SubmittedAt: time.Now().UTC(),
		TraceID:     common.RequestIDFromContext(ctx),
	}
	// the request context may end before the queue has room
	if err := o.queue.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		o.logger.Warn("analysis.submit.enqueue_failed", "analysis_id", rec.ID, "error", err)
	}

	o.logger.Info("analysis.submit.ok", "analysis_id", rec.ID, "document_id", documentID, "tenant_id", tenantID)
	return rec, nil
}

// GetStatus returns the current record. common.ErrAnalysisNotFound if id is unknown.
func (o *Orchestrator) GetStatus(ctx context.Context, id uuid.UUID) (*entity.AnalysisRecord, error) {
	rec, err := o.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Confidence == nil {
		rec.Confidence = map[string]float64{}
	}
	return rec, nil
}

// List returns the newest records for a tenant, optionally filtered by status.
func (o *Orchestrator) List(ctx context.Context, tenantID string, status constants.AnalysisStatus, limit int) ([]*entity.AnalysisRecord, error) {
	if tenantID == "" {
		return nil, common.NewValidator().Field("tenant_id", tenantID, common.Required).Err()
	}
	f := entity.AnalysisFilter{TenantID: tenantID, Limit: limit}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if status != "" {
		if !status.IsValid() {
			return nil, common.NewValidator().
				Field("status", string(status), common.OneOf(constants.AnalysisStatuses...)).Err()
		}
		f.Statuses = []constants.AnalysisStatus{status}
	}
	return o.records.List(ctx, f)
}

// Recover re-queues every record left PENDING or PROCESSING by a previous process,
// oldest first. It returns how many were queued.
//
// PROCESSING records are re-claimed without an owner check, so Recover must only run
// in a single-process deployment, at startup, before other workers pick up jobs. Within
// one process the Processor refuses to run the same record twice at once.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	recs, err := o.records.List(ctx, entity.AnalysisFilter{
		Statuses: []constants.AnalysisStatus{constants.AnalysisStatusPending, constants.AnalysisStatusProcessing},
	})
	if err != nil {
		o.logger.Error("analysis.recover.list_failed", "error", err)
		return 0, err
	}
	n := 0
	for i := len(recs) - 1; i >= 0; i-- {
		if err := o.queue.Enqueue(ctx, async.Job{
			AnalysisID:  recs[i].ID,
			SubmittedAt: time.Now().UTC(),
			Recovered:   true,
		}); err != nil {
			o.logger.Error("analysis.recover.enqueue_failed", "analysis_id", recs[i].ID, "error", err)
			return n, err
		}
		n++
	}
	o.logger.Info("analysis.recover.ok", "queued", n)
	return n, nil
}
