package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/async"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/storage"
)

// availability is implemented by strategies that depend on an external service.
type availability interface {
	Available() bool
}

// Attempt records one strategy invocation.
type Attempt struct {
	Strategy constants.Strategy `json:"strategy"`
	Error    string             `json:"error,omitempty"`
	Skipped  bool               `json:"skipped,omitempty"`
}

// Outcome is the result of running the strategy chain over one text.
type Outcome struct {
	Bundle   *entity.FieldBundle
	Strategy constants.Strategy
	Raw      []byte
	Attempts []Attempt
	Err      error // set only when no strategy produced a bundle
}

// Processor is the body of the background analysis task: it drives one record from
// PENDING to COMPLETED or FAILED.
type Processor struct {
	logger    *slog.Logger
	records   repository.AnalysisRecordStore
	documents repository.DocumentRepository
	contracts repository.ContractRepository
	blobs     storage.BlobStore
	text      extract.TextExtractor
	primary   extract.FieldExtractor
	fallback  extract.FieldExtractor

	// analysis ids with a run in progress in this process
	running sync.Map
}

var _ async.Handler = (*Processor)(nil)

// NewProcessor wires the task. primary may be nil or report itself unavailable; fallback
// is required and is always attempted when primary does not produce a bundle.
func NewProcessor(
	logger *slog.Logger,
	records repository.AnalysisRecordStore,
	documents repository.DocumentRepository,
	contracts repository.ContractRepository,
	blobs storage.BlobStore,
	text extract.TextExtractor,
	primary extract.FieldExtractor,
	fallback extract.FieldExtractor,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		records:   records,
		documents: documents,
		contracts: contracts,
		blobs:     blobs,
		text:      text,
		primary:   primary,
		fallback:  fallback,
	}
}

// Handle implements async.Handler.
func (p *Processor) Handle(ctx context.Context, job async.Job) error {
	return p.Process(ctx, job.AnalysisID)
}

// Process runs the analysis for id. Records already in a terminal status are left alone,
// and a second call for an id that is still running in this process returns at once.
// Extraction failures are written to the record; the returned error is for logging only.
//
// The terminal status write does not inherit ctx's deadline or cancellation, so a job
// timeout cannot leave the record in PROCESSING once a result exists.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	if _, busy := p.running.LoadOrStore(id, struct{}{}); busy {
		p.logger.Info("analysis.process.already_running", "analysis_id", id)
		return nil
	}
	defer p.running.Delete(id)

	rec, err := p.records.Get(ctx, id)
	if err != nil {
		p.logger.Error("analysis.process.load_failed", "analysis_id", id, "error", err)
		return err
	}
	if rec.Status.IsTerminal() {
		p.logger.Info("analysis.process.skip_terminal", "analysis_id", id, "status", rec.Status)
		return nil
	}

	// 1) PROCESSING
	if err := p.records.UpdateStatus(ctx, id, constants.AnalysisStatusProcessing, entity.AnalysisUpdate{}); err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			p.logger.Info("analysis.process.claimed_elsewhere", "analysis_id", id, "error", err)
			return nil
		}
		p.logger.Error("analysis.process.claim_failed", "analysis_id", id, "error", err)
		return err
	}
	p.logger.Info("analysis.process.start", "analysis_id", id, "document_id", rec.DocumentID, "tenant_id", rec.TenantID)

	// 2) text
	req, textRes := p.loadText(ctx, rec)

	// 3-4) strategies
	out := p.Extract(ctx, req)
	persistCtx := context.WithoutCancel(ctx)

	// 6) both failed
	if out.Bundle == nil {
		msg := out.Err.Error()
		raw := provenance(out, textRes)
		if err := p.records.UpdateStatus(persistCtx, id, constants.AnalysisStatusFailed, entity.AnalysisUpdate{
			Error:     &msg,
			RawResult: raw,
		}); err != nil {
			// record stays PROCESSING until the next Recover
			p.logger.Error("analysis.process.fail_write_failed", "analysis_id", id, "error", err, "cause", msg)
			return errors.Join(out.Err, err)
		}
		p.logger.Warn("analysis.process.failed", "analysis_id", id, "error", msg,
			"elapsed_ms", time.Since(start).Milliseconds())
		return out.Err
	}

	// 5) match + persist
	upd := entity.AnalysisUpdate{
		Bundle:    out.Bundle,
		Strategy:  &out.Strategy,
		RawResult: provenance(out, textRes),
	}
	if vendor := out.Bundle.Get(constants.FieldVendor); vendor != "" && p.contracts != nil {
		cid, err := p.contracts.FindByCounterpartySubstring(persistCtx, rec.TenantID, vendor)
		if err != nil {
			p.logger.Warn("analysis.process.contract_match_failed", "analysis_id", id, "error", err)
		} else if cid != nil {
			upd.SuggestedContractID = cid
		}
	}

	if err := p.records.UpdateStatus(persistCtx, id, constants.AnalysisStatusCompleted, upd); err != nil {
		p.logger.Error("analysis.process.persist_failed", "analysis_id", id, "error", err)
		msg := fmt.Sprintf("persist result: %v", err)
		if ferr := p.records.UpdateStatus(persistCtx, id, constants.AnalysisStatusFailed, entity.AnalysisUpdate{Error: &msg}); ferr != nil {
			p.logger.Error("analysis.process.fail_write_failed", "analysis_id", id, "error", ferr)
			return errors.Join(err, ferr)
		}
		return err
	}

	p.logger.Info("analysis.process.ok",
		"analysis_id", id,
		"strategy", out.Strategy,
		"suggested_contract_id", upd.SuggestedContractID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// loadText resolves the document and converts its content to text. Lookup or storage
// failures degrade to whatever metadata is known.
func (p *Processor) loadText(ctx context.Context, rec *entity.AnalysisRecord) (extract.ExtractRequest, extract.TextExtractionResult) {
	req := extract.ExtractRequest{DocumentID: rec.DocumentID.String(), TenantID: rec.TenantID}
	var meta extract.Metadata
	var data []byte

	doc, err := p.documents.GetByID(ctx, rec.TenantID, rec.DocumentID)
	if err != nil {
		p.logger.Warn("analysis.process.document_lookup_failed", "analysis_id", rec.ID, "error", err)
	} else {
		meta = extract.Metadata{Title: doc.Title, Filename: doc.Filename, MimeType: doc.MimeType}
		req.Title = doc.Title
		if p.blobs != nil {
			data, err = p.blobs.Get(ctx, doc.ContentRef)
			if err != nil {
				p.logger.Warn("analysis.process.content_fetch_failed", "analysis_id", rec.ID, "content_ref", doc.ContentRef, "error", err)
				data = nil
			}
		}
	}

	res := p.text.Extract(ctx, data, meta)
	req.Text = res.Text
	return req, res
}

// Extract runs the primary strategy and, if it is unavailable or fails, the fallback
// exactly once. It performs no persistence.
func (p *Processor) Extract(ctx context.Context, req extract.ExtractRequest) Outcome {
	var out Outcome
	var errs []string

	if p.primary != nil {
		s := p.primary.Strategy()
		if a, ok := p.primary.(availability); ok && !a.Available() {
			out.Attempts = append(out.Attempts, Attempt{Strategy: s, Skipped: true, Error: common.ErrCompletionUnavailable.Error()})
			p.logger.Info("analysis.strategy.skipped", "strategy", s, "reason", "unavailable")
		} else {
			b, raw, err := safeExtract(ctx, p.primary, req)
			if err == nil {
				out.Bundle, out.Strategy, out.Raw = &b, s, raw
				out.Attempts = append(out.Attempts, Attempt{Strategy: s})
				return out
			}
			out.Attempts = append(out.Attempts, Attempt{Strategy: s, Error: err.Error()})
			errs = append(errs, err.Error())
			p.logger.Warn("analysis.strategy.failed", "strategy", s, "error", err, "fallback", p.fallback.Strategy())
		}
	}

	s := p.fallback.Strategy()
	b, raw, err := safeExtract(ctx, p.fallback, req)
	if err != nil {
		out.Attempts = append(out.Attempts, Attempt{Strategy: s, Error: err.Error()})
		errs = append(errs, err.Error())
		p.logger.Error("analysis.strategy.failed", "strategy", s, "error", err)
		out.Err = fmt.Errorf("%w: %s", common.ErrExtraction, strings.Join(errs, "; "))
		return out
	}
	out.Bundle, out.Strategy, out.Raw = &b, s, raw
	out.Attempts = append(out.Attempts, Attempt{Strategy: s})
	return out
}

// safeExtract converts a panicking strategy into an ExtractionError.
func safeExtract(ctx context.Context, fe extract.FieldExtractor, req extract.ExtractRequest) (b entity.FieldBundle, raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.NewExtractionError(fe.Strategy(), fmt.Errorf("panic: %v", r))
		}
	}()
	b, raw, err = fe.ExtractFields(ctx, req)
	if err != nil {
		var ee *common.ExtractionError
		if !errors.As(err, &ee) {
			err = common.NewExtractionError(fe.Strategy(), err)
		}
		return entity.FieldBundle{}, raw, err
	}
	for f, c := range b.Confidence {
		b.Confidence[f] = entity.ClampConfidence(c)
	}
	return b, raw, nil
}

// provenance is the raw_result payload: which strategy won, what it returned, and why
// earlier strategies did not.
func provenance(out Outcome, text extract.TextExtractionResult) json.RawMessage {
	payload := map[string]any{
		"attempts":    out.Attempts,
		"text_method": text.Method,
		"text_format": text.Format,
	}
	if out.Bundle != nil {
		payload["strategy"] = out.Strategy
		payload["bundle"] = out.Bundle
	}
	if len(out.Raw) > 0 {
		if json.Valid(out.Raw) {
			payload["raw"] = json.RawMessage(out.Raw)
		} else {
			payload["raw"] = string(out.Raw)
		}
	}
	if len(text.Warnings) > 0 {
		payload["text_warnings"] = text.Warnings
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return b
}
