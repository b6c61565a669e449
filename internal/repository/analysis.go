package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

// AnalysisRecordStore persists analysis records. Writes are atomic per record id.
type AnalysisRecordStore interface {
	Create(ctx context.Context, rec *entity.AnalysisRecord) (*entity.AnalysisRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRecord, error)
	// UpdateStatus moves the record to "to" only if its current status is a legal
	// predecessor, writing upd in the same statement.
	UpdateStatus(ctx context.Context, id uuid.UUID, to constants.AnalysisStatus, upd entity.AnalysisUpdate) error
	List(ctx context.Context, filter entity.AnalysisFilter) ([]*entity.AnalysisRecord, error)
}

var analysisColumns = []string{
	"id", "document_id", "tenant_id", "user_id", "status",
	"vendor", "contract_title", "doc_type", "effective_date", "termination_date",
	"confidence", "strategy", "suggested_contract_id", "error_message", "raw_result",
	"created_at", "updated_at",
}

type analysisRepo struct {
	db  *DB
	log *slog.Logger
}

func NewAnalysisRecordStore(db *DB, log *slog.Logger) AnalysisRecordStore {
	if log == nil {
		log = slog.Default()
	}
	return &analysisRepo{db: db, log: log}
}

func (r *analysisRepo) Create(ctx context.Context, rec *entity.AnalysisRecord) (*entity.AnalysisRecord, error) {
	out := *rec
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	out.Status = constants.AnalysisStatusPending
	out.CreatedAt, out.UpdatedAt = now, now
	if out.Confidence == nil {
		out.Confidence = map[string]float64{}
	}
	conf, err := json.Marshal(out.Confidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRecordCreation, err)
	}

	query, args := r.db.builder().Insert(tableAnalysis).
		Columns("id", "document_id", "tenant_id", "user_id", "status", "confidence", "created_at", "updated_at").
		Values(out.ID, out.DocumentID, out.TenantID, out.UserID, string(out.Status), string(conf), now, now).
		Query()
	if _, err := r.db.exec(ctx, query, args); err != nil {
		r.log.Error("analysis_record create failed", "document_id", out.DocumentID, "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrRecordCreation, err)
	}
	r.log.Info("analysis_record created", "analysis_id", out.ID, "document_id", out.DocumentID, "tenant_id", out.TenantID)
	return &out, nil
}

func (r *analysisRepo) Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRecord, error) {
	b := r.db.builder()
	query, args := b.Select(analysisColumns...).
		From(b.Table(tableAnalysis)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()
	var found *entity.AnalysisRecord
	err := r.db.query(ctx, query, args, func(rows *entsql.Rows) error {
		rec, err := scanAnalysis(rows)
		found = rec
		return err
	})
	if err != nil {
		r.log.Error("analysis_record get failed", "analysis_id", id, "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if found == nil {
		return nil, common.ErrAnalysisNotFound
	}
	return found, nil
}

func (r *analysisRepo) UpdateStatus(ctx context.Context, id uuid.UUID, to constants.AnalysisStatus, upd entity.AnalysisUpdate) error {
	preds := constants.Predecessors(to)
	if len(preds) == 0 {
		return fmt.Errorf("%w: no transition into %s", common.ErrInvalidTransition, to)
	}
	from := make([]any, len(preds))
	for i, p := range preds {
		from[i] = string(p)
	}

	u := r.db.builder().Update(tableAnalysis).
		Set("status", string(to)).
		Set("updated_at", time.Now().UTC().Truncate(time.Microsecond))
	if b := upd.Bundle; b != nil {
		setNullable(u, "vendor", b.Vendor)
		setNullable(u, "contract_title", b.ContractTitle)
		setNullable(u, "doc_type", b.DocType)
		setNullable(u, "effective_date", b.EffectiveDate)
		setNullable(u, "termination_date", b.TerminationDate)
		conf := b.Confidence
		if conf == nil {
			conf = map[string]float64{}
		}
		raw, err := json.Marshal(conf)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrPersistence, err)
		}
		u.Set("confidence", string(raw))
	}
	if upd.Strategy != nil {
		u.Set("strategy", string(*upd.Strategy))
	}
	if upd.SuggestedContractID != nil {
		u.Set("suggested_contract_id", *upd.SuggestedContractID)
	}
	if upd.Error != nil {
		u.Set("error_message", *upd.Error)
	}
	if len(upd.RawResult) > 0 {
		u.Set("raw_result", string(upd.RawResult))
	}
	query, args := u.Where(entsql.And(entsql.EQ("id", id), entsql.In("status", from...))).Query()

	res, err := r.db.exec(ctx, query, args)
	if err != nil {
		r.log.Error("analysis_record update failed", "analysis_id", id, "to", to, "err", err)
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if n == 0 {
		cur, gerr := r.Get(ctx, id)
		if gerr != nil {
			return gerr
		}
		r.log.Warn("analysis_record transition rejected", "analysis_id", id, "from", cur.Status, "to", to)
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, cur.Status, to)
	}
	r.log.Info("analysis_record status updated", "analysis_id", id, "status", to)
	return nil
}

func (r *analysisRepo) List(ctx context.Context, filter entity.AnalysisFilter) ([]*entity.AnalysisRecord, error) {
	b := r.db.builder()
	sel := b.Select(analysisColumns...).From(b.Table(tableAnalysis))
	var preds []*entsql.Predicate
	if filter.TenantID != "" {
		preds = append(preds, entsql.EQ("tenant_id", filter.TenantID))
	}
	if len(filter.Statuses) > 0 {
		vals := make([]any, len(filter.Statuses))
		for i, s := range filter.Statuses {
			vals[i] = string(s)
		}
		preds = append(preds, entsql.In("status", vals...))
	}
	if filter.CreatedFrom != nil {
		preds = append(preds, entsql.GTE("created_at", filter.CreatedFrom.UTC()))
	}
	if filter.CreatedBefore != nil {
		preds = append(preds, entsql.LT("created_at", filter.CreatedBefore.UTC()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("created_at"))
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}
	query, args := sel.Query()

	var out []*entity.AnalysisRecord
	err := r.db.query(ctx, query, args, func(rows *entsql.Rows) error {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		r.log.Error("analysis_record list failed", "tenant_id", filter.TenantID, "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func setNullable(u *entsql.UpdateBuilder, col string, v *string) {
	if v == nil {
		u.SetNull(col)
		return
	}
	u.Set(col, *v)
}

func scanAnalysis(rows *entsql.Rows) (*entity.AnalysisRecord, error) {
	var rec entity.AnalysisRecord
	var status string
	var vendor, title, docType, effective, termination sql.NullString
	var confidence, strategy, errMsg, rawResult sql.NullString
	var suggested uuid.NullUUID
	err := rows.Scan(
		&rec.ID, &rec.DocumentID, &rec.TenantID, &rec.UserID, &status,
		&vendor, &title, &docType, &effective, &termination,
		&confidence, &strategy, &suggested, &errMsg, &rawResult,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = constants.AnalysisStatus(status)
	rec.Vendor = nullString(vendor)
	rec.ContractTitle = nullString(title)
	rec.DocType = nullString(docType)
	rec.EffectiveDate = nullString(effective)
	rec.TerminationDate = nullString(termination)
	rec.Strategy = nullString(strategy)
	rec.Error = nullString(errMsg)
	if suggested.Valid {
		id := suggested.UUID
		rec.SuggestedContractID = &id
	}
	rec.Confidence = map[string]float64{}
	if confidence.Valid && confidence.String != "" {
		if err := json.Unmarshal([]byte(confidence.String), &rec.Confidence); err != nil {
			return nil, errors.Join(fmt.Errorf("decode confidence for %s", rec.ID), err)
		}
	}
	if rawResult.Valid && rawResult.String != "" {
		rec.RawResult = json.RawMessage(rawResult.String)
	}
	return &rec, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
