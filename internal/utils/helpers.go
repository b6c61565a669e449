package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ToPBAnalysis renders a record as a protobuf Struct. Absent fields are omitted,
// confidence is always present.
func ToPBAnalysis(r *entity.AnalysisRecord) (*structpb.Struct, error) {
	conf := make(map[string]any, len(r.Confidence))
	for k, v := range r.Confidence {
		conf[k] = v
	}
	m := map[string]any{
		"id":          r.ID.String(),
		"document_id": r.DocumentID.String(),
		"tenant_id":   r.TenantID,
		"user_id":     r.UserID,
		"status":      string(r.Status),
		"confidence":  conf,
		"created_at":  r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	optional := map[string]*string{
		"vendor":           r.Vendor,
		"contract_title":   r.ContractTitle,
		"doc_type":         r.DocType,
		"effective_date":   r.EffectiveDate,
		"termination_date": r.TerminationDate,
		"strategy":         r.Strategy,
		"error":            r.Error,
	}
	for k, v := range optional {
		if v != nil {
			m[k] = *v
		}
	}
	if r.SuggestedContractID != nil {
		m["suggested_contract_id"] = r.SuggestedContractID.String()
	}
	if len(r.RawResult) > 0 {
		var raw any
		if err := json.Unmarshal(r.RawResult, &raw); err != nil {
			return nil, fmt.Errorf("decode raw_result for %s: %w", r.ID, err)
		}
		m["raw_result"] = raw
	}
	return structpb.NewStruct(m)
}

func ToPBAnalyses(recs []*entity.AnalysisRecord) ([]any, error) {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		s, err := ToPBAnalysis(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s.AsMap())
	}
	return out, nil
}
