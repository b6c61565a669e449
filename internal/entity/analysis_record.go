package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// AnalysisRecord is one extraction request and its outcome.
type AnalysisRecord struct {
	ID                  uuid.UUID                `json:"id"`
	DocumentID          uuid.UUID                `json:"document_id"`
	TenantID            string                   `json:"tenant_id"`
	UserID              string                   `json:"user_id"`
	Status              constants.AnalysisStatus `json:"status"`
	Vendor              *string                  `json:"vendor,omitempty"`
	ContractTitle       *string                  `json:"contract_title,omitempty"`
	DocType             *string                  `json:"doc_type,omitempty"`
	EffectiveDate       *string                  `json:"effective_date,omitempty"`
	TerminationDate     *string                  `json:"termination_date,omitempty"`
	Confidence          map[string]float64       `json:"confidence"`
	Strategy            *string                  `json:"strategy,omitempty"`
	SuggestedContractID *uuid.UUID               `json:"suggested_contract_id,omitempty"`
	Error               *string                  `json:"error,omitempty"`
	RawResult           json.RawMessage          `json:"raw_result,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// AnalysisUpdate carries the columns written alongside a status transition.
// Nil fields are left untouched.
type AnalysisUpdate struct {
	Bundle              *FieldBundle
	Strategy            *constants.Strategy
	SuggestedContractID *uuid.UUID
	Error               *string
	RawResult           json.RawMessage
}

// AnalysisFilter narrows List queries. Zero values mean "any".
type AnalysisFilter struct {
	TenantID      string
	Statuses      []constants.AnalysisStatus
	CreatedFrom   *time.Time // inclusive
	CreatedBefore *time.Time // exclusive
	Limit         int
}
