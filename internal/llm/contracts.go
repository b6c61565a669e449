package llm

import (
	"context"
)

// CompletionRequest is one prompt sent to a completion service.
type CompletionRequest struct {
	System   string
	User     string
	Schema   map[string]any // optional; sent to the model as an extra system message
	JSONMode bool
}

// CompletionService turns a prompt into text. Implementations own retry/backoff; callers
// bound the wait with the context deadline.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ContractFields is the JSON shape requested from the model. Every key must be present;
// unknown values are null.
type ContractFields struct {
	Vendor          *string            `json:"vendor"`
	ContractTitle   *string            `json:"contract_title"`
	DocType         *string            `json:"doc_type"`
	EffectiveDate   *string            `json:"effective_date"`
	TerminationDate *string            `json:"termination_date"`
	Confidence      map[string]float64 `json:"confidence"`
}
