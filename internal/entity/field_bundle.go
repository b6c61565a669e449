package entity

import (
	"github.com/joseph-ayodele/contract-extractor/constants"
)

// FieldBundle is the output of one extraction strategy: the extracted values plus a
// parallel confidence map keyed by constants.Field*.
type FieldBundle struct {
	Vendor          *string            `json:"vendor"`
	ContractTitle   *string            `json:"contract_title"`
	DocType         *string            `json:"doc_type"`
	EffectiveDate   *string            `json:"effective_date"`
	TerminationDate *string            `json:"termination_date"`
	Confidence      map[string]float64 `json:"confidence"`
}

// NewFieldBundle returns an empty bundle with every field at the given baseline confidence.
func NewFieldBundle(baseline float64) FieldBundle {
	conf := make(map[string]float64, len(constants.Fields))
	for _, f := range constants.Fields {
		conf[f] = ClampConfidence(baseline)
	}
	return FieldBundle{Confidence: conf}
}

// Set stores value for field with the given confidence. Empty values are ignored.
func (b *FieldBundle) Set(field, value string, confidence float64) {
	if value == "" {
		return
	}
	v := value
	switch field {
	case constants.FieldVendor:
		b.Vendor = &v
	case constants.FieldContractTitle:
		b.ContractTitle = &v
	case constants.FieldDocType:
		b.DocType = &v
	case constants.FieldEffectiveDate:
		b.EffectiveDate = &v
	case constants.FieldTerminationDate:
		b.TerminationDate = &v
	default:
		return
	}
	if b.Confidence == nil {
		b.Confidence = map[string]float64{}
	}
	b.Confidence[field] = ClampConfidence(confidence)
}

// Get returns the value stored for field, or "" when unset.
func (b FieldBundle) Get(field string) string {
	var p *string
	switch field {
	case constants.FieldVendor:
		p = b.Vendor
	case constants.FieldContractTitle:
		p = b.ContractTitle
	case constants.FieldDocType:
		p = b.DocType
	case constants.FieldEffectiveDate:
		p = b.EffectiveDate
	case constants.FieldTerminationDate:
		p = b.TerminationDate
	}
	if p == nil {
		return ""
	}
	return *p
}

// ClampConfidence forces c into [0,1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case c != c:
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
