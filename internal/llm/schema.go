package llm

import (
	"github.com/joseph-ayodele/contract-extractor/constants"
)

// BuildContractJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every field key is REQUIRED but may be null; extra keys are rejected.
func BuildContractJSONSchema() map[string]any {
	nullableString := func() map[string]any {
		return map[string]any{"type": []string{"string", "null"}}
	}
	props := map[string]any{}
	confProps := map[string]any{}
	for _, f := range constants.Fields {
		props[f] = nullableString()
		confProps[f] = map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
	}
	props["confidence"] = map[string]any{
		"type":                 "object",
		"properties":           confProps,
		"additionalProperties": false,
	}

	required := append([]string{}, constants.Fields...)
	required = append(required, "confidence")

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}
