package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
)

const contractSchemaURL = "mem://contract-fields.json"

var contractSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema(contractSchemaURL, BuildContractJSONSchema())
})

// CompileSchema compiles a schema held as a Go map.
func CompileSchema(url string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	s, err := jsonschema.CompileString(url, string(b))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// ValidateContractJSON checks model output against the contract-fields schema.
// Mismatches wrap common.ErrValidation.
func ValidateContractJSON(data []byte) error {
	s, err := contractSchema()
	if err != nil {
		return err
	}
	return validateWith(s, data)
}

// ValidateJSONAgainstSchema compiles schemaMap and validates data against it.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	s, err := CompileSchema("mem://adhoc.json", schemaMap)
	if err != nil {
		return err
	}
	return validateWith(s, data)
}

func validateWith(s *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: not json: %v", common.ErrValidation, err)
	}
	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", common.ErrValidation, ve.Error())
		}
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}
