package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// StripCodeFence removes a ```json ... ``` wrapper some models add despite JSON mode.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (counterparty -> vendor, title -> contract_title)
// - Turns blank strings into null
// - Upper-snakes doc_type and nulls values outside the DocType enum
// - Coerces and clamps confidence numbers into [0,1], dropping non-numeric ones
// - Removes unknown keys
// It never adds a missing required key: absent keys still fail schema validation.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: top-level value is not an object")
	}

	changed := make([]string, 0, 8)
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			changed = append(changed, from+"->"+to)
		}
	}
	rename("counterparty", constants.FieldVendor)
	rename("vendor_name", constants.FieldVendor)
	rename("title", constants.FieldContractTitle)
	rename("document_type", constants.FieldDocType)
	rename("type", constants.FieldDocType)

	for _, k := range constants.Fields {
		if s, ok := m[k].(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				m[k] = nil
				changed = append(changed, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	if s, ok := m[constants.FieldDocType].(string); ok {
		dt := strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(s))
		if constants.IsDocType(dt) {
			m[constants.FieldDocType] = dt
		} else {
			m[constants.FieldDocType] = nil
			changed = append(changed, "doc_type(unknown)")
		}
	}

	if conf, ok := m["confidence"].(map[string]any); ok {
		for k, v := range maps.Clone(conf) {
			if !isField(k) {
				delete(conf, k)
				changed = append(changed, "confidence."+k+"(unknown)")
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				delete(conf, k)
				changed = append(changed, "confidence."+k+"(type)")
				continue
			}
			conf[k] = clamp01(f)
		}
	}

	for k := range maps.Clone(m) {
		if k != "confidence" && !isField(k) {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "changed", changed)
	}
	return out, changed, nil
}

func isField(k string) bool {
	for _, f := range constants.Fields {
		if f == k {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return 0, false
		}
		if strings.HasSuffix(strings.TrimSpace(t), "%") {
			f = f / 100
		}
		return f, true
	}
	return 0, false
}

func clamp01(f float64) float64 {
	switch {
	case f != f, f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
