package llm

import (
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// MaxPromptChars bounds the contract text included in a prompt.
const MaxPromptChars = 15000

// TruncationMarker is appended when the contract text was cut.
const TruncationMarker = "\n…(truncated)"

// BuildSystemPrompt describes the task, the output keys and the formatting rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a contract metadata extractor. Return ONLY one JSON object that matches the provided JSON Schema.",
		"Keys: " + strings.Join(constants.Fields, ", ") + ", confidence.",
		"'vendor' is the counterparty providing goods or services, with its legal entity suffix (e.g. 'Acme Corp').",
		"'contract_title' is the document's own title.",
		"'doc_type' must be exactly one of: " + strings.Join(constants.DocTypes, ", ") + ".",
		"'effective_date' and 'termination_date' use ISO-8601 (YYYY-MM-DD). If only a term length is stated, compute the termination date from the effective date.",
		"'confidence' maps every key above to a number between 0 and 1.",
		"If a value is unknown or uncertain, set it to null with a low confidence. Never guess.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the title hint and the (possibly truncated) contract text.
func BuildUserPrompt(text, title string) string {
	var b strings.Builder
	if t := strings.TrimSpace(title); t != "" {
		b.WriteString("Document title: ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	body, _ := TruncateText(strings.TrimSpace(text), MaxPromptChars)
	b.WriteString("\nContract text:\n")
	b.WriteString(body)
	return b.String()
}

// TruncateText keeps at most max runes of s and appends TruncationMarker when it cuts.
func TruncateText(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]) + TruncationMarker, true
}
