// Package rules is the deterministic, pattern-based field extractor. It never fails: fields
// no rule matches keep the baseline confidence and stay unset.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/dates"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
)

// Extractor implements extract.FieldExtractor with regular expressions.
type Extractor struct {
	logger *slog.Logger
}

var _ extract.FieldExtractor = (*Extractor)(nil)

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) Strategy() constants.Strategy { return constants.StrategyRules }

// Trace names the rule that produced each field; it is persisted as the raw result.
type Trace map[string]string

// ExtractFields runs Extract and returns the trace as the raw payload. The error is always nil.
func (e *Extractor) ExtractFields(ctx context.Context, req extract.ExtractRequest) (entity.FieldBundle, []byte, error) {
	start := time.Now()
	bundle, trace := e.Extract(req.Text, req.Title)
	raw, _ := json.Marshal(trace)

	e.logger.Info("rules.extract.ok",
		"document_id", req.DocumentID,
		"text_len", len(req.Text),
		"vendor", bundle.Get(constants.FieldVendor),
		"doc_type", bundle.Get(constants.FieldDocType),
		"effective_date", bundle.Get(constants.FieldEffectiveDate),
		"termination_date", bundle.Get(constants.FieldTerminationDate),
		"rules", len(trace),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return bundle, raw, nil
}

// Extract applies the rules in their fixed order: title, document type, vendor, effective
// date, termination date, then the duration fallback.
func (e *Extractor) Extract(text, title string) (entity.FieldBundle, Trace) {
	b := entity.NewFieldBundle(BaselineConfidence)
	trace := Trace{}
	title = strings.TrimSpace(title)

	if title != "" {
		b.Set(constants.FieldContractTitle, title, GivenTitleConfidence)
		trace[constants.FieldContractTitle] = "given"
	} else if t := scanTitle(text); t != "" {
		b.Set(constants.FieldContractTitle, t, ScannedTitleConfidence)
		trace[constants.FieldContractTitle] = "first_line"
	}

	if dt, rule := matchDocType(title + "\n" + text); dt != "" {
		b.Set(constants.FieldDocType, string(dt), DocTypeConfidence)
		trace[constants.FieldDocType] = rule
	}

	if v, rule := matchVendor(text); v != "" {
		b.Set(constants.FieldVendor, v, VendorConfidence)
		trace[constants.FieldVendor] = rule
	}

	if d, conf, rule := matchDate(text, effectiveDateRules); d != "" {
		b.Set(constants.FieldEffectiveDate, d, conf)
		trace[constants.FieldEffectiveDate] = rule
	}

	if d, conf, rule := matchDate(text, terminationDateRules); d != "" {
		b.Set(constants.FieldTerminationDate, d, conf)
		trace[constants.FieldTerminationDate] = rule
	}

	if b.EffectiveDate != nil && b.TerminationDate == nil {
		if end, ok := durationEnd(text, *b.EffectiveDate); ok {
			b.Set(constants.FieldTerminationDate, end, DurationTermConfidence)
			trace[constants.FieldTerminationDate] = "duration"
		} else {
			e.logger.Debug("rules.extract.no_duration", "effective_date", *b.EffectiveDate)
		}
	}
	return b, trace
}

func scanTitle(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > titleScanLines {
		lines = lines[:titleScanLines]
	}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		n := len([]rune(l))
		if n < titleMinLen || n > titleMaxLen {
			continue
		}
		if reTitleArtifact.MatchString(l) || !reHasLetter.MatchString(l) {
			continue
		}
		return l
	}
	return ""
}

func matchDocType(text string) (constants.DocType, string) {
	for _, r := range docTypeRules {
		if r.re.MatchString(text) {
			return r.docType, r.name
		}
	}
	return "", ""
}

// matchVendor evaluates only the first match of the highest-priority rule that matches.
// If that candidate fails the length or shouting checks the vendor stays unset.
func matchVendor(text string) (string, string) {
	for _, r := range vendorRules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if candidate := cleanVendor(m[1]); acceptVendor(candidate) {
			return candidate, r.name
		}
		return "", r.name
	}
	return "", ""
}

func cleanVendor(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ", ")
}

func acceptVendor(s string) bool {
	n := len([]rune(s))
	if n <= vendorMinLenExclusive || n >= vendorMaxLenExclusive {
		return false
	}
	return strings.ToUpper(s) != s
}

// matchDate walks rules in priority order and returns the first token that normalizes.
func matchDate(text string, rules []dateRule) (string, float64, string) {
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			if d, err := normalizeToken(m[1]); err == nil {
				return d, r.confidence, r.name
			}
		}
	}
	return "", 0, ""
}

// normalizeToken rewrites month-name dates as M/D/YYYY before handing them to dates.Normalize.
func normalizeToken(tok string) (string, error) {
	tok = strings.TrimSpace(tok)
	if m := reTextualMDY.FindStringSubmatch(tok); m != nil {
		return dates.Normalize(fmt.Sprintf("%d/%s/%s", monthNumber(m[1]), m[2], m[3]))
	}
	if m := reTextualDMY.FindStringSubmatch(tok); m != nil {
		return dates.Normalize(fmt.Sprintf("%d/%s/%s", monthNumber(m[2]), m[1], m[3]))
	}
	return dates.Normalize(tok)
}

var monthPrefixes = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

func monthNumber(name string) int {
	n := strings.ToLower(name)
	for i, p := range monthPrefixes {
		if strings.HasPrefix(n, p) {
			return i + 1
		}
	}
	return 0
}

func durationEnd(text, effective string) (string, bool) {
	for _, m := range reDurationTerm.FindAllStringSubmatch(text, -1) {
		n := termCount(m[1], m[2], m[3])
		if n <= 0 {
			continue
		}
		unit, ok := dates.ParseUnit(m[4])
		if !ok {
			continue
		}
		end, err := dates.AddTerm(effective, n, unit)
		if err != nil {
			return "", false
		}
		return end, true
	}
	return "", false
}

func termCount(digits, word, wordDigits string) int {
	for _, d := range []string{digits, wordDigits} {
		if d != "" {
			if n, err := strconv.Atoi(d); err == nil {
				return n
			}
		}
	}
	return numberWords[strings.ToLower(word)]
}
