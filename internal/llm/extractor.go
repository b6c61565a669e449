package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/dates"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
)

// DefaultValueConfidence is used when the model returns a value without a score.
const DefaultValueConfidence = 0.5

var reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Extractor is the AI-backed extract.FieldExtractor. It makes exactly one completion call
// per extraction and never returns a partially valid bundle.
type Extractor struct {
	client  CompletionService
	timeout time.Duration
	logger  *slog.Logger
}

var _ extract.FieldExtractor = (*Extractor)(nil)

type Option func(*Extractor)

// WithTimeout bounds the completion call; a timed-out call is an extraction failure.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func NewExtractor(client CompletionService, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{client: client, timeout: 60 * time.Second, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Extractor) Strategy() constants.Strategy { return constants.StrategyAI }

// Available reports whether a completion service is wired in.
func (e *Extractor) Available() bool { return e != nil && e.client != nil }

func (e *Extractor) ExtractFields(ctx context.Context, req extract.ExtractRequest) (entity.FieldBundle, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	if !e.Available() {
		return entity.FieldBundle{}, nil, common.NewExtractionError(constants.StrategyAI, common.ErrCompletionUnavailable)
	}

	_, truncated := TruncateText(strings.TrimSpace(req.Text), MaxPromptChars)
	e.logger.Info("llm.extract.start",
		"req_id", rid,
		"document_id", req.DocumentID,
		"text_len", len(req.Text),
		"truncated", truncated,
		"has_title", req.Title != "",
	)

	schema := BuildContractJSONSchema()
	callCtx, cancel := common.WithTimeout(ctx, e.timeout)
	defer cancel()
	content, err := e.client.Complete(callCtx, CompletionRequest{
		System:   BuildSystemPrompt(),
		User:     BuildUserPrompt(req.Text, req.Title) + "\n\nReturn ONLY JSON that matches the provided schema.",
		Schema:   schema,
		JSONMode: true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("completion timed out after %s: %w", e.timeout, err)
		}
		e.logger.Error("llm.extract.completion_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.FieldBundle{}, nil, common.NewExtractionError(constants.StrategyAI, err)
	}

	bundle, raw, err := e.parse(content, rid)
	if err != nil {
		e.logger.Error("llm.extract.invalid_response",
			"req_id", rid, "error", err, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.FieldBundle{}, raw, common.NewExtractionError(constants.StrategyAI, err)
	}

	e.logger.Info("llm.extract.ok",
		"req_id", rid,
		"vendor", bundle.Get(constants.FieldVendor),
		"doc_type", bundle.Get(constants.FieldDocType),
		"effective_date", bundle.Get(constants.FieldEffectiveDate),
		"termination_date", bundle.Get(constants.FieldTerminationDate),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return bundle, raw, nil
}

// parse turns model output into a bundle. Empty content, invalid JSON and missing keys are
// errors; an individual date the normalizer rejects only unsets that field.
func (e *Extractor) parse(content string, rid string) (entity.FieldBundle, []byte, error) {
	content = StripCodeFence(content)
	if content == "" {
		return entity.FieldBundle{}, nil, errors.New("empty completion content")
	}
	raw := []byte(content)
	if !json.Valid(raw) {
		return entity.FieldBundle{}, raw, errors.New("completion content is not valid JSON")
	}

	cleaned, _, err := NormalizeAndSanitizeJSON(raw, e.logger)
	if err != nil {
		return entity.FieldBundle{}, raw, err
	}
	if err := ValidateContractJSON(cleaned); err != nil {
		return entity.FieldBundle{}, raw, err
	}

	var out ContractFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return entity.FieldBundle{}, raw, fmt.Errorf("unmarshal fields: %w", err)
	}

	b := entity.NewFieldBundle(0)
	set := func(field string, v *string) {
		conf, scored := out.Confidence[field]
		if v == nil || *v == "" {
			if scored {
				b.Confidence[field] = entity.ClampConfidence(conf)
			}
			return
		}
		if !scored {
			conf = DefaultValueConfidence
		}
		b.Set(field, *v, conf)
	}
	set(constants.FieldVendor, out.Vendor)
	set(constants.FieldContractTitle, out.ContractTitle)
	set(constants.FieldDocType, out.DocType)
	for field, v := range map[string]*string{
		constants.FieldEffectiveDate:   out.EffectiveDate,
		constants.FieldTerminationDate: out.TerminationDate,
	} {
		n := e.normalizeDate(v, field, rid)
		if n == nil && v != nil && *v != "" {
			b.Confidence[field] = 0
			continue
		}
		set(field, n)
	}
	return b, cleaned, nil
}

func (e *Extractor) normalizeDate(v *string, field, rid string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if !reISODate.MatchString(s) {
		e.logger.Warn("llm.extract.date_dropped", "req_id", rid, "field", field, "value", s, "reason", "not YYYY-MM-DD")
		return nil
	}
	n, err := dates.Normalize(s)
	if err != nil {
		e.logger.Warn("llm.extract.date_dropped", "req_id", rid, "field", field, "value", s, "error", err)
		return nil
	}
	return &n
}
