package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
)

type fakeCompletion struct {
	content string
	err     error
	wait    time.Duration
	calls   int
	last    CompletionRequest
}

func (f *fakeCompletion) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls++
	f.last = req
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.content, f.err
}

const goodResponse = `{
  "vendor": "Acme Corp",
  "contract_title": "Master Services Agreement",
  "doc_type": "msa",
  "effective_date": "2024-01-01",
  "termination_date": "2025-01-01",
  "confidence": {"vendor": 0.9, "contract_title": 0.8, "doc_type": 0.85, "effective_date": 0.95, "termination_date": 0.7}
}`

func TestExtractFieldsOK(t *testing.T) {
	fc := &fakeCompletion{content: goodResponse}
	e := NewExtractor(fc, nil)

	b, raw, err := e.ExtractFields(context.Background(), extract.ExtractRequest{Text: "contract text", Title: "MSA"})
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls)
	assert.True(t, fc.last.JSONMode)
	assert.NotNil(t, fc.last.Schema)
	assert.Contains(t, fc.last.User, "Document title: MSA")

	assert.Equal(t, "Acme Corp", b.Get(constants.FieldVendor))
	assert.Equal(t, string(constants.DocTypeMSA), b.Get(constants.FieldDocType))
	assert.Equal(t, "2024-01-01", b.Get(constants.FieldEffectiveDate))
	assert.Equal(t, "2025-01-01", b.Get(constants.FieldTerminationDate))
	assert.InDelta(t, 0.95, b.Confidence[constants.FieldEffectiveDate], 1e-9)
	assert.NotEmpty(t, raw)
}

func TestExtractFieldsDropsBadDatesOnly(t *testing.T) {
	fc := &fakeCompletion{content: `{
	  "vendor": "Acme Corp", "contract_title": null, "doc_type": null,
	  "effective_date": "01/02/2024", "termination_date": "2024-13-45",
	  "confidence": {"vendor": 1.7, "effective_date": 0.9, "termination_date": "80%"}
	}`}
	b, _, err := NewExtractor(fc, nil).ExtractFields(context.Background(), extract.ExtractRequest{Text: "x"})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", b.Get(constants.FieldVendor))
	assert.Equal(t, 1.0, b.Confidence[constants.FieldVendor])
	assert.Nil(t, b.EffectiveDate)
	assert.Nil(t, b.TerminationDate)
	assert.Equal(t, 0.0, b.Confidence[constants.FieldEffectiveDate])
	assert.Equal(t, 0.0, b.Confidence[constants.FieldTerminationDate])
	for _, f := range constants.Fields {
		assert.GreaterOrEqual(t, b.Confidence[f], 0.0)
		assert.LessOrEqual(t, b.Confidence[f], 1.0)
	}
}

func TestExtractFieldsFailures(t *testing.T) {
	cases := map[string]*fakeCompletion{
		"empty":         {content: "   "},
		"not json":      {content: "Sure! The vendor is Acme."},
		"missing keys":  {content: `{"vendor": "Acme Corp", "confidence": {}}`},
		"wrong type":    {content: `{"vendor": 5, "contract_title": null, "doc_type": null, "effective_date": null, "termination_date": null, "confidence": {}}`},
		"array":         {content: `[1,2,3]`},
		"service error": {err: errors.New("503 upstream")},
	}
	for name, fc := range cases {
		t.Run(name, func(t *testing.T) {
			b, _, err := NewExtractor(fc, nil).ExtractFields(context.Background(), extract.ExtractRequest{Text: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrExtraction)
			var xe *common.ExtractionError
			require.ErrorAs(t, err, &xe)
			assert.Equal(t, constants.StrategyAI, xe.Strategy)
			assert.Nil(t, b.Vendor)
			assert.Equal(t, 1, fc.calls, "no retries")
		})
	}
}

func TestExtractFieldsCodeFence(t *testing.T) {
	fc := &fakeCompletion{content: "```json\n" + goodResponse + "\n```"}
	b, _, err := NewExtractor(fc, nil).ExtractFields(context.Background(), extract.ExtractRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", b.Get(constants.FieldVendor))
}

func TestExtractFieldsTimeout(t *testing.T) {
	fc := &fakeCompletion{content: goodResponse, wait: time.Second}
	_, _, err := NewExtractor(fc, nil, WithTimeout(20*time.Millisecond)).
		ExtractFields(context.Background(), extract.ExtractRequest{Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtractFieldsUnavailable(t *testing.T) {
	e := NewExtractor(nil, nil)
	assert.False(t, e.Available())
	_, _, err := e.ExtractFields(context.Background(), extract.ExtractRequest{Text: "x"})
	assert.ErrorIs(t, err, common.ErrCompletionUnavailable)
}

func TestBuildUserPromptTruncates(t *testing.T) {
	long := strings.Repeat("z", MaxPromptChars+10)
	p := BuildUserPrompt(long, "")
	assert.True(t, strings.HasSuffix(p, TruncationMarker))
	assert.Equal(t, MaxPromptChars, strings.Count(p, "z"))

	short := BuildUserPrompt("short text", "Title")
	assert.NotContains(t, short, TruncationMarker)
}

func TestTruncateTextRunes(t *testing.T) {
	s, cut := TruncateText("ééééé", 3)
	assert.True(t, cut)
	assert.Equal(t, "ééé"+TruncationMarker, s)

	s, cut = TruncateText("éé", 3)
	assert.False(t, cut)
	assert.Equal(t, "éé", s)
}

func TestSchemaRejectsExtraKeys(t *testing.T) {
	err := ValidateContractJSON([]byte(`{
	  "vendor": null, "contract_title": null, "doc_type": null,
	  "effective_date": null, "termination_date": null, "confidence": {}, "notes": "x"}`))
	assert.ErrorIs(t, err, common.ErrValidation)

	err = ValidateJSONAgainstSchema(BuildContractJSONSchema(), []byte(`{
	  "vendor": "Acme", "contract_title": null, "doc_type": null,
	  "effective_date": null, "termination_date": null, "confidence": {"vendor": 0.9}}`))
	assert.NoError(t, err)
}

func TestSanitizeUnknownDocType(t *testing.T) {
	out, changed, err := NormalizeAndSanitizeJSON([]byte(`{"document_type": "Joint Venture", "extra": 1, "title": "  "}`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"doc_type": null, "contract_title": null}`, string(out))
	assert.NotEmpty(t, changed)
}
