package rules

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
)

const acmeAgreement = "SERVICE AGREEMENT\n\nThis agreement is made on January 1, 2025 between Acme Corp (\"Vendor\") and BlueSky Inc (\"Client\")."

func assertConfidenceBounds(t *testing.T, b entity.FieldBundle) {
	t.Helper()
	for _, f := range constants.Fields {
		c, ok := b.Confidence[f]
		require.True(t, ok, "missing confidence for %s", f)
		assert.GreaterOrEqual(t, c, 0.0, f)
		assert.LessOrEqual(t, c, 1.0, f)
	}
}

func TestExtractServiceAgreement(t *testing.T) {
	b, trace := NewExtractor(nil).Extract(acmeAgreement, "")

	assert.Equal(t, "SERVICE AGREEMENT", b.Get(constants.FieldContractTitle))
	assert.Equal(t, ScannedTitleConfidence, b.Confidence[constants.FieldContractTitle])
	assert.Equal(t, string(constants.DocTypeServiceAgreement), b.Get(constants.FieldDocType))
	assert.Equal(t, DocTypeConfidence, b.Confidence[constants.FieldDocType])
	assert.Contains(t, b.Get(constants.FieldVendor), "Acme Corp")
	assert.Equal(t, VendorConfidence, b.Confidence[constants.FieldVendor])
	assert.Equal(t, "2025-01-01", b.Get(constants.FieldEffectiveDate))
	assert.Nil(t, b.TerminationDate)
	assert.Equal(t, BaselineConfidence, b.Confidence[constants.FieldTerminationDate])
	assert.Equal(t, "role_parenthetical", trace[constants.FieldVendor])
	assertConfidenceBounds(t, b)
}

func TestExtractGivenTitle(t *testing.T) {
	b, trace := NewExtractor(nil).Extract("whatever body text", "  Cloud Hosting Terms ")
	assert.Equal(t, "Cloud Hosting Terms", b.Get(constants.FieldContractTitle))
	assert.Equal(t, GivenTitleConfidence, b.Confidence[constants.FieldContractTitle])
	assert.Equal(t, "given", trace[constants.FieldContractTitle])
}

func TestExtractTitleSkipsArtifacts(t *testing.T) {
	text := "Page 1 of 4\n- 2 -\n© 2024 Example\nabc\n12345\nMaster Services Agreement\nbody"
	b, _ := NewExtractor(nil).Extract(text, "")
	assert.Equal(t, "Master Services Agreement", b.Get(constants.FieldContractTitle))
}

func TestExtractTitleOnlyFirstTenLines(t *testing.T) {
	text := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\nLate Title Line"
	b, _ := NewExtractor(nil).Extract(text, "")
	assert.Nil(t, b.ContractTitle)
	assert.Equal(t, BaselineConfidence, b.Confidence[constants.FieldContractTitle])
}

func TestDocTypeFirstRuleWins(t *testing.T) {
	text := "This Non-Disclosure Agreement supplements the Service Agreement between the parties."
	b, trace := NewExtractor(nil).Extract(text, "")
	assert.Equal(t, string(constants.DocTypeServiceAgreement), b.Get(constants.FieldDocType))
	assert.Equal(t, "service_agreement", trace[constants.FieldDocType])

	b, _ = NewExtractor(nil).Extract("MUTUAL NON-DISCLOSURE AGREEMENT and a statement of work", "")
	assert.Equal(t, string(constants.DocTypeNDA), b.Get(constants.FieldDocType))
}

func TestDocTypeFromTitle(t *testing.T) {
	b, _ := NewExtractor(nil).Extract("The parties agree as follows.", "Residential Lease Agreement")
	assert.Equal(t, string(constants.DocTypeLease), b.Get(constants.FieldDocType))
}

func TestDocTypes(t *testing.T) {
	cases := map[string]constants.DocType{
		"EMPLOYMENT AGREEMENT for Jane":           constants.DocTypeEmployment,
		"Purchase Order #4411":                    constants.DocTypePurchaseOrder,
		"Statement of Work No. 3":                 constants.DocTypeSOW,
		"Software License Agreement":              constants.DocTypeLicense,
		"Annual Subscription Agreement":           constants.DocTypeSubscription,
		"Master Agreement governing all orders":   constants.DocTypeMSA,
		"Please review and sign the attached memo": "",
	}
	for text, want := range cases {
		b, _ := NewExtractor(nil).Extract(text, "")
		assert.Equal(t, string(want), b.Get(constants.FieldDocType), text)
	}
}

func TestVendorRejectsShoutingAndLength(t *testing.T) {
	b, _ := NewExtractor(nil).Extract("Agreement between ACME CORP and the customer.", "")
	assert.Nil(t, b.Vendor)
	assert.Equal(t, BaselineConfidence, b.Confidence[constants.FieldVendor])

	// a rejected first candidate is not replaced by a lower-priority cue
	b, _ = NewExtractor(nil).Extract("between ACME CORP and others.\nGlobex Corp, a Delaware corporation", "")
	assert.Nil(t, b.Vendor)
	assert.Equal(t, BaselineConfidence, b.Confidence[constants.FieldVendor])

	// nor by a later match of the same cue
	b, _ = NewExtractor(nil).Extract("between ACME CORP and others. Later, between Globex Corp and Initech LLC.", "")
	assert.Nil(t, b.Vendor)

	b, _ = NewExtractor(nil).Extract("Globex Corp, a Delaware corporation, and Initech LLC, a Texas corporation", "")
	assert.Equal(t, "Globex Corp", b.Get(constants.FieldVendor))
}

func TestVendorCues(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"This Agreement is by and between Initech LLC and the Customer.", "Initech LLC"},
		{"Vendor: Hooli Inc.\nCustomer: Pied Piper", "Hooli Inc."},
		{"Umbrella Holdings Ltd, a British company, agrees", "Umbrella Holdings Ltd"},
		{"Stark Industries, Inc. (the \"Supplier\") shall deliver", "Stark Industries, Inc."},
	}
	for _, c := range cases {
		b, _ := NewExtractor(nil).Extract(c.text, "")
		assert.Equal(t, c.want, b.Get(constants.FieldVendor), c.text)
	}
}

func TestDurationFallback(t *testing.T) {
	text := "Effective Date: 2024-01-01\nThe term shall be 12 months from the Effective Date."
	b, trace := NewExtractor(nil).Extract(text, "")

	assert.Equal(t, "2024-01-01", b.Get(constants.FieldEffectiveDate))
	assert.Equal(t, StatedDateConfidence, b.Confidence[constants.FieldEffectiveDate])
	assert.Equal(t, "2025-01-01", b.Get(constants.FieldTerminationDate))
	assert.Equal(t, DurationTermConfidence, b.Confidence[constants.FieldTerminationDate])
	assert.Equal(t, "duration", trace[constants.FieldTerminationDate])
}

func TestDurationWordsAndUnits(t *testing.T) {
	text := "This agreement is effective as of 03/15/2024. The term of this Agreement is two (2) years."
	b, _ := NewExtractor(nil).Extract(text, "")
	assert.Equal(t, "2024-03-15", b.Get(constants.FieldEffectiveDate))
	assert.Equal(t, "2026-03-15", b.Get(constants.FieldTerminationDate))

	text = "Commencement Date: 2024-01-31. The term is one month."
	b, _ = NewExtractor(nil).Extract(text, "")
	assert.Equal(t, "2024-02-29", b.Get(constants.FieldTerminationDate))
}

func TestStatedTerminationBeatsDuration(t *testing.T) {
	text := "Effective Date: 01/01/2024\nExpiration Date: 06/30/2024\nThe term shall be 12 months."
	b, trace := NewExtractor(nil).Extract(text, "")
	assert.Equal(t, "2024-06-30", b.Get(constants.FieldTerminationDate))
	assert.Equal(t, StatedDateConfidence, b.Confidence[constants.FieldTerminationDate])
	assert.Equal(t, "termination_date", trace[constants.FieldTerminationDate])
}

func TestNoDurationWithoutEffectiveDate(t *testing.T) {
	b, _ := NewExtractor(nil).Extract("The term shall be 12 months.", "")
	assert.Nil(t, b.EffectiveDate)
	assert.Nil(t, b.TerminationDate)
}

func TestDatePriorityAndInvalidTokens(t *testing.T) {
	// The first cue's token is invalid, so the next normalizable one wins.
	text := "Effective Date: 13/40/2024. This agreement was entered into on 02/03/24."
	b, trace := NewExtractor(nil).Extract(text, "")
	assert.Equal(t, "2024-02-03", b.Get(constants.FieldEffectiveDate))
	assert.Equal(t, InferredDateConfidence, b.Confidence[constants.FieldEffectiveDate])
	assert.Equal(t, "entered_into", trace[constants.FieldEffectiveDate])
}

func TestTextualDates(t *testing.T) {
	text := "Commencement Date: 1st day of March, 2023\nThis Agreement terminates on Feb 28, 2026."
	b, _ := NewExtractor(nil).Extract(text, "")
	assert.Equal(t, "2023-03-01", b.Get(constants.FieldEffectiveDate))
	assert.Equal(t, "2026-02-28", b.Get(constants.FieldTerminationDate))
	assert.Equal(t, CuedDateConfidence, b.Confidence[constants.FieldTerminationDate])
}

func TestEmptyTextBaseline(t *testing.T) {
	b, trace := NewExtractor(nil).Extract("", "")
	assert.Empty(t, trace)
	for _, f := range constants.Fields {
		assert.Empty(t, b.Get(f))
		assert.Equal(t, BaselineConfidence, b.Confidence[f])
	}
}

func TestExtractFieldsNeverFails(t *testing.T) {
	e := NewExtractor(nil)
	assert.Equal(t, constants.StrategyRules, e.Strategy())

	b, raw, err := e.ExtractFields(context.Background(), extract.ExtractRequest{Text: acmeAgreement})
	require.NoError(t, err)
	assertConfidenceBounds(t, b)

	var trace map[string]string
	require.NoError(t, json.Unmarshal(raw, &trace))
	assert.Equal(t, "service_agreement", trace[constants.FieldDocType])
}
