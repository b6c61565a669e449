package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to AnalysisStatus
		ok       bool
	}{
		{AnalysisStatusPending, AnalysisStatusProcessing, true},
		{AnalysisStatusProcessing, AnalysisStatusProcessing, true},
		{AnalysisStatusProcessing, AnalysisStatusCompleted, true},
		{AnalysisStatusProcessing, AnalysisStatusFailed, true},
		{AnalysisStatusPending, AnalysisStatusFailed, false},
		{AnalysisStatusPending, AnalysisStatusCompleted, false},
		{AnalysisStatusCompleted, AnalysisStatusProcessing, false},
		{AnalysisStatusCompleted, AnalysisStatusPending, false},
		{AnalysisStatusFailed, AnalysisStatusProcessing, false},
		{AnalysisStatusCompleted, AnalysisStatusFailed, false},
		{AnalysisStatusProcessing, AnalysisStatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestFormatForMime(t *testing.T) {
	assert.Equal(t, FormatText, FormatForMime("text/plain; charset=utf-8"))
	assert.Equal(t, FormatPDF, FormatForMime("Application/PDF"))
	assert.Equal(t, FormatOther, FormatForMime("image/png"))
	assert.Equal(t, FormatHTML, FormatForMime("text/html; charset=utf-8"))
	assert.Equal(t, FormatHTML, FormatForMime(MimeForExt(".htm")))
	assert.Equal(t, "application/pdf", MimeForExt(".PDF"))
	assert.Equal(t, "application/octet-stream", MimeForExt("heic"))
}
