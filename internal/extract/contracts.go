package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

// Metadata describes the document a text was taken from.
type Metadata struct {
	Title    string
	Filename string
	MimeType string
}

// TextExtractor is Stage 1: document bytes -> plain text. It never fails; unsupported or
// unreadable content degrades to a metadata-only string.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, meta Metadata) TextExtractionResult
}

type TextExtractionResult struct {
	Text     string
	Format   constants.Format
	Method   string // "plain" | "pdftotext" | "metadata"
	Duration time.Duration
	Warnings []string
}

// ExtractRequest is the input to a FieldExtractor.
type ExtractRequest struct {
	Text       string
	Title      string
	DocumentID string
	TenantID   string
}

// FieldExtractor is Stage 2: text -> field bundle. Implementations return the raw strategy
// output alongside the bundle for audit.
type FieldExtractor interface {
	Strategy() constants.Strategy
	ExtractFields(ctx context.Context, req ExtractRequest) (entity.FieldBundle, []byte /*raw*/, error)
}
