// Package textextract turns stored document bytes into plain text for the field extractors.
package textextract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
)

// Extraction methods reported in extract.TextExtractionResult.Method.
const (
	MethodPlain     = "plain"
	MethodHTML      = "html"
	MethodPDF       = "pdf"
	MethodPdfToText = "pdftotext"
	MethodMetadata  = "metadata"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxBytes  int64  // input larger than this is cut before conversion; 0 = no limit
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

var _ extract.TextExtractor = (*Extractor)(nil)

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, execRunner{}, logger)
}

// NewExtractorWithRunner is NewExtractor with a custom command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract never fails. Content it cannot read is replaced by MetadataText(meta).
func (e *Extractor) Extract(ctx context.Context, data []byte, meta extract.Metadata) extract.TextExtractionResult {
	start := time.Now()
	format := constants.FormatForMime(meta.MimeType)
	if format == constants.FormatOther && isGenericMime(meta.MimeType) && meta.Filename != "" {
		format = constants.FormatForMime(constants.MimeForExt(extOf(meta.Filename)))
	}
	res := extract.TextExtractionResult{Format: format}

	if e.cfg.MaxBytes > 0 && int64(len(data)) > e.cfg.MaxBytes {
		res.Warnings = append(res.Warnings, fmt.Sprintf("input truncated to %d bytes", e.cfg.MaxBytes))
		data = data[:e.cfg.MaxBytes]
	}

	var text string
	switch format {
	case constants.FormatText:
		text = Normalize(string(data))
		res.Method = MethodPlain
	case constants.FormatHTML:
		out, err := HTMLToText(bytes.NewReader(data))
		if err != nil {
			res.Warnings = append(res.Warnings, "html: "+err.Error())
		} else {
			text = Normalize(out)
			res.Method = MethodHTML
		}
	case constants.FormatPDF:
		// in-process first; pdftotext copes with layouts the reader cannot
		out, err := PDFPlainText(data)
		if err == nil {
			text = Normalize(out)
			res.Method = MethodPDF
			break
		}
		res.Warnings = append(res.Warnings, "pdf: "+err.Error())
		out, warns, err := e.pdfToText(ctx, data)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			res.Warnings = append(res.Warnings, "pdftotext: "+err.Error())
		} else {
			text = Normalize(out)
			res.Method = MethodPdfToText
		}
	default:
		res.Warnings = append(res.Warnings, fmt.Sprintf("unsupported mime type %q", meta.MimeType))
	}

	if strings.TrimSpace(text) == "" {
		text = MetadataText(meta)
		res.Method = MethodMetadata
	}
	res.Text = text
	res.Duration = time.Since(start)

	e.logger.Info("textextract.ok",
		"format", res.Format,
		"method", res.Method,
		"chars", utf8.RuneCountInString(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res
}

func (e *Extractor) pdfToText(ctx context.Context, data []byte) (string, []string, error) {
	f, err := os.CreateTemp("", "contract-*.pdf")
	if err != nil {
		return "", nil, err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		return "", nil, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", f.Name(), "-")
	if err != nil {
		var warns []string
		if s := strings.TrimSpace(string(errb)); s != "" {
			warns = append(warns, truncate(s, 512))
		}
		return "", warns, err
	}
	return string(out), nil, nil
}

// MetadataText is the stand-in text for documents whose content cannot be read.
func MetadataText(meta extract.Metadata) string {
	var lines []string
	if t := strings.TrimSpace(meta.Title); t != "" {
		lines = append(lines, t)
	}
	if f := strings.TrimSpace(meta.Filename); f != "" {
		lines = append(lines, "Filename: "+f)
	}
	return strings.Join(lines, "\n")
}

func isGenericMime(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	return m == "" || m == "application/octet-stream"
}

func extOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return filename[i+1:]
}
