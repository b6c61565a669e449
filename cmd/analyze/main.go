package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/core"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/contract-extractor/internal/rules"
	"github.com/joseph-ayodele/contract-extractor/internal/textextract"
)

// analyze runs extraction on one local file without a database and prints the outcome as JSON.
func main() {
	var (
		file      = flag.String("file", "", "contract file to analyze (required)")
		title     = flag.String("title", "", "document title hint")
		rulesOnly = flag.Bool("rules-only", false, "skip the AI strategy even if configured")
		timeout   = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()
	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -file <path> [-title <title>] [-rules-only]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("read file", "path", *file, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	text := textextract.NewExtractor(textextract.Config{
		Pdftotext: cfg.TextExtract.PdfToTextBin,
		MaxBytes:  cfg.TextExtract.MaxBytes,
	}, logger)
	meta := extract.Metadata{
		Title:    *title,
		Filename: filepath.Base(*file),
		MimeType: constants.MimeForExt(filepath.Ext(*file)),
	}
	res := text.Extract(ctx, data, meta)

	var client llm.CompletionService
	if cfg.LLM.Enabled() && !*rulesOnly {
		client = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}
	proc := core.NewProcessor(logger, nil, nil, nil, nil, text,
		llm.NewExtractor(client, logger, llm.WithTimeout(cfg.LLM.Timeout)),
		rules.NewExtractor(logger))

	out := proc.Extract(ctx, extract.ExtractRequest{Text: res.Text, Title: *title})

	report := struct {
		File       string              `json:"file"`
		TextMethod string              `json:"text_method"`
		Warnings   []string            `json:"text_warnings,omitempty"`
		Strategy   constants.Strategy  `json:"strategy,omitempty"`
		Bundle     *entity.FieldBundle `json:"bundle,omitempty"`
		Attempts   []core.Attempt      `json:"attempts"`
		Raw        json.RawMessage     `json:"raw,omitempty"`
		Error      string              `json:"error,omitempty"`
	}{
		File:       *file,
		TextMethod: res.Method,
		Warnings:   res.Warnings,
		Strategy:   out.Strategy,
		Bundle:     out.Bundle,
		Attempts:   out.Attempts,
	}
	if json.Valid(out.Raw) {
		report.Raw = out.Raw
	}
	if out.Err != nil {
		report.Error = out.Err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	if out.Err != nil {
		os.Exit(1)
	}
}
