package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/app"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/core"
	"github.com/joseph-ayodele/contract-extractor/internal/export"
	"github.com/joseph-ayodele/contract-extractor/internal/utils"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		sqlitePath = flag.String("sqlite", "", "use a SQLite database at this path instead of DB_URL")
		dir        = flag.String("dir", "", "directory to process contracts from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		tenant     = flag.String("tenant", "local", "tenant id to file documents under")
		user       = flag.String("user", "contract-batch", "user id recorded on each analysis")
		fromStr    = flag.String("from", "", "export analyses created on or after YYYY-MM-DD")
		toStr      = flag.String("to", "", "export analyses created on or before YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "contracts.xlsx")
	}

	req := export.Request{TenantID: *tenant}
	for _, d := range []struct {
		flag string
		val  string
		dst  **time.Time
	}{{"--from", *fromStr, &req.From}, {"--to", *toStr, &req.To}} {
		if d.val == "" {
			continue
		}
		t, err := utils.ParseYMD(d.val)
		if err != nil {
			printError("Error: invalid %s date format, use YYYY-MM-DD: %v\n", d.flag, err)
			os.Exit(1)
		}
		*d.dst = &t
	}

	cfg := common.LoadConfig()
	if *sqlitePath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = *sqlitePath
	}
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	queue := a.NewQueue()
	orch := core.NewOrchestrator(logger, a.Records, a.Documents, queue)

	logger.Info("starting ingestion", "dir", *dir, "tenant", *tenant)
	results, stats, err := a.Ingestor.IngestDirectory(ctx, *tenant, *dir, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	var submitted []uuid.UUID
	for _, r := range results {
		if r.Err != "" {
			continue
		}
		rec, err := orch.Submit(ctx, r.DocumentID, *user, *tenant)
		if err != nil {
			logger.Error("failed to submit analysis", "document_id", r.DocumentID, "path", r.SourcePath, "error", err)
			continue
		}
		submitted = append(submitted, rec.ID)
	}

	// waits for every submitted analysis to reach a terminal status
	queue.Shutdown(ctx)

	completed, failed := 0, 0
	for _, id := range submitted {
		rec, err := orch.GetStatus(ctx, id)
		if err != nil {
			logger.Error("failed to read analysis", "analysis_id", id, "error", err)
			failed++
			continue
		}
		switch rec.Status {
		case constants.AnalysisStatusCompleted:
			completed++
		default:
			failed++
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := a.Exporter.ExportAnalysesXLSX(ctx, req)
	if err != nil {
		logger.Error("failed to export analyses", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_ingested", stats.Succeeded,
		"analyses_completed", completed,
		"failures", failed,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files ingested: %d\n", stats.Succeeded)
	fmt.Printf("- Analyses completed: %d\n", completed)
	fmt.Printf("- Failures: %d\n", failed)
	fmt.Printf("- Output: %s\n", *out)
}
