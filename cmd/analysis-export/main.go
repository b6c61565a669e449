package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/export"
	repo "github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/utils"
)

func main() {
	var (
		tenant  = flag.String("tenant", "", "tenant id (required)")
		status  = flag.String("status", "", "only export analyses in this status")
		fromStr = flag.String("from", "", "from date YYYY-MM-DD")
		toStr   = flag.String("to", "", "to date YYYY-MM-DD")
		out     = flag.String("out", "analyses.xlsx", "output XLSX file path")
	)
	flag.Parse()
	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "Error: --tenant is required")
		os.Exit(2)
	}

	req := export.Request{TenantID: *tenant, Status: constants.AnalysisStatus(strings.ToUpper(*status))}
	if req.Status != "" && !req.Status.IsValid() {
		fmt.Fprintf(os.Stderr, "Error: unknown status %q\n", *status)
		os.Exit(2)
	}
	var err error
	if req.From, err = parseDate(*fromStr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --from: %v\n", err)
		os.Exit(2)
	}
	if req.To, err = parseDate(*toStr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --to: %v\n", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := export.NewService(repo.NewAnalysisRecordStore(db, logger), logger)
	xlsx, err := svc.ExportAnalysesXLSX(ctx, req)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *out, "bytes", len(xlsx))
}

func parseDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := utils.ParseYMD(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
