// Package app wires the analysis stack from a Config. Binaries under cmd/ share it.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/core"
	coreasync "github.com/joseph-ayodele/contract-extractor/internal/core/async"
	"github.com/joseph-ayodele/contract-extractor/internal/export"
	"github.com/joseph-ayodele/contract-extractor/internal/ingest"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/rules"
	"github.com/joseph-ayodele/contract-extractor/internal/storage"
	"github.com/joseph-ayodele/contract-extractor/internal/textextract"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Records   repository.AnalysisRecordStore
	Documents repository.DocumentRepository
	Contracts repository.ContractRepository
	Blobs     storage.BlobStore
	Text      *textextract.Extractor
	AI        *llm.Extractor
	Rules     *rules.Extractor
	Processor *core.Processor
	Ingestor  *ingest.FSIngestor
	Exporter  *export.Service
}

// New opens the database (migrating it), the blob store and both extraction strategies.
// The AI strategy is present but unavailable when no API key is configured.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	blobs, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	var client llm.CompletionService
	if cfg.LLM.Enabled() {
		client = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		logger.Info("OpenAI client initialized", "model", cfg.LLM.Model)
	} else {
		logger.Warn("OpenAI API key not configured, AI extraction will be skipped")
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Records:   repository.NewAnalysisRecordStore(db, logger),
		Documents: repository.NewDocumentRepository(db, logger),
		Contracts: repository.NewContractRepository(db, logger),
		Blobs:     blobs,
		Text: textextract.NewExtractor(textextract.Config{
			Pdftotext: cfg.TextExtract.PdfToTextBin,
			MaxBytes:  cfg.TextExtract.MaxBytes,
		}, logger),
		AI:    llm.NewExtractor(client, logger, llm.WithTimeout(cfg.LLM.Timeout)),
		Rules: rules.NewExtractor(logger),
	}
	a.Processor = core.NewProcessor(logger, a.Records, a.Documents, a.Contracts, a.Blobs, a.Text, a.AI, a.Rules)
	a.Ingestor = ingest.NewFSIngestor(a.Documents, a.Blobs, cfg.TextExtract.MaxBytes, logger)
	a.Exporter = export.NewService(a.Records, logger)
	return a, nil
}

// NewQueue starts a worker pool that feeds jobs to the Processor.
func (a *App) NewQueue() *coreasync.ProcessorQueue {
	return coreasync.NewProcessorQueue(a.Processor, a.Logger,
		coreasync.WithWorkers(a.Config.Queue.Workers),
		coreasync.WithQueueSize(a.Config.Queue.Size),
		coreasync.WithProcessTimeout(a.Config.Queue.ProcessTimeout),
	)
}

func (a *App) Close() error {
	return a.DB.Close()
}
