package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

// MaxRows caps a single export.
const MaxRows = 10000

// Service is a tiny façade over the record store that produces XLSX bytes for exports.
type Service struct {
	records repository.AnalysisRecordStore
	logger  *slog.Logger
}

func NewService(records repository.AnalysisRecordStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// Request selects the records to export. Empty fields mean "any".
type Request struct {
	TenantID string
	Status   constants.AnalysisStatus
	From, To *time.Time // creation date window, both inclusive
}

var headers = []string{
	"Analysis ID",
	"Document ID",
	"Status",
	"Strategy",
	"Vendor",
	"Contract Title",
	"Doc Type",
	"Effective Date",
	"Termination Date",
	"Vendor Conf.",
	"Title Conf.",
	"Doc Type Conf.",
	"Effective Conf.",
	"Termination Conf.",
	"Suggested Contract",
	"Error",
	"Created At",
}

// ExportAnalysesXLSX returns an XLSX workbook (as bytes) with one row per analysis record,
// oldest first.
func (s *Service) ExportAnalysesXLSX(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()

	filter := entity.AnalysisFilter{TenantID: req.TenantID, Limit: MaxRows}
	if req.Status != "" {
		filter.Statuses = []constants.AnalysisStatus{req.Status}
	}
	if req.From != nil {
		f := time.Date(req.From.Year(), req.From.Month(), req.From.Day(), 0, 0, 0, 0, time.UTC)
		filter.CreatedFrom = &f
	}
	if req.To != nil {
		t := time.Date(req.To.Year(), req.To.Month(), req.To.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		filter.CreatedBefore = &t
	}

	recs, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Analyses"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.ID.String())
		write(2, r.DocumentID.String())
		write(3, string(r.Status))
		write(4, deref(r.Strategy))
		write(5, deref(r.Vendor))
		write(6, deref(r.ContractTitle))
		write(7, deref(r.DocType))
		write(8, deref(r.EffectiveDate))
		write(9, deref(r.TerminationDate))
		for j, field := range constants.Fields {
			if c, ok := r.Confidence[field]; ok {
				write(10+j, c)
			}
		}
		if r.SuggestedContractID != nil {
			write(15, r.SuggestedContractID.String())
		}
		write(16, truncate(deref(r.Error), 240))
		write(17, r.CreatedAt.UTC().Format(time.RFC3339))
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "B", 38) // ids
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "F", 32) // vendor, title
	_ = f.SetColWidth(sheet, "G", "I", 18)
	_ = f.SetColWidth(sheet, "J", "N", 10) // confidences
	_ = f.SetColWidth(sheet, "O", "O", 38)
	_ = f.SetColWidth(sheet, "P", "P", 48) // error
	_ = f.SetColWidth(sheet, "Q", "Q", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tenant_id", req.TenantID,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
