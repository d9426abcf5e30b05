package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dkotenko/resume-insight/internal/core/ports"
)

// Service renders the resume job table as an XLSX workbook for operators who
// want to eyeball a batch outside the API.
type Service struct {
	repo   ports.ResumeRepository
	logger *slog.Logger
}

func NewService(repo ports.ResumeRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

const sheet = "Resumes"

// WriteWorkbook streams the workbook for every known job, newest first.
func (s *Service) WriteWorkbook(ctx context.Context, w io.Writer) error {
	start := time.Now()

	resumes, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("query resumes: %w", err)
	}

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defaultIndex, _ := f.GetSheetIndex("Sheet1"); defaultIndex != -1 && sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Submitted",
		"Resume ID",
		"Filename",
		"Status",
		"Chunks",
		"Summary",
		"Failure Reason",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range resumes {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if !r.SubmittedAt.IsZero() {
			write(1, r.SubmittedAt.UTC().Format("2006-01-02 15:04:05"))
		} else {
			write(1, "")
		}
		write(2, r.ID)
		write(3, r.Filename)
		write(4, string(r.Status))
		write(5, len(r.ChunkIDs))
		write(6, truncate(r.Summary, 500))
		write(7, truncate(r.Error, 140))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 38)
	_ = f.SetColWidth(sheet, "C", "C", 28)
	_ = f.SetColWidth(sheet, "D", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 80)
	_ = f.SetColWidth(sheet, "G", "G", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(resumes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
