package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

var header = []string{"id", "url", "source_id", "status", "progress", "error", "created_at", "updated_at"}

func row(job domain.ScrapeJobRecord) []string {
	updated := ""
	if job.UpdatedAt != nil {
		updated = job.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		job.ID,
		job.URL,
		job.SourceID,
		string(job.Status),
		strconv.Itoa(job.Progress),
		job.Error,
		job.CreatedAt.UTC().Format(time.RFC3339),
		updated,
	}
}

type CSVWriter struct{}

func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVWriter) Write(w io.Writer, jobs []domain.ScrapeJobRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, job := range jobs {
		if err := cw.Write(row(job)); err != nil {
			return fmt.Errorf("write csv row %s: %w", job.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

const sheetName = "Scrape jobs"

type XLSXWriter struct{}

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Write(w io.Writer, jobs []domain.ScrapeJobRecord) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, job := range jobs {
		if err := setRow(f, i+2, row(job)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetName, "B", "B", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("set row %d: %w", n, err)
	}
	return nil
}
