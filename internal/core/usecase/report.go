package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const exportPageSize = 100

type ReportService struct {
	jobs    ports.ScrapeJobRepository
	writers map[string]ports.ScrapeReportWriter
}

// NewReportService takes writers keyed by format, which doubles as the file
// extension.
func NewReportService(jobs ports.ScrapeJobRepository, writers map[string]ports.ScrapeReportWriter) *ReportService {
	return &ReportService{jobs: jobs, writers: writers}
}

func (s *ReportService) ExportScrapeJobs(ctx context.Context, format string, w io.Writer) (string, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	writer, ok := s.writers[format]
	if !ok {
		return "", "", domain.NewError(domain.ErrInvalidInput, "export scrape jobs", "unsupported format "+format)
	}

	jobs, err := s.allJobs(ctx)
	if err != nil {
		return "", "", err
	}
	if err := writer.Write(w, jobs); err != nil {
		return "", "", fmt.Errorf("write %s report: %w", format, err)
	}
	return writer.ContentType(), format, nil
}

func (s *ReportService) allJobs(ctx context.Context) ([]domain.ScrapeJobRecord, error) {
	var out []domain.ScrapeJobRecord
	for page := 1; ; page++ {
		items, total, err := s.jobs.List(ctx, domain.ScrapeJobFilter{Page: page, Limit: exportPageSize})
		if err != nil {
			return nil, fmt.Errorf("list scrape jobs: %w", err)
		}
		out = append(out, items...)
		if len(items) == 0 || len(out) >= total {
			return out, nil
		}
	}
}
