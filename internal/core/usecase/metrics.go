package usecase

import (
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// Metric sinks are optional everywhere; a nil recorder disables reporting.

type CacheMetrics interface {
	RecordCacheOp(backend, op, result string)
}

type AnalysisMetrics interface {
	RecordAnalysis(analysisType string, err error)
}

type ScrapeMetrics interface {
	RecordScrapeStarted(mode string)
}

type QueueMetrics interface {
	SetQueueCounts(counts domain.JobCounts)
}

type EventMetrics interface {
	RecordEvent(eventType string)
}

type WorkerMetrics interface {
	StartScrape()
	FinishScrape(duration time.Duration, err error)
	ObserveQueueLag(lag time.Duration)
	RecordCleaned(state string, removed int)
}
