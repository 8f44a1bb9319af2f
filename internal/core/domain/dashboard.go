package domain

type Insight struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

type RealTimeMetrics struct {
	Uptime float64 `json:"uptime"`
}

type DashboardSummary struct {
	Users           int     `json:"users"`
	Documents       int     `json:"documents"`
	ProcessingQueue int     `json:"processingQueue"`
	Accuracy        float64 `json:"accuracy"`
}

type ChartsData struct {
	Labels []string `json:"labels"`
	Series []int    `json:"series"`
}

type Suggestion struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type TrainingStats struct {
	Epochs        int     `json:"epochs"`
	Loss          float64 `json:"loss"`
	FeedbackCount int     `json:"feedbackCount"`
}

type PerformanceMetrics struct {
	CPU        float64 `json:"cpu"`
	Memory     uint64  `json:"memory"`
	Goroutines int     `json:"goroutines"`
}

type Trend struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AnalysisStats aggregates stored analyses for the dashboard.
type AnalysisStats struct {
	Count             int
	AverageConfidence float64
}

type ConnectionStats struct {
	Total int `json:"total"`
}

type StartScrapeCommand struct {
	URL       string
	SourceID  string
	Depth     int
	CreatedBy string
}

type AnalyzeRequest struct {
	DocumentID string
	Text       string
	Type       AnalysisType
}

type RegisterCommand struct {
	Email    string
	Password string
	Name     string
}

type LoginCommand struct {
	Email    string
	Password string
}
