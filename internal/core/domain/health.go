package domain

type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

type ServiceHealth struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Overall folds component statuses: any down wins, then degraded.
func Overall(services []ServiceHealth) HealthStatus {
	out := HealthOK
	for _, s := range services {
		switch s.Status {
		case HealthDown:
			return HealthDown
		case HealthDegraded:
			out = HealthDegraded
		}
	}
	return out
}
