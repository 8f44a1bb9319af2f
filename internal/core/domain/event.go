package domain

import "time"

type EventType string

const (
	EventDocumentUploaded  EventType = "document_uploaded"
	EventDocumentProcessed EventType = "document_processed"
	EventScrapingUpdate    EventType = "scraping_update"
	EventSystemHealth      EventType = "system_health"
	EventAnalyticsUpdate   EventType = "analytics_update"
	EventNotification      EventType = "notification"
	EventUserActivity      EventType = "user_activity"
	EventHeartbeat         EventType = "heartbeat"
	EventConnected         EventType = "connected"
	EventDisconnected      EventType = "disconnected"
)

// EventTypes lists every event the realtime channel can emit.
func EventTypes() []EventType {
	return []EventType{
		EventDocumentUploaded,
		EventDocumentProcessed,
		EventScrapingUpdate,
		EventSystemHealth,
		EventAnalyticsUpdate,
		EventNotification,
		EventUserActivity,
		EventHeartbeat,
		EventConnected,
		EventDisconnected,
	}
}

type Event struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEvent(eventType EventType, data map[string]any) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
