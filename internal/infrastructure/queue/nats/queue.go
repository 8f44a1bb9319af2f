package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// Queue carries scrape requests to cmd/worker and relays realtime events
// from workers back to API instances.
type Queue struct {
	conn          *nats.Conn
	scrapeSubject string
	eventsSubject string
	executor      *resilience.Executor
}

type Options struct {
	ScrapeSubject        string
	EventsSubject        string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

type scrapeRequest struct {
	RecordID string `json:"record_id"`
	URL      string `json:"url"`
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	scrapeSubject := options.ScrapeSubject
	if scrapeSubject == "" {
		scrapeSubject = "scrape.requested"
	}
	eventsSubject := options.EventsSubject
	if eventsSubject == "" {
		eventsSubject = "dashboard.events"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("legal-dashboard"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:          conn,
		scrapeSubject: scrapeSubject,
		eventsSubject: eventsSubject,
		executor:      options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Dispatch publishes the record for cmd/worker. The job leaves the process,
// so no local queue id is returned.
func (q *Queue) Dispatch(ctx context.Context, rec *domain.ScrapeJobRecord) (int64, error) {
	payload, err := json.Marshal(scrapeRequest{RecordID: rec.ID, URL: rec.URL})
	if err != nil {
		return 0, fmt.Errorf("encode scrape request: %w", err)
	}
	return 0, q.publish(ctx, "nats.publish_scrape", q.scrapeSubject, payload)
}

func (q *Queue) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return q.publish(ctx, "nats.publish_event", q.eventsSubject, payload)
}

func (q *Queue) publish(ctx context.Context, operation, subject string, payload []byte) error {
	err := resilience.Run(ctx, q.executor, operation, func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeScrapeRequests load-balances requests across workers and blocks
// until ctx is done.
func (q *Queue) SubscribeScrapeRequests(ctx context.Context, handler func(context.Context, string) error) error {
	return q.consume(ctx, q.scrapeSubject, "workers", func(msgCtx context.Context, data []byte) {
		var req scrapeRequest
		if err := json.Unmarshal(data, &req); err != nil || req.RecordID == "" {
			slog.Error("scrape_request_invalid", "payload", string(data), "error", err)
			return
		}
		if err := handler(msgCtx, req.RecordID); err != nil {
			slog.Error("scrape_request_failed", "record_id", req.RecordID, "error", err)
		}
	})
}

// SubscribeEvents delivers every relayed event to this process.
func (q *Queue) SubscribeEvents(ctx context.Context, handler func(context.Context, domain.Event) error) error {
	return q.consume(ctx, q.eventsSubject, "", func(msgCtx context.Context, data []byte) {
		var event domain.Event
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("event_relay_invalid", "error", err)
			return
		}
		if err := handler(msgCtx, event); err != nil {
			slog.Warn("event_relay_failed", "type", event.Type, "error", err)
		}
	})
}

func (q *Queue) consume(ctx context.Context, subject, group string, handle func(context.Context, []byte)) error {
	cb := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		msgCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		handle(msgCtx, msg.Data)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, cb)
	} else {
		sub, err = q.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) Name() string {
	return "nats"
}

func (q *Queue) Check(context.Context) domain.ServiceHealth {
	status := q.conn.Status()
	health := domain.ServiceHealth{
		Name:    q.Name(),
		Status:  domain.HealthOK,
		Details: map[string]any{"state": status.String()},
	}
	switch status {
	case nats.CONNECTED:
	case nats.RECONNECTING, nats.CONNECTING:
		health.Status = domain.HealthDegraded
	default:
		health.Status = domain.HealthDown
	}
	return health
}
