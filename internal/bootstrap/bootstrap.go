package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/config"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
	"github.com/kirillkom/legal-dashboard/internal/core/usecase"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/analyzer/heuristic"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/analyzer/ollama"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/analyzer/openai"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/cache/memory"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/cache/redis"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/chunking"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/extractor/html"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/proxy"
	memqueue "github.com/kirillkom/legal-dashboard/internal/infrastructure/queue/memory"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/queue/nats"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/realtime"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/report"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/scraper"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/security"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/storage/minio"
	"github.com/kirillkom/legal-dashboard/internal/observability/metrics"
)

type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
)

const cacheSweepInterval = time.Minute

type App struct {
	Config config.Config
	Role   Role

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	Hub        *realtime.Hub
	NATS       *nats.Queue
	Queue      *memqueue.Queue
	Dispatcher *usecase.LocalDispatcher
	Worker     *usecase.ScrapeWorker
	Cache      *usecase.CacheService
	Proxies    *proxy.Rotator
	ScrapeJobs ports.ScrapeJobRepository

	Analytics *usecase.AnalyticsService
	Dashboard *usecase.DashboardService
	Scraping  *usecase.ScrapingService
	Auth      *usecase.AuthService
	Analysis  *usecase.AnalysisService
	Reports   *usecase.ReportService

	localCache *memory.Cache
	closeFn    func()
}

// New wires the dependency graph for one process role. The API role owns
// the websocket hub and, in local dispatch mode, the scrape worker pool;
// the worker role relays its events over NATS.
func New(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, error) {
		closeAll()
		return nil, err
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: cfg.ResilienceRetryInitialBackoff,
		RetryMaxBackoff:     cfg.ResilienceRetryMaxBackoff,
		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerFailureRatio: cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:  cfg.ResilienceBreakerOpenTimeout,
	})

	sqlDB, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fail(fmt.Errorf("open postgres: %w", err))
	}
	db := postgres.NewClient(sqlDB)
	closers = append(closers, func() { _ = db.Close() })
	if err := db.EnsureSchema(ctx); err != nil {
		return fail(fmt.Errorf("ensure schema: %w", err))
	}

	scrapeJobs := postgres.NewScrapeJobRepository(db)
	users := postgres.NewUserRepository(db)
	analyses := postgres.NewAnalysisRepository(db)
	feedback := postgres.NewFeedbackRepository(db)

	localDispatch := cfg.ScrapeDispatchMode != "nats"

	httpMetrics := metrics.NewHTTPServerMetrics(string(role))
	workerMetrics := metrics.NewWorkerMetrics(string(role))
	if role == RoleAPI && localDispatch {
		httpMetrics.MustRegister(workerMetrics.Collectors()...)
	}

	// Metric sinks stay nil in the worker role; only WorkerMetrics is served there.
	var (
		cacheMetrics    usecase.CacheMetrics
		analysisMetrics usecase.AnalysisMetrics
		scrapeMetrics   usecase.ScrapeMetrics
		queueMetrics    usecase.QueueMetrics
		eventMetrics    usecase.EventMetrics
	)
	if role == RoleAPI {
		cacheMetrics = httpMetrics
		analysisMetrics = httpMetrics
		scrapeMetrics = httpMetrics
		queueMetrics = httpMetrics
		eventMetrics = httpMetrics
	}

	localCache := memory.New()
	var external ports.CacheClient
	if cfg.RedisURL != "" {
		rc, err := redis.NewFromURL(cfg.RedisURL, redis.Options{
			KeyPrefix:          cfg.RedisKeyPrefix,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return fail(fmt.Errorf("init redis cache: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		external = rc
	}
	cache := usecase.NewCacheService(external, localCache, cacheMetrics)
	if err := cache.Connect(ctx); err != nil {
		return fail(fmt.Errorf("connect cache: %w", err))
	}

	var natsQueue *nats.Queue
	if !localDispatch || role == RoleWorker {
		natsQueue, err = nats.New(cfg.NATSURL, nats.Options{
			ScrapeSubject:      cfg.NATSScrapeSubject,
			EventsSubject:      cfg.NATSEventsSubject,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return fail(fmt.Errorf("init message queue: %w", err))
		}
		closers = append(closers, natsQueue.Close)
	}

	tokens, err := security.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return fail(fmt.Errorf("init token manager: %w", err))
	}
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	var (
		hub    *realtime.Hub
		events *usecase.EventBroadcaster
	)
	switch role {
	case RoleAPI:
		hub = realtime.NewHub(realtime.Options{
			HeartbeatInterval: cfg.WSHeartbeatInterval,
			AllowedOrigins:    cfg.CORSAllowedOrigins,
			Connections:       httpMetrics.WebSocketConnections(),
			UserID:            tokenUserID(tokens),
		})
		events = usecase.NewEventBroadcaster(eventMetrics, hub)
	default:
		events = usecase.NewEventBroadcaster(eventMetrics, natsQueue)
	}

	analyzer, err := newTextAnalyzer(cfg, executor)
	if err != nil {
		return fail(err)
	}
	analysis := usecase.NewAnalysisService(analyzer, analyses, events, analysisMetrics)

	proxies, err := proxy.ParseList(cfg.ProxyList)
	if err != nil {
		return fail(fmt.Errorf("parse proxy list: %w", err))
	}
	rotator := proxy.NewRotator(proxies, cfg.ProxyCooldown)

	storage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("init object storage: %w", err))
	}

	queue := memqueue.New()
	dispatcher := usecase.NewLocalDispatcher(queue)

	var worker *usecase.ScrapeWorker
	if localDispatch || role == RoleWorker {
		fetcher := scraper.NewFetcher(nil, scraper.Options{
			Timeout:          cfg.ScrapeTimeout,
			UserAgent:        cfg.ScrapeUserAgent,
			Rotator:          rotator,
			MaxProxyAttempts: cfg.ScrapeMaxProxyAttempts,
		})
		process := usecase.NewScrapeProcessService(
			scrapeJobs,
			fetcher,
			html.NewExtractor(cfg.ExtractorMaxLinks),
			storage,
			analysis,
			queue,
			events,
		)
		worker = usecase.NewScrapeWorker(queue, process, usecase.WorkerOptions{
			Concurrency:   cfg.ScrapeWorkers,
			CleanGrace:    cfg.QueueCleanGrace,
			CleanInterval: cfg.QueueCleanInterval,
			Wake:          dispatcher.Wake(),
			Metrics:       workerMetrics,
			QueueMetrics:  queueMetrics,
		})
	}

	var scrapeDispatcher ports.ScrapeDispatcher = dispatcher
	if !localDispatch {
		scrapeDispatcher = natsQueue
	}

	checkers := []ports.HealthChecker{db, cache, storage}
	if natsQueue != nil {
		checkers = append(checkers, natsQueue)
	}

	return &App{
		Config: cfg,
		Role:   role,

		HTTPMetrics:   httpMetrics,
		WorkerMetrics: workerMetrics,

		Hub:        hub,
		NATS:       natsQueue,
		Queue:      queue,
		Dispatcher: dispatcher,
		Worker:     worker,
		Cache:      cache,
		Proxies:    rotator,
		ScrapeJobs: scrapeJobs,

		Analytics: usecase.NewAnalyticsService(time.Now(), nil, events, checkers...),
		Dashboard: usecase.NewDashboardService(users, analyses, feedback, queue, cache, events),
		Scraping:  usecase.NewScrapingService(scrapeJobs, scrapeDispatcher, queue, events, scrapeMetrics),
		Auth:      usecase.NewAuthService(users, hasher, tokens, events),
		Analysis:  analysis,
		Reports: usecase.NewReportService(scrapeJobs, map[string]ports.ScrapeReportWriter{
			"csv":  report.CSVWriter{},
			"xlsx": report.XLSXWriter{},
		}),

		localCache: localCache,
		closeFn:    closeAll,
	}, nil
}

// newTextAnalyzer picks the analysis backend. "auto" uses OpenAI when a key
// is configured and the heuristic analyzer otherwise.
func newTextAnalyzer(cfg config.Config, executor *resilience.Executor) (ports.TextAnalyzer, error) {
	chunker := chunking.NewSplitter(cfg.AIMaxInputChars, cfg.ChunkOverlap)
	provider := cfg.AIProvider
	if provider == "" || provider == "auto" {
		provider = "heuristic"
		if cfg.OpenAIAPIKey != "" {
			provider = "openai"
		}
	}
	switch provider {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, openai.Options{
			BaseURL:            cfg.OpenAIBaseURL,
			Model:              cfg.OpenAIModel,
			Chunker:            chunker,
			ResilienceExecutor: executor,
		}), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, ollama.Options{
			Model:              cfg.OllamaModel,
			Chunker:            chunker,
			ResilienceExecutor: executor,
		}), nil
	case "heuristic":
		return heuristic.New(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

type storageBackend interface {
	ports.ObjectStorage
	ports.HealthChecker
}

func newObjectStorage(ctx context.Context, cfg config.Config) (storageBackend, error) {
	switch cfg.StorageBackend {
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.MinioBucket,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
		})
	case "", "localfs":
		return localfs.New(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// tokenUserID reads the websocket user from the "token" query parameter.
// Anonymous connections are allowed.
func tokenUserID(tokens ports.TokenManager) func(*http.Request) string {
	return func(r *http.Request) string {
		token := r.URL.Query().Get("token")
		if token == "" {
			return ""
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			return ""
		}
		return claims.ID
	}
}

// Run starts the background loops of the role and blocks until ctx is done
// and every loop has returned.
func (a *App) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				slog.Error("background_loop_failed", "loop", name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	if a.Hub != nil {
		spawn("websocket_hub", func(ctx context.Context) error {
			a.Hub.Run(ctx)
			return nil
		})
	}
	if a.Worker != nil {
		spawn("scrape_worker", func(ctx context.Context) error {
			a.Worker.Run(ctx)
			return nil
		})
	}
	if a.NATS != nil && a.Role == RoleWorker {
		spawn("scrape_requests", func(ctx context.Context) error {
			return a.NATS.SubscribeScrapeRequests(ctx, a.enqueueScrape)
		})
	}
	if a.NATS != nil && a.Hub != nil {
		spawn("event_relay", func(ctx context.Context) error {
			return a.NATS.SubscribeEvents(ctx, a.Hub.Publish)
		})
	}
	spawn("cache_sweep", a.sweepCache)

	wg.Wait()
	return errors.Join(errs...)
}

// enqueueScrape moves a dispatched record into this process's queue.
func (a *App) enqueueScrape(ctx context.Context, recordID string) error {
	rec, err := a.ScrapeJobs.GetByID(ctx, recordID)
	if err != nil {
		return fmt.Errorf("load scrape job %s: %w", recordID, err)
	}
	if rec.Status.Terminal() {
		slog.Info("scrape_request_skipped", "record_id", recordID, "status", rec.Status)
		return nil
	}
	queueID, err := a.Dispatcher.Enqueue(rec.ID, rec.URL)
	if err != nil {
		return fmt.Errorf("enqueue scrape job %s: %w", recordID, err)
	}
	slog.Info("scrape_request_enqueued", "record_id", recordID, "queue_job_id", queueID)
	return nil
}

func (a *App) sweepCache(ctx context.Context) error {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := a.localCache.Sweep(); removed > 0 {
				slog.Debug("cache_swept", "removed", removed)
			}
		}
	}
}

// EnsureAdmin seeds the configured admin account when one is set.
func (a *App) EnsureAdmin(ctx context.Context) error {
	if a.Config.AdminEmail == "" || a.Config.AdminPassword == "" {
		return nil
	}
	return a.Auth.EnsureAdmin(ctx, a.Config.AdminEmail, a.Config.AdminPassword)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
