package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

type cacheFake struct {
	mu         sync.Mutex
	values     map[string]string
	ttls       map[string][]time.Duration
	connectErr error
	getErr     error
	setErr     error
	connects   int
}

func newCacheFake() *cacheFake {
	return &cacheFake{values: map[string]string{}, ttls: map[string][]time.Duration{}}
}

func (f *cacheFake) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *cacheFake) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *cacheFake) Set(_ context.Context, key, value string, ttl ...time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *cacheFake) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type eventsFake struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *eventsFake) Publish(_ context.Context, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *eventsFake) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *eventsFake) count(t domain.EventType) int {
	n := 0
	for _, got := range f.types() {
		if got == t {
			n++
		}
	}
	return n
}

type scrapeRepoFake struct {
	mu        sync.Mutex
	records   map[string]domain.ScrapeJobRecord
	statuses  []domain.ScrapeStatus
	progress  []int
	createErr error
	updateErr error
	deleteErr error
	deleted   []string
	listItems []domain.ScrapeJobRecord
	listTotal int
	lastList  domain.ScrapeJobFilter
}

func newScrapeRepoFake() *scrapeRepoFake {
	return &scrapeRepoFake{records: map[string]domain.ScrapeJobRecord{}}
}

func (f *scrapeRepoFake) Create(_ context.Context, rec *domain.ScrapeJobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records[rec.ID] = *rec
	return nil
}

func (f *scrapeRepoFake) GetByID(_ context.Context, id string) (*domain.ScrapeJobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get scrape job", id)
	}
	return &rec, nil
}

func (f *scrapeRepoFake) Update(_ context.Context, rec *domain.ScrapeJobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.records[rec.ID] = *rec
	f.statuses = append(f.statuses, rec.Status)
	f.progress = append(f.progress, rec.Progress)
	return nil
}

func (f *scrapeRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.records[id]; !ok {
		return domain.NewError(domain.ErrNotFound, "delete scrape job", id)
	}
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *scrapeRepoFake) List(_ context.Context, filter domain.ScrapeJobFilter) ([]domain.ScrapeJobRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	start := (filter.Page - 1) * filter.Limit
	if start >= len(f.listItems) {
		return nil, f.listTotal, nil
	}
	end := min(start+filter.Limit, len(f.listItems))
	return f.listItems[start:end], f.listTotal, nil
}

type dispatcherFake struct {
	id         int64
	err        error
	dispatched []string
}

func (f *dispatcherFake) Name() string { return "fake" }

func (f *dispatcherFake) Dispatch(_ context.Context, rec *domain.ScrapeJobRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.dispatched = append(f.dispatched, rec.ID)
	return f.id, nil
}

type analyzerFake struct {
	confidence float64
	err        error
	calls      int
}

func (f *analyzerFake) Analyze(_ context.Context, text string, analysisType domain.AnalysisType) (domain.AiAnalysis, error) {
	f.calls++
	if f.err != nil {
		return domain.AiAnalysis{}, f.err
	}
	return domain.AiAnalysis{Type: analysisType, Result: []byte(`{}`), Confidence: f.confidence}, nil
}

type analysisRepoFake struct {
	saved    []domain.AiAnalysis
	saveErr  error
	stats    domain.AnalysisStats
	statsErr error
	limit    int
}

func (f *analysisRepoFake) Save(_ context.Context, a *domain.AiAnalysis) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *a)
	return nil
}

func (f *analysisRepoFake) ListByDocument(_ context.Context, documentID string, limit int) ([]domain.AiAnalysis, error) {
	f.limit = limit
	var out []domain.AiAnalysis
	for _, a := range f.saved {
		if a.DocumentID == documentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *analysisRepoFake) Stats(context.Context) (domain.AnalysisStats, error) {
	return f.stats, f.statsErr
}

type analysisServiceFake struct {
	requests []domain.AnalyzeRequest
	err      error
}

func (f *analysisServiceFake) Analyze(_ context.Context, req domain.AnalyzeRequest) (*domain.AiAnalysis, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AiAnalysis{ID: "a-1", DocumentID: req.DocumentID, Type: req.Type}, nil
}

func (f *analysisServiceFake) List(context.Context, string, int) ([]domain.AiAnalysis, error) {
	return nil, nil
}

type userRepoFake struct {
	byID    map[string]domain.UserRecord
	listErr error
	// hideEmails makes GetByEmail miss, as a concurrent writer would.
	hideEmails bool
}

func newUserRepoFake() *userRepoFake {
	return &userRepoFake{byID: map[string]domain.UserRecord{}}
}

func (f *userRepoFake) Create(_ context.Context, u *domain.UserRecord) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.NewError(domain.ErrConflict, "create user", u.Email)
		}
	}
	f.byID[u.ID] = *u
	return nil
}

func (f *userRepoFake) GetByID(_ context.Context, id string) (*domain.UserRecord, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get user", id)
	}
	return &u, nil
}

func (f *userRepoFake) GetByEmail(_ context.Context, email string) (*domain.UserRecord, error) {
	if f.hideEmails {
		return nil, domain.NewError(domain.ErrNotFound, "get user", email)
	}
	for _, u := range f.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.NewError(domain.ErrNotFound, "get user", email)
}

func (f *userRepoFake) List(context.Context) ([]domain.UserRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.UserRecord, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *userRepoFake) Count(context.Context) (int, error) {
	return len(f.byID), nil
}

type feedbackRepoFake struct {
	created []domain.Feedback
	err     error
}

func (f *feedbackRepoFake) Create(_ context.Context, fb *domain.Feedback) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *fb)
	return nil
}

func (f *feedbackRepoFake) Count(context.Context) (int, error) {
	return len(f.created), f.err
}

type hasherFake struct{}

func (hasherFake) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (hasherFake) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return domain.NewError(domain.ErrUnauthorized, "compare password", "mismatch")
	}
	return nil
}

type tokensFake struct{}

func (tokensFake) Issue(u domain.UserRecord) (string, time.Time, error) {
	return "token-" + u.ID, time.Unix(1700000000, 0).UTC(), nil
}

func (tokensFake) Parse(token string) (domain.AuthClaims, error) {
	if token != "good" {
		return domain.AuthClaims{}, domain.NewError(domain.ErrUnauthorized, "parse token", "bad token")
	}
	return domain.AuthClaims{ID: "u-1", Sub: "u-1", Role: domain.RoleUser}, nil
}

type fetcherFake struct {
	page *domain.ScrapedPage
	err  error
}

func (f *fetcherFake) Fetch(_ context.Context, url string) (*domain.ScrapedPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := *f.page
	page.URL = url
	return &page, nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(_ context.Context, page *domain.ScrapedPage) error {
	if f.err != nil {
		return f.err
	}
	page.Text = f.text
	page.Title = "Title"
	return nil
}

type storageFake struct {
	saved map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type checkerFake struct {
	name   string
	status domain.HealthStatus
	delay  time.Duration
}

func (f checkerFake) Name() string { return f.name }

func (f checkerFake) Check(ctx context.Context) domain.ServiceHealth {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.ServiceHealth{Status: domain.HealthDown}
		}
	}
	return domain.ServiceHealth{Name: f.name, Status: f.status}
}
