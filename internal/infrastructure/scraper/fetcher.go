package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/proxy"
)

const maxBodyBytes = 5 << 20

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Rotator   *proxy.Rotator
	// MaxProxyAttempts bounds how many proxies one fetch tries.
	MaxProxyAttempts int
}

// Fetcher downloads pages, going through the proxy rotator when it has
// proxies. A proxy that fails at the transport level is blacklisted and the
// next one is tried.
type Fetcher struct {
	client    *http.Client
	userAgent string
	rotator   *proxy.Rotator
	attempts  int
	timeout   time.Duration
	maxBody   int64

	mu      sync.Mutex
	clients map[string]*http.Client
	now     func() time.Time
}

func NewFetcher(client *http.Client, options Options) *Fetcher {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	userAgent := options.UserAgent
	if userAgent == "" {
		userAgent = "LegalDashboard/1.0"
	}
	attempts := options.MaxProxyAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		rotator:   options.Rotator,
		attempts:  attempts,
		timeout:   timeout,
		maxBody:   maxBodyBytes,
		clients:   make(map[string]*http.Client),
		now:       time.Now,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.ScrapedPage, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch page", err)
	}
	if f.rotator == nil || f.rotator.Len() == 0 {
		return f.fetchWith(ctx, f.client, rawURL, "")
	}

	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		p, ok := f.rotator.Next()
		if !ok {
			break
		}
		page, err := f.fetchWith(ctx, f.clientFor(p), rawURL, p.Key())
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !isTransportError(err) {
			return nil, err
		}
		f.rotator.Blacklist(p)
	}
	if lastErr == nil {
		lastErr = errors.New("no proxy available")
	}
	return nil, domain.WrapError(domain.ErrTemporary, "fetch page", lastErr)
}

func (f *Fetcher) fetchWith(ctx context.Context, client *http.Client, rawURL, proxyKey string) (*domain.ScrapedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewError(domain.ErrTemporary, "fetch page", fmt.Sprintf("%s returned %s", rawURL, resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: %s returned %s", rawURL, resp.Status)
	}

	// One byte past the limit tells a truncated page from one that fits.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, domain.NewError(domain.ErrInvalidInput, "fetch page", fmt.Sprintf("%s body exceeds %d bytes", rawURL, f.maxBody))
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &domain.ScrapedPage{
		URL:       finalURL,
		HTML:      body,
		Proxy:     proxyKey,
		FetchedAt: f.now().UTC(),
	}, nil
}

func (f *Fetcher) clientFor(p domain.ProxyConfig) *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := p.Key()
	if c, ok := f.clients[key]; ok {
		return c
	}
	c := &http.Client{
		Timeout: f.timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyURL(p.URL()),
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
			MaxIdleConnsPerHost: 4,
		},
	}
	f.clients[key] = c
	return c
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te) && !errors.Is(err, context.Canceled)
}
