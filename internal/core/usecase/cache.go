package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// CacheService serves from the external cache when it connects and from the
// in-process store otherwise. Runtime failures of the external cache degrade
// the single call to the local store.
type CacheService struct {
	external ports.CacheClient
	local    ports.CacheClient
	metrics  CacheMetrics

	mu          sync.RWMutex
	connected   bool
	useExternal bool
}

// NewCacheService requires a local store; external may be nil.
func NewCacheService(external, local ports.CacheClient, metrics CacheMetrics) *CacheService {
	return &CacheService{
		external: external,
		local:    local,
		metrics:  metrics,
	}
}

func (s *CacheService) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	if err := s.local.Connect(ctx); err != nil {
		return err
	}
	s.connected = true

	if s.external == nil {
		slog.Info("cache_fallback", "backend", CacheBackendMemory, "reason", "no external cache configured")
		return nil
	}
	if err := s.external.Connect(ctx); err != nil {
		slog.Warn("cache_fallback", "backend", CacheBackendMemory, "error", err)
		return nil
	}
	s.useExternal = true
	return nil
}

func (s *CacheService) Backend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.useExternal {
		return CacheBackendRedis
	}
	return CacheBackendMemory
}

func (s *CacheService) Get(ctx context.Context, key string) (string, bool, error) {
	s.ensureConnected(ctx)
	if s.usingExternal() {
		value, ok, err := s.external.Get(ctx, key)
		if err == nil {
			s.record(CacheBackendRedis, "get", hitLabel(ok))
			return value, ok, nil
		}
		s.degraded("get", key, err)
	}
	value, ok, err := s.local.Get(ctx, key)
	if err != nil {
		s.record(CacheBackendMemory, "get", "error")
		return "", false, err
	}
	s.record(CacheBackendMemory, "get", hitLabel(ok))
	return value, ok, nil
}

func (s *CacheService) Set(ctx context.Context, key, value string, ttl ...time.Duration) error {
	s.ensureConnected(ctx)
	if s.usingExternal() {
		err := s.external.Set(ctx, key, value, ttl...)
		if err == nil {
			s.record(CacheBackendRedis, "set", "ok")
			return nil
		}
		s.degraded("set", key, err)
	}
	if err := s.local.Set(ctx, key, value, ttl...); err != nil {
		s.record(CacheBackendMemory, "set", "error")
		return err
	}
	s.record(CacheBackendMemory, "set", "ok")
	return nil
}

func (s *CacheService) Del(ctx context.Context, key string) error {
	s.ensureConnected(ctx)
	if s.usingExternal() {
		if err := s.external.Del(ctx, key); err != nil {
			s.degraded("del", key, err)
		}
	}
	// The local copy may hold a value written while the external cache was
	// unreachable.
	return s.local.Del(ctx, key)
}

func (s *CacheService) Name() string {
	return "cache"
}

func (s *CacheService) Check(context.Context) domain.ServiceHealth {
	backend := s.Backend()
	status := domain.HealthOK
	if s.external != nil && backend != CacheBackendRedis {
		status = domain.HealthDegraded
	}
	return domain.ServiceHealth{
		Name:    s.Name(),
		Status:  status,
		Details: map[string]any{"backend": backend},
	}
}

func (s *CacheService) ensureConnected(ctx context.Context) {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	if !connected {
		if err := s.Connect(ctx); err != nil {
			slog.Error("cache_connect_failed", "error", err)
		}
	}
}

func (s *CacheService) usingExternal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useExternal
}

func (s *CacheService) degraded(op, key string, err error) {
	s.record(CacheBackendRedis, op, "error")
	slog.Warn("cache_degraded", "op", op, "key", key, "error", err)
}

func (s *CacheService) record(backend, op, result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOp(backend, op, result)
	}
}

func hitLabel(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}
