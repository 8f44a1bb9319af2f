package resilience

import (
	"strings"
	"time"
)

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	// Overrides tune retries per operation prefix, e.g. "redis." or
	// "openai.". The longest matching prefix wins.
	Overrides map[string]RetryPolicy
}

// RetryPolicy replaces the retry settings for matching operations. Zero
// fields inherit from Config.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,

		Overrides: map[string]RetryPolicy{
			// The cache service falls back to memory, so waiting on redis
			// only adds latency.
			"redis.": {MaxAttempts: 1},
			// Model calls are slow and rate limited upstream.
			"openai.": {MaxAttempts: 2, InitialBackoff: time.Second, MaxBackoff: 4 * time.Second},
			"ollama.": {MaxAttempts: 2, InitialBackoff: time.Second, MaxBackoff: 4 * time.Second},
		},
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	if out.Overrides == nil {
		out.Overrides = def.Overrides
	}

	return out
}

// retryFor resolves the retry settings for one operation.
func (c Config) retryFor(operation string) RetryPolicy {
	policy := RetryPolicy{
		MaxAttempts:    c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
	}
	best := ""
	for prefix := range c.Overrides {
		if strings.HasPrefix(operation, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return policy
	}
	o := c.Overrides[best]
	if o.MaxAttempts > 0 {
		policy.MaxAttempts = o.MaxAttempts
	}
	if o.InitialBackoff > 0 {
		policy.InitialBackoff = o.InitialBackoff
	}
	if o.MaxBackoff > 0 {
		policy.MaxBackoff = o.MaxBackoff
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	return policy
}
