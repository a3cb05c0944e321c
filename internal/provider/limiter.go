package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"socialprobe/internal/config"
	"socialprobe/internal/logging/types"

	"golang.org/x/time/rate"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type circuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	failureCount int
	lastFailTime time.Time
	state        CircuitState
}

type providerLimiter struct {
	limiter  *rate.Limiter
	breaker  *circuitBreaker
	lastSeen time.Time
	requests int64
	failures int64
}

// ProviderStats is a snapshot of one provider's limiter and breaker
type ProviderStats struct {
	Provider     string    `json:"provider"`
	Requests     int64     `json:"requests"`
	Failures     int64     `json:"failures"`
	LastSeen     time.Time `json:"last_seen"`
	Limit        float64   `json:"limit_per_second"`
	Burst        int       `json:"burst"`
	CircuitState string    `json:"circuit_state"`
	FailureCount int       `json:"failure_count"`
}

// Guard rate limits job starts and trips a circuit breaker per provider.
// It is the only state shared between concurrent pipeline runs.
type Guard struct {
	limit        rate.Limit
	burst        int
	maxFailures  int
	resetTimeout time.Duration
	providers    map[string]*providerLimiter
	mu           sync.Mutex
	logger       types.Logger
	now          func() time.Time
}

// NewGuard creates a guard from the provider settings
func NewGuard(cfg *config.Config, logger types.Logger) *Guard {
	limit := rate.Inf
	if cfg.Providers.RateLimit > 0 {
		// requests per minute converted to requests per second
		limit = rate.Limit(float64(cfg.Providers.RateLimit) / 60.0)
	}
	burst := cfg.Providers.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Guard{
		limit:        limit,
		burst:        burst,
		maxFailures:  cfg.Providers.BreakerThreshold,
		resetTimeout: cfg.Providers.BreakerReset,
		providers:    make(map[string]*providerLimiter),
		logger:       logger.WithField("component", "provider_guard"),
		now:          time.Now,
	}
}

// Acquire waits for a rate limit token. It fails fast with a circuit_open
// error while the provider's breaker is open.
func (g *Guard) Acquire(ctx context.Context, providerID string) error {
	g.mu.Lock()
	pl := g.get(providerID)
	if !g.allowCircuit(providerID, pl.breaker) {
		retryIn := pl.breaker.resetTimeout - g.now().Sub(pl.breaker.lastFailTime)
		g.mu.Unlock()
		return NewError(providerID, ReasonCircuitOpen, fmt.Sprintf("circuit open, retry in %s", retryIn.Round(time.Second)), nil)
	}
	limiter := pl.limiter
	g.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewError(providerID, ReasonRateLimited, "local rate limit", err)
	}

	g.mu.Lock()
	pl.requests++
	pl.lastSeen = g.now()
	g.mu.Unlock()
	return nil
}

// RecordSuccess closes a half-open breaker and resets its failure count
func (g *Guard) RecordSuccess(providerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb := g.get(providerID).breaker
	if cb.state == CircuitHalfOpen {
		g.logger.Info("Circuit breaker closed after successful request", map[string]interface{}{"provider": providerID})
	}
	cb.state = CircuitClosed
	cb.failureCount = 0
}

// RecordFailure counts a provider-side failure toward the breaker threshold
func (g *Guard) RecordFailure(providerID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pl := g.get(providerID)
	pl.failures++

	cb := pl.breaker
	cb.failureCount++
	cb.lastFailTime = g.now()

	if cb.maxFailures <= 0 {
		return
	}

	if cb.state == CircuitHalfOpen || (cb.state == CircuitClosed && cb.failureCount >= cb.maxFailures) {
		cb.state = CircuitOpen
		fields := map[string]interface{}{
			"provider": providerID,
			"failures": cb.failureCount,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		g.logger.Warn("Circuit breaker opened due to failures", fields)
	}
}

// State returns the current breaker state for a provider
func (g *Guard) State(providerID string) CircuitState {
	g.mu.Lock()
	defer g.mu.Unlock()

	pl := g.get(providerID)
	g.allowCircuit(providerID, pl.breaker)
	return pl.breaker.state
}

// Stats returns a snapshot for every provider the guard has seen
func (g *Guard) Stats() []ProviderStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := make([]ProviderStats, 0, len(g.providers))
	for id, pl := range g.providers {
		stats = append(stats, ProviderStats{
			Provider:     id,
			Requests:     pl.requests,
			Failures:     pl.failures,
			LastSeen:     pl.lastSeen,
			Limit:        float64(pl.limiter.Limit()),
			Burst:        pl.limiter.Burst(),
			CircuitState: pl.breaker.state.String(),
			FailureCount: pl.breaker.failureCount,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Provider < stats[j].Provider })
	return stats
}

// get returns the provider's limiter, creating it on first use. Callers hold g.mu.
func (g *Guard) get(providerID string) *providerLimiter {
	if pl, exists := g.providers[providerID]; exists {
		return pl
	}

	pl := &providerLimiter{
		limiter:  rate.NewLimiter(g.limit, g.burst),
		lastSeen: g.now(),
		breaker: &circuitBreaker{
			maxFailures:  g.maxFailures,
			resetTimeout: g.resetTimeout,
			state:        CircuitClosed,
		},
	}
	g.providers[providerID] = pl

	g.logger.Debug("Created provider rate limiter", map[string]interface{}{
		"provider": providerID,
		"rate":     float64(g.limit),
		"burst":    g.burst,
	})

	return pl
}

// allowCircuit moves an open breaker to half-open once the reset timeout has
// passed and reports whether a request may go through. Callers hold g.mu.
func (g *Guard) allowCircuit(providerID string, cb *circuitBreaker) bool {
	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if g.now().Sub(cb.lastFailTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			g.logger.Info("Circuit breaker transitioned to half-open", map[string]interface{}{"provider": providerID})
			return true
		}
		return false
	default:
		return false
	}
}
