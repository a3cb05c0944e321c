package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialprobe/internal/logging"
	"socialprobe/internal/testutil"
)

func newTestGuard(threshold int, reset time.Duration) (*Guard, *time.Time) {
	cfg := testConfig("")
	cfg.Providers.RateLimit = 0
	cfg.Providers.BreakerThreshold = threshold
	cfg.Providers.BreakerReset = reset

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGuard(cfg, logging.NewNopLogger())
	g.now = func() time.Time { return now }
	return g, &now
}

func TestGuard_BreakerLifecycle(t *testing.T) {
	g, now := newTestGuard(2, time.Minute)
	ctx := context.Background()
	failure := errors.New("boom")

	testutil.AssertNoError(t, g.Acquire(ctx, "p1"), "closed breaker")

	g.RecordFailure("p1", failure)
	testutil.AssertEqual(t, g.State("p1"), CircuitClosed, "below threshold")

	g.RecordFailure("p1", failure)
	testutil.AssertEqual(t, g.State("p1"), CircuitOpen, "threshold reached")

	err := g.Acquire(ctx, "p1")
	testutil.AssertEqual(t, ReasonOf(err), ReasonCircuitOpen, "open breaker rejects")
	testutil.AssertNoError(t, g.Acquire(ctx, "p2"), "other providers are unaffected")

	*now = now.Add(2 * time.Minute)
	testutil.AssertNoError(t, g.Acquire(ctx, "p1"), "half-open lets one request through")
	testutil.AssertEqual(t, g.State("p1"), CircuitHalfOpen, "half-open")

	g.RecordFailure("p1", failure)
	testutil.AssertEqual(t, g.State("p1"), CircuitOpen, "failure while half-open reopens")

	*now = now.Add(2 * time.Minute)
	testutil.AssertNoError(t, g.Acquire(ctx, "p1"), "half-open again")
	g.RecordSuccess("p1")
	testutil.AssertEqual(t, g.State("p1"), CircuitClosed, "success closes")
}

func TestGuard_DisabledBreaker(t *testing.T) {
	g, _ := newTestGuard(0, time.Minute)
	for i := 0; i < 10; i++ {
		g.RecordFailure("p1", errors.New("boom"))
	}
	testutil.AssertEqual(t, g.State("p1"), CircuitClosed, "threshold 0 never opens")
}

func TestGuard_Stats(t *testing.T) {
	g, _ := newTestGuard(5, time.Minute)
	ctx := context.Background()

	_ = g.Acquire(ctx, "b")
	_ = g.Acquire(ctx, "a")
	_ = g.Acquire(ctx, "a")
	g.RecordFailure("a", errors.New("boom"))

	stats := g.Stats()
	testutil.AssertEqual(t, len(stats), 2, "providers")
	testutil.AssertEqual(t, stats[0].Provider, "a", "sorted by provider")
	testutil.AssertEqual(t, stats[0].Requests, int64(2), "requests")
	testutil.AssertEqual(t, stats[0].Failures, int64(1), "failures")
	testutil.AssertEqual(t, stats[0].CircuitState, "closed", "state")
}

func TestGuard_RateLimitHonorsContext(t *testing.T) {
	cfg := testConfig("")
	cfg.Providers.RateLimit = 1
	cfg.Providers.Burst = 1
	g := NewGuard(cfg, logging.NewNopLogger())

	testutil.AssertNoError(t, g.Acquire(context.Background(), "p"), "burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx, "p")
	testutil.AssertError(t, err, "second acquire within the same minute")
}
