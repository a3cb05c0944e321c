package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialprobe/internal/config"
	"socialprobe/internal/logging"
	"socialprobe/internal/provider"
	"socialprobe/internal/testutil"
)

func usableRecord(username string) provider.RawRecord {
	return provider.RawRecord{
		"username":       username,
		"followersCount": float64(1500),
		"postsCount":     float64(20),
		"biography":      "hello",
	}
}

func newTestPipeline(t *testing.T, client provider.JobClient, order []string, opts ...Option) *Pipeline {
	t.Helper()

	cfg := config.Default()
	cfg.Providers.Order = order
	cfg.Providers.ApifyToken = "token"

	registry, err := provider.NewRegistry(cfg)
	testutil.AssertNoError(t, err, "NewRegistry")

	logger := logging.NewNopLogger()
	clients := map[provider.Kind]provider.JobClient{provider.KindApify: client}
	poller := provider.NewPoller(time.Millisecond, time.Second, logger)

	return New(registry, clients, poller, append([]Option{WithLogger(logger)}, opts...)...)
}

func TestRun_StopsAtFirstUsableProvider(t *testing.T) {
	client := newMockJobClient(map[string]mockOutcome{
		"p1": {startErr: &provider.ProviderError{Provider: "p1", Reason: provider.ReasonQuotaExhausted, StatusCode: 402}},
		"p2": {records: []provider.RawRecord{usableRecord("nasa")}},
		"p3": {records: []provider.RawRecord{usableRecord("nasa")}},
	})
	p := newTestPipeline(t, client, []string{"p1", "p2", "p3"})

	result, err := p.Run(context.Background(), "nasa")
	testutil.AssertNoError(t, err, "Run")

	testutil.AssertEqual(t, result.Account.Provider, "p2", "winning provider")
	testutil.AssertEqual(t, result.Account.Followers, int64(1500), "followers")
	testutil.AssertFalse(t, result.Account.FetchedAt.IsZero(), "fetchedAt should be set")
	testutil.AssertEqual(t, client.Starts("p1"), 1, "p1 attempts")
	testutil.AssertEqual(t, client.Starts("p2"), 1, "p2 attempts")
	testutil.AssertEqual(t, client.Starts("p3"), 0, "p3 must not be attempted")

	testutil.AssertEqual(t, len(result.Attempts), 1, "failed attempts")
	testutil.AssertEqual(t, result.Attempts[0].Reason, provider.ReasonQuotaExhausted, "attempt reason")
}

func TestRun_AllUnusable(t *testing.T) {
	empty := []provider.RawRecord{{"username": "ghost", "followersCount": float64(0), "postsCount": float64(0)}}
	client := newMockJobClient(map[string]mockOutcome{
		"p1": {records: empty},
		"p2": {records: empty},
		"p3": {records: empty},
	})
	p := newTestPipeline(t, client, []string{"p1", "p2", "p3"})

	_, err := p.Run(context.Background(), "ghost")

	testutil.AssertTrue(t, errors.Is(err, ErrAllProvidersFailed), "AllProvidersFailed")
	testutil.AssertTrue(t, errors.Is(err, ErrProviderUnavailable), "unusable results are an availability failure")
	testutil.AssertFalse(t, errors.Is(err, ErrBadInput), "not a bad input")

	var failure *AllProvidersFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("error should be *AllProvidersFailedError, got %T", err)
	}
	testutil.AssertEqual(t, len(failure.Attempts), 3, "attempts")
	for _, id := range []string{"p1", "p2", "p3"} {
		testutil.AssertEqual(t, client.Starts(id), 1, id+" attempted exactly once")
	}
	for _, a := range failure.Attempts {
		testutil.AssertEqual(t, a.Reason, provider.ReasonUnusable, a.Provider+" reason")
	}
}

func TestRun_TerminalClassFollowsLastError(t *testing.T) {
	tests := []struct {
		name        string
		last        mockOutcome
		wantBad     bool
		wantReason  provider.Reason
		wantMessage string
	}{
		{
			name:       "no data is bad input",
			last:       mockOutcome{fetchErr: provider.NewError("p2", provider.ReasonNoData, "dataset is empty", nil)},
			wantBad:    true,
			wantReason: provider.ReasonNoData,
		},
		{
			name:       "private account is bad input",
			last:       mockOutcome{records: []provider.RawRecord{{"username": "secret", "isPrivate": true}}},
			wantBad:    true,
			wantReason: provider.ReasonPrivate,
		},
		{
			name:       "job failure is unavailable",
			last:       mockOutcome{state: provider.JobFailed},
			wantBad:    false,
			wantReason: provider.ReasonJobFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockJobClient(map[string]mockOutcome{
				"p1": {startErr: provider.NewError("p1", provider.ReasonAuthFailed, "bad token", nil)},
				"p2": tt.last,
			})
			p := newTestPipeline(t, client, []string{"p1", "p2"})

			_, err := p.Run(context.Background(), "secret")

			testutil.AssertTrue(t, errors.Is(err, ErrAllProvidersFailed), "AllProvidersFailed")
			testutil.AssertEqual(t, IsBadInput(err), tt.wantBad, "bad input class")
			testutil.AssertEqual(t, errors.Is(err, ErrProviderUnavailable), !tt.wantBad, "unavailable class")
			testutil.AssertEqual(t, provider.ReasonOf(err), tt.wantReason, "last reason")
		})
	}
}

func TestRun_PicksRecordMatchingHandle(t *testing.T) {
	other := usableRecord("someone.else")
	target := usableRecord("nasa")
	target["followersCount"] = float64(99)

	client := newMockJobClient(map[string]mockOutcome{
		"p1": {records: []provider.RawRecord{other, target}},
	})
	p := newTestPipeline(t, client, []string{"p1"})

	account, err := p.Fetch(context.Background(), "nasa")
	testutil.AssertNoError(t, err, "Fetch")
	testutil.AssertEqual(t, account.Followers, int64(99), "record for the handle should win")
}

func TestRun_ProviderOverride(t *testing.T) {
	client := newMockJobClient(map[string]mockOutcome{
		"p1": {records: []provider.RawRecord{usableRecord("nasa")}},
		"p2": {records: []provider.RawRecord{usableRecord("nasa")}},
	})
	p := newTestPipeline(t, client, []string{"p1", "p2"})

	result, err := p.Run(context.Background(), "nasa", "p2")
	testutil.AssertNoError(t, err, "Run")
	testutil.AssertEqual(t, result.Account.Provider, "p2", "override chain")
	testutil.AssertEqual(t, client.Starts("p1"), 0, "p1 not in override chain")
}

func TestRun_ContextCanceledStopsChain(t *testing.T) {
	client := newMockJobClient(map[string]mockOutcome{
		"p1": {records: []provider.RawRecord{usableRecord("nasa")}},
		"p2": {records: []provider.RawRecord{usableRecord("nasa")}},
	})
	p := newTestPipeline(t, client, []string{"p1", "p2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "nasa")
	testutil.AssertTrue(t, errors.Is(err, context.Canceled), "context error should be reachable")
	testutil.AssertTrue(t, errors.Is(err, ErrAllProvidersFailed), "still a terminal chain failure")
	testutil.AssertEqual(t, client.Starts("p2"), 0, "no further providers after cancellation")
}

func TestRun_EmptyHandle(t *testing.T) {
	p := newTestPipeline(t, newMockJobClient(nil), []string{"p1"})

	_, err := p.Run(context.Background(), "  ")
	testutil.AssertTrue(t, IsBadInput(err), "empty handle is bad input")
}

func TestRun_OpenCircuitSkipsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.BreakerThreshold = 1
	cfg.Providers.RateLimit = 0
	guard := provider.NewGuard(cfg, logging.NewNopLogger())

	client := newMockJobClient(map[string]mockOutcome{
		"p1": {startErr: provider.NewError("p1", provider.ReasonTransport, "connection refused", nil)},
		"p2": {records: []provider.RawRecord{usableRecord("nasa")}},
	})
	p := newTestPipeline(t, client, []string{"p1", "p2"}, WithGuard(guard))

	_, err := p.Run(context.Background(), "nasa")
	testutil.AssertNoError(t, err, "first run")
	testutil.AssertEqual(t, guard.State("p1"), provider.CircuitOpen, "p1 breaker")

	result, err := p.Run(context.Background(), "nasa")
	testutil.AssertNoError(t, err, "second run")
	testutil.AssertEqual(t, client.Starts("p1"), 1, "open breaker skips p1")
	testutil.AssertEqual(t, result.Attempts[0].Reason, provider.ReasonCircuitOpen, "skip is recorded")
}

func TestRun_EmbedsProfilePicture(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer images.Close()

	tests := []struct {
		name      string
		path      string
		wantImage bool
	}{
		{"picture embedded", "/pic.png", true},
		{"download failure leaves no picture", "/missing.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := usableRecord("nasa")
			rec["profilePicUrl"] = images.URL + tt.path

			client := newMockJobClient(map[string]mockOutcome{"p1": {records: []provider.RawRecord{rec}}})
			fetcher := NewImageFetcher(time.Second, 1024, logging.NewNopLogger())
			p := newTestPipeline(t, client, []string{"p1"}, WithImageFetcher(fetcher))

			account, err := p.Fetch(context.Background(), "nasa")
			testutil.AssertNoError(t, err, "Fetch")

			if !tt.wantImage {
				testutil.AssertTrue(t, account.ProfilePicBase64 == nil, "no picture expected")
				return
			}
			if account.ProfilePicBase64 == nil {
				t.Fatal("picture should be embedded")
			}
			testutil.AssertTrue(t, strings.HasPrefix(*account.ProfilePicBase64, "data:image/png;base64,"), "data uri")
		})
	}
}

func TestRun_GhostDataExample(t *testing.T) {
	client := newMockJobClient(map[string]mockOutcome{
		"p1": {records: []provider.RawRecord{{
			"username":       "instagram",
			"followersCount": float64(500000000),
			"postsCount":     float64(7000),
			"latestPosts":    []interface{}{},
		}}},
	})
	p := newTestPipeline(t, client, []string{"p1"})

	account, err := p.Fetch(context.Background(), "instagram")
	testutil.AssertNoError(t, err, "ghost data is a warning, not an error")

	if account.DataFetchWarning == nil {
		t.Fatal("dataFetchWarning should be set")
	}
	testutil.AssertFalse(t, account.AvgLikes.IsKnown(), "avgLikes")
	testutil.AssertFalse(t, account.AvgComments.IsKnown(), "avgComments")
	testutil.AssertFalse(t, account.EngagementRate.IsKnown(), "engagementRate")
	testutil.AssertEqual(t, account.BotScore, 25, "botScore")
}
