package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialprobe/internal/logging"
	"socialprobe/internal/testutil"
)

func newTestPoller(timeout time.Duration) *Poller {
	return NewPoller(time.Millisecond, timeout, logging.NewNopLogger())
}

func TestPoller_Wait(t *testing.T) {
	transient := errors.New("connection reset")

	tests := []struct {
		name       string
		client     *scriptedClient
		wantReason Reason
		wantOK     bool
	}{
		{"succeeds after running", &scriptedClient{states: []JobState{JobRunning, JobRunning, JobSucceeded}}, "", true},
		{"transient errors are tolerated", &scriptedClient{
			states: []JobState{JobRunning, JobRunning, JobSucceeded},
			errs:   []error{transient, transient},
		}, "", true},
		{"failed job", &scriptedClient{states: []JobState{JobRunning, JobFailed}}, ReasonJobFailed, false},
		{"aborted job", &scriptedClient{states: []JobState{JobAborted}}, ReasonJobFailed, false},
		{"provider side timeout", &scriptedClient{states: []JobState{JobTimedOut}}, ReasonTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &RemoteJob{ID: "job-1", ProviderID: "p", StartedAt: time.Now()}
			err := newTestPoller(5*time.Second).Wait(context.Background(), tt.client, job)

			if tt.wantOK {
				testutil.AssertNoError(t, err, "Wait")
				return
			}
			testutil.AssertError(t, err, "Wait")
			testutil.AssertEqual(t, ReasonOf(err), tt.wantReason, "reason")
		})
	}
}

func TestPoller_Deadline(t *testing.T) {
	client := &scriptedClient{states: []JobState{JobRunning}}
	job := &RemoteJob{ID: "job-1", ProviderID: "p", StartedAt: time.Now()}

	err := newTestPoller(20*time.Millisecond).Wait(context.Background(), client, job)

	testutil.AssertEqual(t, ReasonOf(err), ReasonTimeout, "reason")
	testutil.AssertTrue(t, client.Calls() > 0, "status should have been polled")
}

func TestPoller_ContextCancellation(t *testing.T) {
	client := &scriptedClient{states: []JobState{JobRunning}}
	job := &RemoteJob{ID: "job-1", ProviderID: "p", StartedAt: time.Now()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := newTestPoller(time.Minute).Wait(ctx, client, job)
	testutil.AssertTrue(t, errors.Is(err, context.DeadlineExceeded), "context error should be returned")
}

// hangingClient never answers a status call until its context ends
type hangingClient struct {
	scriptedClient
}

func (c *hangingClient) JobStatus(ctx context.Context, job *RemoteJob) (JobState, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPoller_DeadlineBoundsHangingStatusCall(t *testing.T) {
	job := &RemoteJob{ID: "job-1", ProviderID: "p", StartedAt: time.Now()}

	started := time.Now()
	err := newTestPoller(50*time.Millisecond).Wait(context.Background(), &hangingClient{}, job)
	elapsed := time.Since(started)

	testutil.AssertEqual(t, ReasonOf(err), ReasonTimeout, "reason")
	testutil.AssertTrue(t, elapsed < time.Second, "hanging status call must not outlive the polling deadline")
}

func TestPoller_HangingStatusCallOverHTTP(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Providers.MaxRetries = 2
	cfg.Providers.StartTimeout = time.Second
	client := NewApifyClient(cfg, logging.NewNopLogger())
	job := &RemoteJob{ID: "run-1", ProviderID: "p", DatasetID: "ds-1", StartedAt: time.Now(), baseURL: srv.URL, token: "apify-token"}

	started := time.Now()
	err := newTestPoller(100*time.Millisecond).Wait(context.Background(), client, job)

	testutil.AssertEqual(t, ReasonOf(err), ReasonTimeout, "reason")
	testutil.AssertTrue(t, time.Since(started) < time.Second, "Wait should return near the polling deadline")
}
