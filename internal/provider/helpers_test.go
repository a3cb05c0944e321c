package provider

import (
	"context"
	"sync"
	"sync/atomic"

	"socialprobe/internal/config"
	"socialprobe/internal/logging/types"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Providers.ApifyBaseURL = baseURL
	cfg.Providers.ApifyToken = "apify-token"
	cfg.Providers.BrightDataURL = baseURL
	cfg.Providers.BrightDataAPIKey = "bd-key"
	cfg.Providers.MaxRetries = 0
	return cfg
}

// scriptedClient returns job states in order, repeating the last one
type scriptedClient struct {
	mu     sync.Mutex
	states []JobState
	errs   []error
	calls  int
}

func (c *scriptedClient) StartJob(ctx context.Context, handle string, d Descriptor) (*RemoteJob, error) {
	return &RemoteJob{ID: "job-1", ProviderID: d.ID}, nil
}

func (c *scriptedClient) JobStatus(ctx context.Context, job *RemoteJob) (JobState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.states) {
		i = len(c.states) - 1
	}
	return c.states[i], nil
}

func (c *scriptedClient) FetchResults(ctx context.Context, job *RemoteJob) ([]RawRecord, error) {
	return nil, nil
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// countingLogger counts Debug calls, which the transport emits once per retry
type countingLogger struct {
	types.Logger
	debug *int32
}

func (l *countingLogger) Debug(message string, fields ...map[string]interface{}) {
	atomic.AddInt32(l.debug, 1)
}
