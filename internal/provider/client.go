package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"socialprobe/internal/logging/types"
)

// RawRecord is one decoded item from a provider's result set
type RawRecord = map[string]interface{}

// JobState is the provider-neutral status of a remote job
type JobState string

const (
	JobRunning   JobState = "RUNNING"
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
	JobAborted   JobState = "ABORTED"
	JobTimedOut  JobState = "TIMED_OUT"
)

// Terminal reports whether no further transitions are possible
func (s JobState) Terminal() bool {
	return s != JobRunning
}

// RemoteJob is a started scrape run. It is owned by the poller until a
// terminal status has been read.
type RemoteJob struct {
	ID         string
	ProviderID string
	DatasetID  string
	StartedAt  time.Time

	baseURL string
	token   string
}

// JobClient starts provider jobs and reads their results
type JobClient interface {
	StartJob(ctx context.Context, handle string, d Descriptor) (*RemoteJob, error)
	JobStatus(ctx context.Context, job *RemoteJob) (JobState, error)
	FetchResults(ctx context.Context, job *RemoteJob) ([]RawRecord, error)
}

// transport performs provider API calls with bounded retries. Client errors
// (4xx) are returned immediately; transport failures and 5xx are retried
// with a linear backoff. A POST is only repeated when the connection was
// refused, since any other failure may have started a run already.
type transport struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     types.Logger
}

func newTransport(timeout time.Duration, maxRetries int, logger types.Logger) *transport {
	return &transport{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    time.Second,
		logger:     logger,
	}
}

// do sends the request and decodes a 2xx JSON body into out
func (t *transport) do(ctx context.Context, providerID, method, url, token string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return NewError(providerID, ReasonGeneric, "failed to marshal request", err)
		}
	}

	idempotent := method != http.MethodPost

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			t.logger.Debug("Retrying provider request", map[string]interface{}{
				"provider": providerID,
				"attempt":  attempt + 1,
				"method":   method,
			})

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * t.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return NewError(providerID, ReasonGeneric, "failed to create request", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = NewError(providerID, ReasonTransport, "request failed", err)
			if !idempotent && !errors.Is(err, syscall.ECONNREFUSED) {
				break
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = NewError(providerID, ReasonTransport, "failed to read response body", err)
			if !idempotent {
				break
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			pe := classifyHTTP(providerID, resp.StatusCode, respBody)
			lastErr = pe

			// Don't retry on client errors (4xx)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 || !idempotent {
				break
			}
			continue
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return NewError(providerID, ReasonGeneric, "failed to parse response", err)
		}
		return nil
	}

	return lastErr
}
