package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"socialprobe/internal/config"
	"socialprobe/internal/logging/types"
)

// ApifyClient runs Apify actors and reads their default datasets
type ApifyClient struct {
	transport *transport
	logger    types.Logger
}

type apifyRun struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
		StatusMessage    string `json:"statusMessage"`
	} `json:"data"`
}

// NewApifyClient creates a new Apify job client
func NewApifyClient(cfg *config.Config, logger types.Logger) *ApifyClient {
	logger = logger.WithField("client", string(KindApify))

	logger.Info("Apify client initialized", map[string]interface{}{
		"base_url":    cfg.Providers.ApifyBaseURL,
		"timeout":     cfg.Providers.StartTimeout.String(),
		"max_retries": cfg.Providers.MaxRetries,
	})

	return &ApifyClient{
		transport: newTransport(cfg.Providers.StartTimeout, cfg.Providers.MaxRetries, logger),
		logger:    logger,
	}
}

// StartJob starts an actor run for handle
func (c *ApifyClient) StartJob(ctx context.Context, handle string, d Descriptor) (*RemoteJob, error) {
	if d.Actor == "" {
		return nil, NewError(d.ID, ReasonNotFound, "no actor configured", nil)
	}
	if !d.HasCredentials() {
		return nil, NewError(d.ID, ReasonAuthFailed, "no apify token configured", nil)
	}

	apiURL := fmt.Sprintf("%s/v2/acts/%s/runs", d.BaseURL, url.PathEscape(d.Actor))

	var run apifyRun
	if err := c.transport.do(ctx, d.ID, http.MethodPost, apiURL, d.token, d.BuildInput(handle), &run); err != nil {
		return nil, err
	}
	if run.Data.ID == "" {
		return nil, NewError(d.ID, ReasonGeneric, "run response carried no id", nil)
	}

	c.logger.Debug("Apify run started", map[string]interface{}{
		"provider":   d.ID,
		"actor":      d.Actor,
		"job_id":     run.Data.ID,
		"dataset_id": run.Data.DefaultDatasetID,
	})

	return &RemoteJob{
		ID:         run.Data.ID,
		ProviderID: d.ID,
		DatasetID:  run.Data.DefaultDatasetID,
		StartedAt:  time.Now(),
		baseURL:    d.BaseURL,
		token:      d.token,
	}, nil
}

// JobStatus reads the run status and records its dataset id
func (c *ApifyClient) JobStatus(ctx context.Context, job *RemoteJob) (JobState, error) {
	apiURL := fmt.Sprintf("%s/v2/actor-runs/%s", job.baseURL, url.PathEscape(job.ID))

	var run apifyRun
	if err := c.transport.do(ctx, job.ProviderID, http.MethodGet, apiURL, job.token, nil, &run); err != nil {
		return "", err
	}
	if run.Data.DefaultDatasetID != "" {
		job.DatasetID = run.Data.DefaultDatasetID
	}

	return apifyState(run.Data.Status), nil
}

// FetchResults reads the run's dataset items
func (c *ApifyClient) FetchResults(ctx context.Context, job *RemoteJob) ([]RawRecord, error) {
	if job.DatasetID == "" {
		return nil, NewError(job.ProviderID, ReasonNoData, "run has no dataset", nil)
	}

	apiURL := fmt.Sprintf("%s/v2/datasets/%s/items?clean=true&format=json", job.baseURL, url.PathEscape(job.DatasetID))

	var records []RawRecord
	if err := c.transport.do(ctx, job.ProviderID, http.MethodGet, apiURL, job.token, nil, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, NewError(job.ProviderID, ReasonNoData, "dataset is empty", nil)
	}

	return records, nil
}

func apifyState(status string) JobState {
	switch status {
	case "SUCCEEDED":
		return JobSucceeded
	case "FAILED":
		return JobFailed
	case "ABORTING", "ABORTED":
		return JobAborted
	case "TIMING-OUT", "TIMED-OUT":
		return JobTimedOut
	default:
		return JobRunning
	}
}
