package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialprobe/internal/config"
	"socialprobe/internal/logging/types"
)

// BrightDataClient triggers BrightData dataset collections and reads their snapshots
type BrightDataClient struct {
	transport *transport
	logger    types.Logger
}

type brightDataTrigger struct {
	SnapshotID string `json:"snapshot_id"`
}

type brightDataProgress struct {
	SnapshotID string `json:"snapshot_id"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	Errors     int    `json:"errors"`
}

// NewBrightDataClient creates a new BrightData job client
func NewBrightDataClient(cfg *config.Config, logger types.Logger) *BrightDataClient {
	logger = logger.WithField("client", string(KindBrightData))

	logger.Info("BrightData client initialized", map[string]interface{}{
		"base_url":    cfg.Providers.BrightDataURL,
		"timeout":     cfg.Providers.StartTimeout.String(),
		"max_retries": cfg.Providers.MaxRetries,
	})

	return &BrightDataClient{
		transport: newTransport(cfg.Providers.StartTimeout, cfg.Providers.MaxRetries, logger),
		logger:    logger,
	}
}

// StartJob triggers a collection for handle and returns the snapshot as the job
func (c *BrightDataClient) StartJob(ctx context.Context, handle string, d Descriptor) (*RemoteJob, error) {
	if d.DatasetID == "" {
		return nil, NewError(d.ID, ReasonNotFound, "no dataset configured", nil)
	}
	if !d.HasCredentials() {
		return nil, NewError(d.ID, ReasonAuthFailed, "no brightdata api key configured", nil)
	}

	apiURL := fmt.Sprintf("%s/datasets/v3/trigger?dataset_id=%s&include_errors=true",
		d.BaseURL, url.QueryEscape(d.DatasetID))

	input := d.BuildInput(handle)
	// the trigger endpoint takes a list of inputs
	if _, isList := input.([]interface{}); !isList {
		input = []interface{}{input}
	}

	var trigger brightDataTrigger
	if err := c.transport.do(ctx, d.ID, http.MethodPost, apiURL, d.token, input, &trigger); err != nil {
		return nil, err
	}
	if trigger.SnapshotID == "" {
		return nil, NewError(d.ID, ReasonGeneric, "trigger response carried no snapshot id", nil)
	}

	c.logger.Debug("BrightData collection triggered", map[string]interface{}{
		"provider":   d.ID,
		"dataset_id": d.DatasetID,
		"job_id":     trigger.SnapshotID,
	})

	return &RemoteJob{
		ID:         trigger.SnapshotID,
		ProviderID: d.ID,
		DatasetID:  trigger.SnapshotID,
		StartedAt:  time.Now(),
		baseURL:    d.BaseURL,
		token:      d.token,
	}, nil
}

// JobStatus reads snapshot progress
func (c *BrightDataClient) JobStatus(ctx context.Context, job *RemoteJob) (JobState, error) {
	apiURL := fmt.Sprintf("%s/datasets/v3/progress/%s", job.baseURL, url.PathEscape(job.ID))

	var progress brightDataProgress
	if err := c.transport.do(ctx, job.ProviderID, http.MethodGet, apiURL, job.token, nil, &progress); err != nil {
		return "", err
	}

	switch strings.ToLower(progress.Status) {
	case "ready":
		return JobSucceeded, nil
	case "failed":
		return JobFailed, nil
	default:
		return JobRunning, nil
	}
}

// FetchResults downloads the snapshot as JSON
func (c *BrightDataClient) FetchResults(ctx context.Context, job *RemoteJob) ([]RawRecord, error) {
	apiURL := fmt.Sprintf("%s/datasets/v3/snapshot/%s?format=json", job.baseURL, url.PathEscape(job.DatasetID))

	var records []RawRecord
	if err := c.transport.do(ctx, job.ProviderID, http.MethodGet, apiURL, job.token, nil, &records); err != nil {
		return nil, err
	}

	// include_errors puts per-input failures in the snapshot as records with only an error
	usable := records[:0]
	for _, record := range records {
		if _, failed := record["error"]; failed && len(record) <= 3 {
			c.logger.Warn("BrightData snapshot record carried an error", map[string]interface{}{
				"provider": job.ProviderID,
				"job_id":   job.ID,
				"error":    fmt.Sprint(record["error"]),
			})
			continue
		}
		usable = append(usable, record)
	}

	if len(usable) == 0 {
		return nil, NewError(job.ProviderID, ReasonNoData, "snapshot is empty", nil)
	}

	return usable, nil
}
