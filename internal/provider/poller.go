package provider

import (
	"context"
	"fmt"
	"time"

	"socialprobe/internal/logging/types"
)

// Poller waits for remote jobs to reach a terminal state
type Poller struct {
	interval time.Duration
	timeout  time.Duration
	logger   types.Logger
}

// NewPoller creates a poller that checks every interval until timeout elapses
func NewPoller(interval, timeout time.Duration, logger types.Logger) *Poller {
	return &Poller{
		interval: interval,
		timeout:  timeout,
		logger:   logger.WithField("component", "poller"),
	}
}

// Wait blocks until job succeeds, fails or the deadline passes. A nil error
// means the job succeeded and its results can be fetched. Status check errors
// are logged and polling continues. The deadline also bounds an in-flight
// status call.
func (p *Poller) Wait(ctx context.Context, client JobClient, job *RemoteJob) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	pollCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fields := map[string]interface{}{
		"provider": job.ProviderID,
		"job_id":   job.ID,
	}

	polls := 0
	for {
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return p.deadlineError(job, fields, polls)

		case <-ticker.C:
			polls++
			state, err := client.JobStatus(pollCtx, job)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if pollCtx.Err() != nil {
					return p.deadlineError(job, fields, polls)
				}
				p.logger.Warn("Job status check failed, will retry", withFields(fields, map[string]interface{}{
					"poll":  polls,
					"error": err.Error(),
				}))
				continue
			}

			if !state.Terminal() {
				p.logger.Debug("Job still running", withFields(fields, map[string]interface{}{"poll": polls}))
				continue
			}

			p.logger.Info("Job reached terminal state", withFields(fields, map[string]interface{}{
				"state":   string(state),
				"polls":   polls,
				"elapsed": time.Since(job.StartedAt).String(),
			}))

			switch state {
			case JobSucceeded:
				return nil
			case JobTimedOut:
				return NewError(job.ProviderID, ReasonTimeout, fmt.Sprintf("job %s timed out on the provider", job.ID), nil)
			default:
				return NewError(job.ProviderID, ReasonJobFailed, fmt.Sprintf("job %s finished as %s", job.ID, state), nil)
			}
		}
	}
}

func (p *Poller) deadlineError(job *RemoteJob, fields map[string]interface{}, polls int) error {
	p.logger.Warn("Job did not finish before the polling deadline", withFields(fields, map[string]interface{}{
		"polls":   polls,
		"timeout": p.timeout.String(),
	}))
	return NewError(job.ProviderID, ReasonTimeout, fmt.Sprintf("job %s still running after %s", job.ID, p.timeout), nil)
}

func withFields(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
