package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialprobe/internal/logging"
	"socialprobe/internal/logging/types"
	"socialprobe/internal/pipeline"
	"socialprobe/pkg/models"
	"socialprobe/pkg/utils"
)

// Runner walks a provider chain for one handle
type Runner interface {
	Run(ctx context.Context, handle string, providers ...string) (*pipeline.Result, error)
}

// Cache stores analyzed accounts by handle
type Cache interface {
	GetProfile(ctx context.Context, handle string) (*utils.CachedProfile, error)
	SetProfile(ctx context.Context, handle string, account *models.AccountData) error
}

// Request is one analysis call
type Request struct {
	Handle    string
	Providers []string
	SkipCache bool
}

// Outcome is a completed analysis
type Outcome struct {
	Handle   string
	Account  *models.AccountData
	Attempts []pipeline.Attempt
	Cached   bool
	Duration time.Duration
}

// Service normalizes the handle, consults the cache and runs the pipeline
type Service struct {
	runner Runner
	cache  Cache
	logger types.Logger
}

// NewService creates a service. cache may be nil.
func NewService(runner Runner, cache Cache, logger types.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Service{
		runner: runner,
		cache:  cache,
		logger: logger.WithField("component", "analysis"),
	}
}

// Analyze returns the analyzed account for req.Handle. Requests naming an
// explicit provider list bypass the cache in both directions.
func (s *Service) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	handle := utils.NormalizeHandle(req.Handle)
	if !utils.IsValidHandle(handle) {
		return nil, fmt.Errorf("%w: invalid handle %q", pipeline.ErrBadInput, req.Handle)
	}

	useCache := s.cache != nil && len(req.Providers) == 0
	logger := s.logger.WithField("handle", handle)

	if useCache && !req.SkipCache {
		cached, err := s.cache.GetProfile(ctx, handle)
		switch {
		case err == nil:
			logger.Debug("Serving cached analysis", map[string]interface{}{
				"cached_at": cached.CachedAt,
			})
			return &Outcome{
				Handle:   handle,
				Account:  cached.Account,
				Cached:   true,
				Duration: time.Since(start),
			}, nil
		case !errors.Is(err, utils.ErrCacheMiss):
			logger.Warn("Profile cache unavailable", map[string]interface{}{"error": err.Error()})
		}
	}

	result, err := s.runner.Run(ctx, handle, req.Providers...)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := s.cache.SetProfile(ctx, handle, result.Account); err != nil {
			logger.Warn("Failed to cache analysis", map[string]interface{}{"error": err.Error()})
		}
	}

	return &Outcome{
		Handle:   handle,
		Account:  result.Account,
		Attempts: result.Attempts,
		Duration: time.Since(start),
	}, nil
}
