package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"socialprobe/internal/config"
	"socialprobe/internal/logging"
	"socialprobe/internal/logging/types"
	"socialprobe/internal/profile"
	"socialprobe/internal/provider"
	"socialprobe/pkg/models"
)

// chainState is the position of one Fetch call in the provider chain
type chainState int

const (
	stateIdle chainState = iota
	stateAttempting
	stateSuccess
	stateNextProvider
	stateExhausted
)

func (s chainState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAttempting:
		return "attempting"
	case stateSuccess:
		return "success"
	case stateNextProvider:
		return "next_provider"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Pipeline walks the provider chain for a handle and returns the first usable record
type Pipeline struct {
	registry *provider.Registry
	clients  map[provider.Kind]provider.JobClient
	poller   *provider.Poller
	guard    *provider.Guard
	images   *ImageFetcher
	logger   types.Logger
	clock    func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithGuard sets the per-provider rate limiter and circuit breaker
func WithGuard(g *provider.Guard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithImageFetcher enables profile picture embedding
func WithImageFetcher(f *ImageFetcher) Option {
	return func(p *Pipeline) { p.images = f }
}

// WithLogger sets the pipeline logger
func WithLogger(logger types.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock overrides the clock used for fetchedAt and attempt durations
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// Result is a successful chain walk: the record plus the failed attempts before it
type Result struct {
	Account  *models.AccountData
	Attempts []Attempt
}

// New creates a pipeline over the given registry and job clients
func New(registry *provider.Registry, clients map[provider.Kind]provider.JobClient, poller *provider.Poller, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		clients:  clients,
		poller:   poller,
		logger:   logging.GetGlobalLogger(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("component", "pipeline")
	return p
}

// NewFromConfig wires the provider registry, the Apify and BrightData clients,
// the poller, the guard and the image fetcher from configuration.
func NewFromConfig(cfg *config.Config, logger types.Logger) (*Pipeline, error) {
	registry, err := provider.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	clients := map[provider.Kind]provider.JobClient{
		provider.KindApify:      provider.NewApifyClient(cfg, logger),
		provider.KindBrightData: provider.NewBrightDataClient(cfg, logger),
	}

	opts := []Option{
		WithLogger(logger),
		WithGuard(provider.NewGuard(cfg, logger)),
	}
	if cfg.Images.Enabled {
		opts = append(opts, WithImageFetcher(NewImageFetcher(cfg.Images.Timeout, cfg.Images.MaxBytes, logger)))
	}

	poller := provider.NewPoller(cfg.Providers.PollInterval, cfg.Providers.PollTimeout, logger)
	return New(registry, clients, poller, opts...), nil
}

// Registry returns the provider table
func (p *Pipeline) Registry() *provider.Registry {
	return p.registry
}

// Guard returns the rate limiter and circuit breaker registry, nil when disabled
func (p *Pipeline) Guard() *provider.Guard {
	return p.guard
}

// Fetch runs the configured provider chain for a normalized handle
func (p *Pipeline) Fetch(ctx context.Context, handle string) (*models.AccountData, error) {
	result, err := p.Run(ctx, handle)
	if err != nil {
		return nil, err
	}
	return result.Account, nil
}

// Run walks the chain for handle. providers overrides the configured order
// when non-empty. Providers are tried one at a time; the first usable record
// wins and later providers are not contacted.
func (p *Pipeline) Run(ctx context.Context, handle string, providers ...string) (*Result, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, fmt.Errorf("%w: empty handle", ErrBadInput)
	}

	chain, err := p.registry.Chain(providers...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	logger := p.logger.WithField("handle", handle)

	var (
		state    = stateIdle
		index    int
		attempts []Attempt
		last     error
		account  *models.AccountData
	)

	for {
		switch state {
		case stateIdle:
			logger.Info("Starting provider chain", map[string]interface{}{
				"providers": providerIDs(chain),
			})
			if len(chain) == 0 {
				state = stateExhausted
				continue
			}
			state = stateAttempting

		case stateAttempting:
			d := chain[index]
			started := p.clock()
			attemptLogger := logger.WithFields(map[string]interface{}{
				"provider": d.ID,
				"attempt":  index + 1,
			})

			account, err = p.attempt(ctx, attemptLogger, handle, d)
			if err == nil {
				account.Provider = d.ID
				account.FetchedAt = p.clock()
				attemptLogger.Info("Provider returned a usable record", map[string]interface{}{
					"followers": account.Followers,
					"posts":     account.Posts,
					"duration":  p.clock().Sub(started).String(),
				})
				state = stateSuccess
				continue
			}

			last = err
			attempts = append(attempts, Attempt{
				Provider: d.ID,
				Reason:   provider.ReasonOf(err),
				Error:    err.Error(),
				Duration: p.clock().Sub(started),
				err:      err,
			})
			attemptLogger.Warn("Provider attempt failed", map[string]interface{}{
				"reason": string(provider.ReasonOf(err)),
				"error":  err.Error(),
			})

			if ctx.Err() != nil {
				state = stateExhausted
				continue
			}
			state = stateNextProvider

		case stateNextProvider:
			index++
			if index >= len(chain) {
				state = stateExhausted
				continue
			}
			state = stateAttempting

		case stateSuccess:
			p.embedProfilePicture(ctx, logger, account)
			return &Result{Account: account, Attempts: attempts}, nil

		case stateExhausted:
			failure := &AllProvidersFailedError{Attempts: attempts, Last: last}
			logger.Error("Provider chain exhausted", map[string]interface{}{
				"attempts": len(attempts),
				"class":    failure.Class().Error(),
				"error":    failure.Error(),
			})
			return nil, failure
		}
	}
}

// attempt runs one provider end to end and reports the outcome to the guard
func (p *Pipeline) attempt(ctx context.Context, logger types.Logger, handle string, d provider.Descriptor) (*models.AccountData, error) {
	client, ok := p.clients[d.Kind]
	if !ok {
		return nil, provider.NewError(d.ID, provider.ReasonGeneric, fmt.Sprintf("no client for kind %s", d.Kind), nil)
	}

	if p.guard != nil {
		if err := p.guard.Acquire(ctx, d.ID); err != nil {
			return nil, err
		}
	}

	account, err := p.collect(ctx, logger, client, handle, d)

	if p.guard != nil {
		switch {
		case err == nil:
			p.guard.RecordSuccess(d.ID)
		case countsAgainstProvider(err):
			p.guard.RecordFailure(d.ID, err)
		}
	}
	return account, err
}

func (p *Pipeline) collect(ctx context.Context, logger types.Logger, client provider.JobClient, handle string, d provider.Descriptor) (*models.AccountData, error) {
	job, err := client.StartJob(ctx, handle, d)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("job_id", job.ID)
	logger.Info("Provider job started", nil)

	if err := p.poller.Wait(ctx, client, job); err != nil {
		return nil, err
	}

	records, err := client.FetchResults(ctx, job)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, provider.NewError(d.ID, provider.ReasonNoData, "no records returned", nil)
	}
	logger.Debug("Provider results fetched", map[string]interface{}{"records": len(records)})

	raw := pickRecord(records, handle, d.Fields)
	account := profile.Analyze(raw, d.Fields)

	if !account.IsUsable() {
		if account.IsPrivate {
			return nil, provider.NewError(d.ID, provider.ReasonPrivate, "account is private", nil)
		}
		return nil, provider.NewError(d.ID, provider.ReasonUnusable, "record has no followers and no posts", nil)
	}
	if account.DataFetchWarning != nil {
		logger.Warn("Data quality warning", map[string]interface{}{"warning": *account.DataFetchWarning})
	}

	return account, nil
}

// embedProfilePicture inlines the picture; failures leave the record without one
func (p *Pipeline) embedProfilePicture(ctx context.Context, logger types.Logger, account *models.AccountData) {
	if p.images == nil || account.ProfilePicURL == "" {
		return
	}

	encoded, err := p.images.Embed(ctx, account.ProfilePicURL)
	if err != nil {
		logger.Warn("Profile picture could not be embedded", map[string]interface{}{
			"provider": account.Provider,
			"error":    err.Error(),
		})
		return
	}
	account.ProfilePicBase64 = &encoded
}

// pickRecord prefers the record whose username matches handle
func pickRecord(records []provider.RawRecord, handle string, fields map[string][]string) map[string]interface{} {
	resolver := profile.NewResolver(fields)
	for _, rec := range records {
		if username, ok := resolver.String(rec, "username"); ok && strings.EqualFold(strings.TrimPrefix(username, "@"), handle) {
			return rec
		}
	}
	return records[0]
}

// countsAgainstProvider reports whether a failure reflects the provider's health
func countsAgainstProvider(err error) bool {
	pe, ok := provider.AsProviderError(err)
	if !ok {
		return false
	}
	switch pe.Reason {
	case provider.ReasonCircuitOpen, provider.ReasonUnusable, provider.ReasonNoData, provider.ReasonPrivate:
		return false
	default:
		return true
	}
}

func providerIDs(chain []provider.Descriptor) []string {
	ids := make([]string, len(chain))
	for i, d := range chain {
		ids[i] = d.ID
	}
	return ids
}
