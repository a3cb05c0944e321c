package pipeline

import (
	"context"
	"sync"

	"socialprobe/internal/provider"
)

type mockOutcome struct {
	startErr error
	state    provider.JobState
	records  []provider.RawRecord
	fetchErr error
}

// mockJobClient scripts one outcome per provider and counts calls
type mockJobClient struct {
	mu       sync.Mutex
	outcomes map[string]mockOutcome
	starts   map[string]int
	fetches  map[string]int
}

func newMockJobClient(outcomes map[string]mockOutcome) *mockJobClient {
	return &mockJobClient{
		outcomes: outcomes,
		starts:   make(map[string]int),
		fetches:  make(map[string]int),
	}
}

func (m *mockJobClient) StartJob(ctx context.Context, handle string, d provider.Descriptor) (*provider.RemoteJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starts[d.ID]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.outcomes[d.ID].startErr; err != nil {
		return nil, err
	}
	return &provider.RemoteJob{ID: "job-" + d.ID, ProviderID: d.ID}, nil
}

func (m *mockJobClient) JobStatus(ctx context.Context, job *provider.RemoteJob) (provider.JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state := m.outcomes[job.ProviderID].state; state != "" {
		return state, nil
	}
	return provider.JobSucceeded, nil
}

func (m *mockJobClient) FetchResults(ctx context.Context, job *provider.RemoteJob) ([]provider.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetches[job.ProviderID]++
	outcome := m.outcomes[job.ProviderID]
	return outcome.records, outcome.fetchErr
}

func (m *mockJobClient) Starts(providerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts[providerID]
}
