package match

import (
	"context"
	"sync"

	"github.com/polimatch/polimatch/internal/model"
)

// MockDisambiguator is a deterministic test implementation of the
// Disambiguator interface. Responses are keyed by candidate name; anything
// without a queued response gets no opinion.
type MockDisambiguator struct {
	responses map[string]Resolution
	err       error
	calls     []MockResolveCall
	mu        sync.Mutex
}

// MockResolveCall records details of one resolution request.
type MockResolveCall struct {
	Candidate     model.ExtractedCandidate
	ShortlistSize int
}

// NewMockDisambiguator creates a new mock disambiguator.
func NewMockDisambiguator() *MockDisambiguator {
	return &MockDisambiguator{
		responses: make(map[string]Resolution),
	}
}

// SetResponse queues a resolution for candidates with the given name.
func (m *MockDisambiguator) SetResponse(candidateName string, resolution Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[candidateName] = resolution
}

// SetError makes every Resolve call fail with err.
func (m *MockDisambiguator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Resolve returns the queued resolution for the candidate's name, or no
// opinion when none is queued.
func (m *MockDisambiguator) Resolve(_ context.Context, candidate model.ExtractedCandidate, shortlist []ScoredPolitician) (Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockResolveCall{
		Candidate:     candidate,
		ShortlistSize: len(shortlist),
	})

	if m.err != nil {
		return Resolution{}, m.err
	}
	if resolution, ok := m.responses[candidate.Name]; ok {
		return resolution, nil
	}
	return Resolution{}, nil
}

// Calls returns all recorded calls for verification in tests.
func (m *MockDisambiguator) Calls() []MockResolveCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockResolveCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of times Resolve was called.
func (m *MockDisambiguator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
