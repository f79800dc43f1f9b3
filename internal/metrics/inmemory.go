package metrics

import (
	"sync"
	"time"
)

// Snapshot is a copy of the in-memory counters.
type Snapshot struct {
	Generations       map[string]uint64 // "operation/outcome"
	UpstreamCalls     map[string]uint64
	UpstreamTotal     time.Duration
	FreeUsageConsumed uint64
	Auth              map[string]uint64 // "source/result"
	RateLimited       uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{snap: Snapshot{
		Generations:   map[string]uint64{},
		UpstreamCalls: map[string]uint64{},
		Auth:          map[string]uint64{},
	}}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.snap
	out.Generations = copyCounts(m.snap.Generations)
	out.UpstreamCalls = copyCounts(m.snap.UpstreamCalls)
	out.Auth = copyCounts(m.snap.Auth)
	return out
}

// Generation returns the count for one operation and outcome.
func (m *InMemoryRecorder) Generation(operation, outcome string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Generations[operation+"/"+outcome]
}

func (m *InMemoryRecorder) IncGeneration(operation, outcome string) {
	m.mu.Lock()
	m.snap.Generations[operation+"/"+outcome]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) ObserveUpstreamDuration(operation string, d time.Duration) {
	m.mu.Lock()
	m.snap.UpstreamCalls[operation]++
	m.snap.UpstreamTotal += d
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncFreeUsageConsumed() {
	m.mu.Lock()
	m.snap.FreeUsageConsumed++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncAuth(source, result string) {
	m.mu.Lock()
	m.snap.Auth[source+"/"+result]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncRateLimited() {
	m.mu.Lock()
	m.snap.RateLimited++
	m.mu.Unlock()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
