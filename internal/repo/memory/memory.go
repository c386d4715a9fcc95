package memory

import (
	"sync"
	"time"

	"github.com/hamed0406/sshwatch/internal/domain"
	"github.com/hamed0406/sshwatch/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// Store keeps the last known state per endpoint. The monitoring loop is
// its only writer; readers get copies.
type Store struct {
	mu     sync.RWMutex
	states map[domain.EndpointKey]domain.HostState
	order  []domain.EndpointKey // first-observation order
}

func New() *Store {
	return &Store{
		states: make(map[domain.EndpointKey]domain.HostState),
	}
}

func (m *Store) Get(key domain.EndpointKey) (domain.HostState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[key]
	return copyState(s), ok
}

// Upsert replaces the state under key with fn(current). current is the
// zero HostState when the key is new. The lock is held while fn runs, so
// fn must not call back into the store.
func (m *Store) Upsert(key domain.EndpointKey, fn func(cur domain.HostState) domain.HostState) domain.HostState {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.states[key]
	if !ok {
		m.order = append(m.order, key)
	}
	next := fn(copyState(cur))
	next.Key = key
	m.states[key] = next
	return copyState(next)
}

// Update records one check result for ep and reports whether its
// availability changed.
func (m *Store) Update(ep domain.Endpoint, available bool, now time.Time) (domain.HostState, bool) {
	var changed bool
	next := m.Upsert(ep.Key, func(cur domain.HostState) domain.HostState {
		var s domain.HostState
		s, changed = cur.Observe(ep, available, now)
		return s
	})
	return next, changed
}

// Snapshot returns copies of all states in first-observation order.
func (m *Store) Snapshot() []domain.HostState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.HostState, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, copyState(m.states[k]))
	}
	return out
}

// Prune drops every state whose key is not in keep and returns how many
// were removed.
func (m *Store) Prune(keep []domain.EndpointKey) int {
	wanted := make(map[domain.EndpointKey]struct{}, len(keep))
	for _, k := range keep {
		wanted[k] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	order := m.order[:0]
	for _, k := range m.order {
		if _, ok := wanted[k]; ok {
			order = append(order, k)
			continue
		}
		delete(m.states, k)
		removed++
	}
	m.order = order
	return removed
}

// copyState detaches the Available pointer so callers cannot mutate
// stored state.
func copyState(s domain.HostState) domain.HostState {
	if s.Available != nil {
		v := *s.Available
		s.Available = &v
	}
	return s
}
