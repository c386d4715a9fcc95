package domain

import "time"

// Transition is an availability change between two consecutive checks.
type Transition struct {
	Key  EndpointKey
	From bool
	To   bool
}

// Observe applies one check result to s and returns the new state and
// whether the availability changed. The first observation of an endpoint
// never counts as a change. LastSeen only moves forward.
func (s HostState) Observe(ep Endpoint, available bool, now time.Time) (HostState, bool) {
	prev := s.Available

	next := s
	next.Key = ep.Key
	next.LastChecked = now
	if available && now.After(next.LastSeen) {
		next.LastSeen = now
	}
	next.Available = &available
	next.RemoteAddr = ep.RemoteAddr
	next.RemotePort = ep.RemotePort
	next.Comment = ep.Comment

	return next, prev != nil && *prev != available
}

// TransitionFrom describes the change Observe reported between prev and next.
// ok is false when there was no change.
func TransitionFrom(prev, next HostState) (t Transition, ok bool) {
	if prev.Available == nil || next.Available == nil || *prev.Available == *next.Available {
		return Transition{}, false
	}
	return Transition{Key: next.Key, From: *prev.Available, To: *next.Available}, true
}
