package livelocation

import (
	"maps"
	"sync"
)

// store holds the keyed last-write-wins maps. Only the owning client mutates it.
type store struct {
	mu        sync.RWMutex
	connected bool
	locations map[string]LocationSample
	statuses  map[string]StatusSample
}

func newStore() *store {
	return &store{
		locations: make(map[string]LocationSample),
		statuses:  make(map[string]StatusSample),
	}
}

func (s *store) upsertLocation(sample LocationSample) {
	s.mu.Lock()
	s.locations[sample.VehicleID] = sample
	s.mu.Unlock()
}

func (s *store) upsertStatus(sample StatusSample) {
	if sample.Location != nil {
		loc := *sample.Location
		sample.Location = &loc
	}
	s.mu.Lock()
	s.statuses[sample.VehicleID] = sample
	s.mu.Unlock()
}

// applyBatch upserts in array order while holding the lock for the whole batch,
// so nothing else is observed between two entries.
func (s *store) applyBatch(batch []LocationSample) {
	s.mu.Lock()
	for _, sample := range batch {
		s.locations[sample.VehicleID] = sample
	}
	s.mu.Unlock()
}

func (s *store) location(vehicleID string) (LocationSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.locations[vehicleID]
	return sample, ok
}

func (s *store) status(vehicleID string) (StatusSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.statuses[vehicleID]
	if ok && sample.Location != nil {
		loc := *sample.Location
		sample.Location = &loc
	}
	return sample, ok
}

func (s *store) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

func (s *store) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *store) reset() {
	s.mu.Lock()
	s.connected = false
	s.locations = make(map[string]LocationSample)
	s.statuses = make(map[string]StatusSample)
	s.mu.Unlock()
}

func (s *store) snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	statuses := make(map[string]StatusSample, len(s.statuses))
	for id, sample := range s.statuses {
		if sample.Location != nil {
			loc := *sample.Location
			sample.Location = &loc
		}
		statuses[id] = sample
	}
	return State{
		Connected: s.connected,
		Locations: maps.Clone(s.locations),
		Statuses:  statuses,
	}
}
