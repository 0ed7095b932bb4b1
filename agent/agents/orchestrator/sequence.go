package orchestrator

import "sync"

// sequencer issues trace sequence ids. Ids stay strictly increasing per
// session even when a failed turn discards its draft state.
type sequencer struct {
	mu   sync.Mutex
	last map[string]int64
}

func newSequencer() *sequencer {
	return &sequencer{last: make(map[string]int64)}
}

func (s *sequencer) next(sessionID string, floor int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.last[sessionID]
	if v < floor {
		v = floor
	}
	v++
	s.last[sessionID] = v
	return v
}

func (s *sequencer) forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, sessionID)
}
