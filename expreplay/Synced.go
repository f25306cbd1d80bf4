package expreplay

import (
	"sync"

	"github.com/samuelfneumann/dotarl/timestep"
)

// Synced wraps a Buffer so that it can be pushed to and sampled from
// by multiple goroutines, e.g. when several environments collect
// experience for a single learner
type Synced struct {
	lock   sync.RWMutex
	buffer *Buffer
}

// NewSynced returns a Synced wrapping buffer. The buffer must not be
// used directly afterwards.
func NewSynced(buffer *Buffer) *Synced {
	return &Synced{buffer: buffer}
}

// Push adds a transition to the buffer. Pushing nil is a no-op.
func (s *Synced) Push(t *timestep.Transition) {
	if t == nil {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.buffer.Push(t)
}

// Sample returns n distinct transitions from the buffer. Selectors may
// hold state, so sampling takes the write lock.
func (s *Synced) Sample(n int) ([]timestep.Transition, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buffer.Sample(n)
}

// Snapshot returns a copy of the transitions in the buffer, oldest
// first
func (s *Synced) Snapshot() []timestep.Transition {
	s.lock.RLock()
	defer s.lock.RUnlock()

	transitions := make([]timestep.Transition, s.buffer.Len())
	for i := range transitions {
		transitions[i] = s.buffer.At(i)
	}
	return transitions
}

// Len returns the number of transitions in the buffer
func (s *Synced) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.buffer.Len()
}

// Capacity returns the maximum number of transitions in the buffer
func (s *Synced) Capacity() int {
	return s.buffer.Capacity()
}
