package trail

import (
	"context"
	"errors"
	"sync"
	"time"

	"OcularBiomarker/pkg/geometry"
)

var ErrEmptySession = errors.New("trail session key is empty")

type Store interface {
	Append(ctx context.Context, session string, p geometry.Vector) ([]geometry.Vector, error)
	Points(ctx context.Context, session string) ([]geometry.Vector, error)
	Reset(ctx context.Context, session string) error
	Capacity() int
}

type entry struct {
	mu       sync.Mutex
	trail    *Trail
	lastSeen time.Time
}

// MemoryStore keeps one trail per session in process memory. Sessions idle
// for longer than the TTL are dropped by a background sweep.
type MemoryStore struct {
	capacity int
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryStore(capacity int, idleTTL time.Duration) *MemoryStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	s := &MemoryStore{
		capacity: capacity,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if idleTTL > 0 {
		go s.janitor(sweepInterval(idleTTL))
	} else {
		close(s.done)
	}

	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

func (s *MemoryStore) Capacity() int {
	return s.capacity
}

func (s *MemoryStore) Append(_ context.Context, session string, p geometry.Vector) ([]geometry.Vector, error) {
	if session == "" {
		return nil, ErrEmptySession
	}

	e := s.entry(session, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.trail.Push(p)
	return e.trail.Points(), nil
}

func (s *MemoryStore) Points(_ context.Context, session string) ([]geometry.Vector, error) {
	if session == "" {
		return nil, ErrEmptySession
	}

	e := s.entry(session, false)
	if e == nil {
		return []geometry.Vector{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.trail.Points(), nil
}

func (s *MemoryStore) Reset(_ context.Context, session string) error {
	if session == "" {
		return ErrEmptySession
	}

	s.mu.Lock()
	delete(s.sessions, session)
	s.mu.Unlock()

	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// entry looks up a session and refreshes its last-seen time under the store
// lock, so a concurrent sweep never drops an entry that is about to be used.
func (s *MemoryStore) entry(session string, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[session]
	if !ok {
		if !create {
			return nil
		}
		e = &entry{trail: New(s.capacity)}
		s.sessions[session] = e
	}
	e.lastSeen = s.now()

	return e
}

// Sweep drops sessions idle for longer than the TTL and returns how many were
// removed.
func (s *MemoryStore) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	removed := 0
	for key, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}
