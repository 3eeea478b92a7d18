package memory

import (
	"context"
	"sync"
	"time"

	"quizloop-service/internal/app"
)

// VisitStore is an in-memory implementation of app.VisitRepository. Visits not
// looked up for longer than ttl are dropped; a ttl <= 0 keeps them until deleted.
type VisitStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.Mutex
	visits map[string]*visitEntry
}

type visitEntry struct {
	visit    *app.Visit
	lastSeen time.Time
}

func NewVisitStore(ttl time.Duration) *VisitStore {
	return NewVisitStoreWithClock(ttl, time.Now)
}

// NewVisitStoreWithClock is test-only for deterministic expiry.
func NewVisitStoreWithClock(ttl time.Duration, clock func() time.Time) *VisitStore {
	return &VisitStore{
		ttl:    ttl,
		clock:  clock,
		visits: make(map[string]*visitEntry),
	}
}

// Put stores the visit and drops idle ones.
func (s *VisitStore) Put(visit *app.Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweepLocked(now)
	s.visits[visit.ID] = &visitEntry{visit: visit, lastSeen: now}
}

// Get returns a live visit and refreshes its idle timer.
func (s *VisitStore) Get(id string) (*app.Visit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.visits[id]
	if !ok {
		return nil, false
	}
	now := s.clock()
	if s.expired(entry, now) {
		delete(s.visits, id)
		return nil, false
	}
	entry.lastSeen = now
	return entry.visit, true
}

func (s *VisitStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visits, id)
}

// Sweep drops idle visits and reports how many were removed.
func (s *VisitStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.clock())
}

// Len reports how many visits are held.
func (s *VisitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visits)
}

func (s *VisitStore) sweepLocked(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	removed := 0
	for id, entry := range s.visits {
		if s.expired(entry, now) {
			delete(s.visits, id)
			removed++
		}
	}
	return removed
}

func (s *VisitStore) expired(entry *visitEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastSeen) > s.ttl
}
