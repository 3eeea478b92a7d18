package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizloop-service/internal/app"
)

// VisitStore is a Redis-aware implementation of app.VisitRepository.
// Sessions hold live state and stay in a local map; Redis carries a liveness
// marker per visit whose TTL is refreshed on every lookup. A visit is dropped
// locally once its marker has expired or it has been idle longer than ttl.
type VisitStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time

	mu     sync.Mutex
	visits map[string]*visitEntry
}

type visitEntry struct {
	visit    *app.Visit
	lastSeen time.Time
}

func NewVisitStore(client *redis.Client, ttl time.Duration) *VisitStore {
	return NewVisitStoreWithClock(client, ttl, time.Now)
}

// NewVisitStoreWithClock is test-only for deterministic local expiry.
func NewVisitStoreWithClock(client *redis.Client, ttl time.Duration, clock func() time.Time) *VisitStore {
	return &VisitStore{
		client: client,
		ttl:    ttl,
		clock:  clock,
		visits: make(map[string]*visitEntry),
	}
}

func (s *VisitStore) Put(visit *app.Visit) {
	s.mu.Lock()
	now := s.clock()
	s.dropIdleLocked(now)
	s.visits[visit.ID] = &visitEntry{visit: visit, lastSeen: now}
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(visit.ID), visit.Slug, s.ttl).Err()
}

func (s *VisitStore) Get(id string) (*app.Visit, bool) {
	s.mu.Lock()
	entry, ok := s.visits[id]
	if ok && s.idle(entry, s.clock()) {
		delete(s.visits, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	ctx := context.Background()
	alive, err := s.client.Exists(ctx, s.key(id)).Result()
	if err == nil && alive == 0 {
		s.Delete(id)
		return nil, false
	}
	// Redis unavailable: the local copy is still authoritative.
	if err == nil && s.ttl > 0 {
		_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()
	}

	s.mu.Lock()
	entry.lastSeen = s.clock()
	s.mu.Unlock()
	return entry.visit, true
}

func (s *VisitStore) Delete(id string) {
	s.mu.Lock()
	delete(s.visits, id)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// Sweep drops idle visits and visits whose liveness marker is gone, and
// reports how many were removed.
func (s *VisitStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	removed := s.dropIdleLocked(s.clock())
	ids := make([]string, 0, len(s.visits))
	for id := range s.visits {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	if len(ids) == 0 {
		return removed
	}

	checks := make(map[string]*redis.IntCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			checks[id] = p.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return removed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cmd := range checks {
		if cmd.Val() == 0 {
			if _, ok := s.visits[id]; ok {
				delete(s.visits, id)
				removed++
			}
		}
	}
	return removed
}

// Len reports how many visits are held locally.
func (s *VisitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visits)
}

func (s *VisitStore) dropIdleLocked(now time.Time) int {
	removed := 0
	for id, entry := range s.visits {
		if s.idle(entry, now) {
			delete(s.visits, id)
			removed++
		}
	}
	return removed
}

func (s *VisitStore) idle(entry *visitEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastSeen) > s.ttl
}

func (s *VisitStore) key(id string) string {
	return "quiz:visit:" + id
}
