package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
)

// ProjectCache caches slug lookups with TTL to avoid re-reading the whole project
// collection on every visit. Any write through the cache drops every entry.
type ProjectCache struct {
	app.ProjectRepository

	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedProject
	gen   uint64
}

type cachedProject struct {
	project   domain.Project
	expiresAt time.Time
}

func NewProjectCache(next app.ProjectRepository, ttl time.Duration) *ProjectCache {
	return NewProjectCacheWithClock(next, ttl, time.Now)
}

// NewProjectCacheWithClock is test-only for deterministic expiry.
func NewProjectCacheWithClock(next app.ProjectRepository, ttl time.Duration, clock func() time.Time) *ProjectCache {
	return &ProjectCache{
		ProjectRepository: next,
		ttl:               ttl,
		clock:             clock,
		rnd:               rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:             make(map[string]cachedProject),
	}
}

func (c *ProjectCache) FindBySlug(ctx context.Context, slug string) (domain.Project, error) {
	if c.ttl <= 0 {
		return c.ProjectRepository.FindBySlug(ctx, slug)
	}
	if project, ok := c.lookup(slug); ok {
		return project, nil
	}

	result, err, _ := c.sf.Do(slug, func() (interface{}, error) {
		if project, ok := c.lookup(slug); ok {
			return project, nil
		}

		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		project, err := c.ProjectRepository.FindBySlug(ctx, slug)
		if err != nil {
			return domain.Project{}, err
		}

		c.mu.Lock()
		// a write since the load began makes this result stale
		if gen == c.gen {
			c.cache[slug] = cachedProject{
				project:   project,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return project, nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return result.(domain.Project), nil
}

func (c *ProjectCache) SaveProject(ctx context.Context, project domain.Project) error {
	defer c.invalidate()
	return c.ProjectRepository.SaveProject(ctx, project)
}

func (c *ProjectCache) DeleteProject(ctx context.Context, id string) error {
	defer c.invalidate()
	return c.ProjectRepository.DeleteProject(ctx, id)
}

func (c *ProjectCache) lookup(slug string) (domain.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[slug]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Project{}, false
	}
	return entry.project, true
}

func (c *ProjectCache) invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cachedProject)
	c.gen++
	c.mu.Unlock()
}

func (c *ProjectCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
