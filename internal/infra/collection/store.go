// Package collection keeps the four quiz collections as whole JSON snapshots in a
// get/set key-value store and exposes them as typed repositories.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"quizloop-service/internal/domain"
)

// Collection keys, shared with existing browser exports.
const (
	KeyUsers       = "quizApp_users"
	KeyProjects    = "quizApp_projects"
	KeySubmissions = "quizApp_submissions"
	KeyAttempts    = "quizApp_attempts"
)

// Keys lists every collection key.
var Keys = []string{KeyUsers, KeyProjects, KeySubmissions, KeyAttempts}

// KV is a get/set store of raw collection snapshots.
type KV interface {
	// Get reports false when the key has never been set.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store implements the project, respondent, attempt and submission repositories on a KV.
// Writes are read-modify-write of a whole collection; mu orders them within this
// process only, so writers in other processes still race last-write-wins.
type Store struct {
	kv KV
	mu sync.Mutex
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// ListProjects returns every stored project.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return load[domain.Project](ctx, s.kv, KeyProjects)
}

func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrProjectNotFound
}

// FindBySlug returns the first project carrying slug, published or not.
func (s *Store) FindBySlug(ctx context.Context, slug string) (domain.Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range projects {
		if p.URLSlug == slug {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrProjectNotFound
}

// SaveProject replaces the project with the same id or appends it.
func (s *Store) SaveProject(ctx context.Context, project domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := load[domain.Project](ctx, s.kv, KeyProjects)
	if err != nil {
		return err
	}
	replaced := false
	for i := range projects {
		if projects[i].ID == project.ID {
			projects[i] = project
			replaced = true
			break
		}
	}
	if !replaced {
		projects = append(projects, project)
	}
	return save(ctx, s.kv, KeyProjects, projects)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := load[domain.Project](ctx, s.kv, KeyProjects)
	if err != nil {
		return err
	}
	kept := projects[:0]
	for _, p := range projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return save(ctx, s.kv, KeyProjects, kept)
}

func (s *Store) ListRespondents(ctx context.Context) ([]domain.Respondent, error) {
	return load[domain.Respondent](ctx, s.kv, KeyUsers)
}

// ReplaceRespondents overwrites the roster.
func (s *Store) ReplaceRespondents(ctx context.Context, respondents []domain.Respondent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if respondents == nil {
		respondents = []domain.Respondent{}
	}
	return save(ctx, s.kv, KeyUsers, respondents)
}

func (s *Store) AppendAttempt(ctx context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTo(ctx, s.kv, KeyAttempts, attempt)
}

func (s *Store) ListAttempts(ctx context.Context) ([]domain.Attempt, error) {
	return load[domain.Attempt](ctx, s.kv, KeyAttempts)
}

func (s *Store) AppendSubmission(ctx context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTo(ctx, s.kv, KeySubmissions, submission)
}

func (s *Store) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	return load[domain.Submission](ctx, s.kv, KeySubmissions)
}

// load is get(key, []): an absent key yields an empty collection.
func load[T any](ctx context.Context, kv KV, key string) ([]T, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, kv KV, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func appendTo[T any](ctx context.Context, kv KV, key string, item T) error {
	items, err := load[T](ctx, kv, key)
	if err != nil {
		return err
	}
	return save(ctx, kv, key, append(items, item))
}
