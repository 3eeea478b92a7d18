package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
	"quizloop-service/internal/infra/collection"
	"quizloop-service/internal/infra/memory"
)

type fixture struct {
	store  *collection.Store
	ledger *app.Ledger
	flow   *app.FlowController
	visits *memory.VisitStore
	clock  *stepClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := collection.NewStore(memory.NewKVStore())
	clock := &stepClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
	ledger := app.NewLedgerWithClock(store, store, clock.Now)
	visits := memory.NewVisitStore(time.Hour)
	resolver := app.NewResolver(store, zerolog.Nop())
	return &fixture{
		store:  store,
		ledger: ledger,
		flow:   app.NewFlowController(resolver, store, ledger, visits, zerolog.Nop()),
		visits: visits,
		clock:  clock,
	}
}

func (f *fixture) seedProject(t *testing.T, p domain.Project) {
	t.Helper()
	if err := f.store.SaveProject(context.Background(), p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func (f *fixture) seedRoster(t *testing.T, respondents ...domain.Respondent) {
	t.Helper()
	if err := f.store.ReplaceRespondents(context.Background(), respondents); err != nil {
		t.Fatalf("seed roster: %v", err)
	}
}

// start opens a visit on the published sample project and selects respondent.
func (f *fixture) start(t *testing.T, slug, respondentID string) *app.Session {
	t.Helper()
	ctx := context.Background()
	visit, snap, err := f.flow.StartVisit(ctx, slug, "")
	if err != nil {
		t.Fatalf("start visit: %v", err)
	}
	if snap.State != app.StateSelectingRespondent {
		t.Fatalf("expected selecting-respondent, got %s", snap.State)
	}
	snap, err = visit.Session.SelectRespondent(ctx, respondentID)
	if err != nil {
		t.Fatalf("select respondent: %v", err)
	}
	if snap.State != app.StateAnswering {
		t.Fatalf("expected answering, got %s", snap.State)
	}
	return visit.Session
}

func answer(t *testing.T, s *app.Session, answers map[string]int) {
	t.Helper()
	for qid, opt := range answers {
		if _, err := s.SetAnswer(qid, opt); err != nil {
			t.Fatalf("set answer %s=%d: %v", qid, opt, err)
		}
	}
}

// twoQuestionProject has correct answers [1, 2].
func twoQuestionProject() domain.Project {
	return domain.Project{
		ID:          "p1",
		Name:        "Safety basics",
		URLSlug:     "slug-safety",
		IsPublished: true,
		Questions: []domain.Question{
			{ID: "q1", QuestionText: "First?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
			{ID: "q2", QuestionText: "Second?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
		},
		CreatedAt: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
	}
}

var (
	aiko  = domain.Respondent{ID: "u1", Name: "Aiko"}
	ben   = domain.Respondent{ID: "u2", Name: "Ben"}
	chika = domain.Respondent{ID: "u3", Name: "Chika"}
)

// stepClock advances a second on every read so records are strictly ordered.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
