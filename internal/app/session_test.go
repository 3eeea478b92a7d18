package app_test

import (
	"context"
	"errors"
	"testing"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
)

func TestPerfectFirstAttemptSubmits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)

	session := f.start(t, "slug-safety", "u1")
	answer(t, session, map[string]int{"q1": 1, "q2": 2})

	snap, err := session.Grade(ctx)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if snap.State != app.StateGraded || snap.Score != 2 || snap.Total != 2 || !snap.Perfect {
		t.Fatalf("unexpected graded snapshot %+v", snap)
	}

	snap, err = session.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if snap.State != app.StateSubmitted || snap.Submission == nil {
		t.Fatalf("expected submitted with record, got %+v", snap)
	}
	if snap.Submission.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1, got %d", snap.Submission.AttemptCount)
	}

	subs, _ := f.store.ListSubmissions(ctx)
	if len(subs) != 1 || subs[0].UserID != "u1" || subs[0].ProjectID != "p1" {
		t.Fatalf("unexpected stored submissions %+v", subs)
	}
}

func TestRetryUntilPerfect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)

	session := f.start(t, "slug-safety", "u1")
	answer(t, session, map[string]int{"q1": 1, "q2": 1})

	snap, err := session.Grade(ctx)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if snap.Score != 1 || snap.Perfect {
		t.Fatalf("expected score 1 not perfect, got %+v", snap)
	}
	if _, err := session.Submit(ctx); !errors.Is(err, domain.ErrNotPerfect) {
		t.Fatalf("expected ErrNotPerfect, got %v", err)
	}

	snap, err = session.Retry()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if snap.State != app.StateAnswering || len(snap.Answers) != 0 {
		t.Fatalf("retry must clear answers, got %+v", snap)
	}
	if _, err := session.Grade(ctx); !errors.Is(err, domain.ErrIncompleteAnswers) {
		t.Fatalf("expected cleared answers to block grading, got %v", err)
	}

	answer(t, session, map[string]int{"q1": 1, "q2": 2})
	snap, err = session.Grade(ctx)
	if err != nil || snap.Score != 2 || !snap.Perfect {
		t.Fatalf("expected perfect second attempt, got %+v err=%v", snap, err)
	}
	snap, err = session.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if snap.Submission.AttemptCount != 2 {
		t.Fatalf("expected attempt_count=2, got %d", snap.Submission.AttemptCount)
	}

	attempts, _ := f.ledger.AttemptsFor(ctx, "p1", "u1")
	if len(attempts) != 2 || attempts[0].Score != 1 || attempts[1].Score != 2 {
		t.Fatalf("expected attempts [1 2], got %+v", attempts)
	}
}

func TestGradeIsIdempotentAndRecordsEachAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)

	session := f.start(t, "slug-safety", "u1")
	answer(t, session, map[string]int{"q1": 2, "q2": 2})

	first, err := session.Grade(ctx)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	second, err := session.Grade(ctx)
	if err != nil {
		t.Fatalf("grade again: %v", err)
	}
	if first.Score != second.Score || first.Score != 1 {
		t.Fatalf("expected same score twice, got %d and %d", first.Score, second.Score)
	}

	attempts, _ := f.ledger.AttemptsFor(ctx, "p1", "u1")
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts recorded, got %d", len(attempts))
	}
	if attempts[0].ID == attempts[1].ID {
		t.Fatalf("attempts must have distinct ids")
	}
}

func TestZeroQuestionQuizIsVacuouslyPerfect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, domain.Project{ID: "empty", Name: "Empty", URLSlug: "slug-empty", IsPublished: true, Questions: []domain.Question{}})
	f.seedRoster(t, aiko)

	session := f.start(t, "slug-empty", "u1")
	snap, err := session.Grade(ctx)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if snap.Score != 0 || snap.Total != 0 || !snap.Perfect {
		t.Fatalf("expected 0/0 perfect, got %+v", snap)
	}
	if _, err := session.Retry(); !errors.Is(err, domain.ErrRetryAfterPerfect) {
		t.Fatalf("expected retry refused on perfect score, got %v", err)
	}
	snap, err = session.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if snap.Submission.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1, got %d", snap.Submission.AttemptCount)
	}
}

func TestSelectRespondentValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)

	visit, _, err := f.flow.StartVisit(ctx, "slug-safety", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	snap, err := visit.Session.SelectRespondent(ctx, "")
	if !errors.Is(err, domain.ErrNoRespondentSelected) {
		t.Fatalf("expected ErrNoRespondentSelected, got %v", err)
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected a validation error")
	}
	if snap.State != app.StateSelectingRespondent || len(snap.Selectable) != 1 {
		t.Fatalf("state must not change on validation error, got %+v", snap)
	}

	if _, err := visit.Session.SelectRespondent(ctx, "stranger"); !errors.Is(err, domain.ErrRespondentNotSelectable) {
		t.Fatalf("expected ErrRespondentNotSelectable, got %v", err)
	}
	if _, err := visit.Session.SetAnswer("q1", 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected answering to be locked before selection, got %v", err)
	}
}

func TestSetAnswerValidation(t *testing.T) {
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)
	session := f.start(t, "slug-safety", "u1")

	if _, err := session.SetAnswer("nope", 1); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	for _, opt := range []int{0, 5, -1} {
		if _, err := session.SetAnswer("q1", opt); !errors.Is(err, domain.ErrOptionOutOfRange) {
			t.Fatalf("option %d: expected ErrOptionOutOfRange, got %v", opt, err)
		}
	}

	answer(t, session, map[string]int{"q1": 3})
	snap, err := session.SetAnswer("q1", 4)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if snap.Answers["q1"] != 4 || len(snap.Answers) != 1 {
		t.Fatalf("expected overwritten answer, got %+v", snap.Answers)
	}
}

func TestGradeRequiresEveryAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)
	session := f.start(t, "slug-safety", "u1")

	answer(t, session, map[string]int{"q1": 1})
	snap, err := session.Grade(ctx)
	if !errors.Is(err, domain.ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
	if snap.State != app.StateAnswering {
		t.Fatalf("expected to stay answering, got %s", snap.State)
	}
	attempts, _ := f.ledger.AttemptsFor(ctx, "p1", "u1")
	if len(attempts) != 0 {
		t.Fatalf("incomplete grading must not record attempts")
	}
}

func TestWrongStateOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)
	session := f.start(t, "slug-safety", "u1")

	if _, err := session.Retry(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("retry while answering: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := session.Submit(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("submit while answering: expected ErrInvalidTransition, got %v", err)
	}

	answer(t, session, map[string]int{"q1": 1, "q2": 1})
	if _, err := session.Grade(ctx); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if _, err := session.SetAnswer("q2", 2); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("graded view is read-only, got %v", err)
	}
}

func TestSubmittedIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)
	session := f.start(t, "slug-safety", "u1")

	answer(t, session, map[string]int{"q1": 1, "q2": 2})
	if _, err := session.Grade(ctx); err != nil {
		t.Fatalf("grade: %v", err)
	}
	submitted, err := session.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	actions := []app.Action{
		{Type: app.ActionSelectRespondent, RespondentID: "u1"},
		{Type: app.ActionSetAnswer, QuestionID: "q1", Option: 1},
		{Type: app.ActionGrade},
		{Type: app.ActionRetry},
		{Type: app.ActionSubmit},
	}
	for _, a := range actions {
		snap, err := session.Apply(ctx, a)
		if !errors.Is(err, domain.ErrSessionClosed) {
			t.Fatalf("%s after submit: expected ErrSessionClosed, got %v", a.Type, err)
		}
		if snap.State != app.StateSubmitted || snap.Submission.ID != submitted.Submission.ID {
			t.Fatalf("%s changed a submitted session: %+v", a.Type, snap)
		}
	}

	subs, _ := f.store.ListSubmissions(ctx)
	if len(subs) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(subs))
	}
}

func TestApplyDispatchesActions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)

	visit, _, err := f.flow.StartVisit(ctx, "slug-safety", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	steps := []app.Action{
		{Type: app.ActionSelectRespondent, RespondentID: "u1"},
		{Type: app.ActionSetAnswer, QuestionID: "q1", Option: 1},
		{Type: app.ActionSetAnswer, QuestionID: "q2", Option: 2},
		{Type: app.ActionGrade},
		{Type: app.ActionSubmit},
	}
	var snap app.Snapshot
	for _, a := range steps {
		if snap, err = f.flow.Act(ctx, visit.ID, a); err != nil {
			t.Fatalf("%s: %v", a.Type, err)
		}
	}
	if snap.State != app.StateSubmitted {
		t.Fatalf("expected submitted, got %s", snap.State)
	}

	if _, err := visit.Session.Apply(ctx, app.Action{Type: "jump"}); !errors.Is(err, app.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	f := newFixture(t)
	f.seedProject(t, twoQuestionProject())
	f.seedRoster(t, aiko)
	session := f.start(t, "slug-safety", "u1")

	snap, _ := session.SetAnswer("q1", 1)
	snap.Answers["q2"] = 2
	snap.Questions[0].Options[0] = "mutated"

	fresh := session.Snapshot()
	if len(fresh.Answers) != 1 {
		t.Fatalf("mutating a snapshot leaked into the session: %+v", fresh.Answers)
	}
	if fresh.Questions[0].Options[0] != "a" {
		t.Fatalf("question options leaked: %+v", fresh.Questions[0])
	}
}
