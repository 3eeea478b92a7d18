package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizloop-service/internal/domain"
)

// Ledger records graded attempts and the single submission per (project, respondent).
type Ledger struct {
	attempts    AttemptRepository
	submissions SubmissionRepository
	now         func() time.Time

	// mu serialises the submission check-then-append within this process.
	mu sync.Mutex
}

func NewLedger(attempts AttemptRepository, submissions SubmissionRepository) *Ledger {
	return NewLedgerWithClock(attempts, submissions, time.Now)
}

// NewLedgerWithClock is used by tests for deterministic timestamps.
func NewLedgerWithClock(attempts AttemptRepository, submissions SubmissionRepository, now func() time.Time) *Ledger {
	return &Ledger{attempts: attempts, submissions: submissions, now: now}
}

// RecordAttempt appends a new attempt. There is no uniqueness constraint on attempts.
func (l *Ledger) RecordAttempt(ctx context.Context, projectID, userID string, score int) (domain.Attempt, error) {
	attempt := domain.Attempt{
		ID:          "att-" + uuid.NewString(),
		ProjectID:   projectID,
		UserID:      userID,
		Score:       score,
		AttemptedAt: l.now(),
	}
	if err := l.attempts.AppendAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	return attempt, nil
}

// RecordSubmission snapshots the attempt count for the pair and appends a submission.
// A second submission for the same pair fails with domain.ErrDuplicateSubmission.
func (l *Ledger) RecordSubmission(ctx context.Context, projectID, userID string) (domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exists, err := l.HasSubmission(ctx, projectID, userID)
	if err != nil {
		return domain.Submission{}, err
	}
	if exists {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}

	attempts, err := l.AttemptsFor(ctx, projectID, userID)
	if err != nil {
		return domain.Submission{}, err
	}

	submission := domain.Submission{
		ID:           "sub-" + uuid.NewString(),
		ProjectID:    projectID,
		UserID:       userID,
		SubmittedAt:  l.now(),
		AttemptCount: len(attempts),
	}
	if err := l.submissions.AppendSubmission(ctx, submission); err != nil {
		return domain.Submission{}, fmt.Errorf("record submission: %w", err)
	}
	return submission, nil
}

// HasSubmission reports whether the respondent already submitted the project.
func (l *Ledger) HasSubmission(ctx context.Context, projectID, userID string) (bool, error) {
	_, ok, err := l.SubmissionFor(ctx, projectID, userID)
	return ok, err
}

// SubmissionFor returns the submission for the pair, if any.
func (l *Ledger) SubmissionFor(ctx context.Context, projectID, userID string) (domain.Submission, bool, error) {
	submissions, err := l.submissions.ListSubmissions(ctx)
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("list submissions: %w", err)
	}
	for _, s := range submissions {
		if s.ProjectID == projectID && s.UserID == userID {
			return s, true, nil
		}
	}
	return domain.Submission{}, false, nil
}

// SubmittedUsers indexes the project's submissions by respondent id.
func (l *Ledger) SubmittedUsers(ctx context.Context, projectID string) (map[string]domain.Submission, error) {
	submissions, err := l.submissions.ListSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make(map[string]domain.Submission)
	for _, s := range submissions {
		if s.ProjectID != projectID {
			continue
		}
		if _, seen := out[s.UserID]; !seen {
			out[s.UserID] = s
		}
	}
	return out, nil
}

// AttemptsFor returns the pair's attempts in chronological order.
func (l *Ledger) AttemptsFor(ctx context.Context, projectID, userID string) ([]domain.Attempt, error) {
	all, err := l.attempts.ListAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0)
	for _, a := range all {
		if a.ProjectID == projectID && a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AttemptedAt.Before(out[j].AttemptedAt)
	})
	return out, nil
}
