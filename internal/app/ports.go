package app

import (
	"context"

	"quizloop-service/internal/domain"
)

// ProjectRepository stores authored quiz projects.
type ProjectRepository interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	// GetProject returns domain.ErrProjectNotFound for unknown ids.
	GetProject(ctx context.Context, id string) (domain.Project, error)
	// FindBySlug returns domain.ErrProjectNotFound when no project carries the slug.
	FindBySlug(ctx context.Context, slug string) (domain.Project, error)
	// SaveProject inserts or replaces a project by id.
	SaveProject(ctx context.Context, project domain.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// RespondentRepository stores the roster.
type RespondentRepository interface {
	ListRespondents(ctx context.Context) ([]domain.Respondent, error)
	ReplaceRespondents(ctx context.Context, respondents []domain.Respondent) error
}

// AttemptRepository is an append-only log of graded attempts.
type AttemptRepository interface {
	AppendAttempt(ctx context.Context, attempt domain.Attempt) error
	ListAttempts(ctx context.Context) ([]domain.Attempt, error)
}

// SubmissionRepository is an append-only log of submissions.
type SubmissionRepository interface {
	AppendSubmission(ctx context.Context, submission domain.Submission) error
	ListSubmissions(ctx context.Context) ([]domain.Submission, error)
}

// VisitRepository keeps in-flight visits addressable by id (in-memory, Redis-backed, etc).
type VisitRepository interface {
	Put(visit *Visit)
	Get(id string) (*Visit, bool)
	Delete(id string)
}

// VisitSweeper is implemented by visit stores that expire idle visits.
type VisitSweeper interface {
	Sweep(ctx context.Context) int
}

// QuestionGenerator produces candidate questions from a transcript.
type QuestionGenerator interface {
	Generate(ctx context.Context, transcript string, count int) (domain.GenerationResult, error)
}
