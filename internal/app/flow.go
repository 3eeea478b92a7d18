package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizloop-service/internal/domain"
)

// Visit is one visitor's pass through a resolved quiz.
type Visit struct {
	ID        string
	Slug      string
	StartedAt time.Time
	Session   *Session
}

// FlowController sequences resolution, respondent selection, the session and the ledger for a visit.
type FlowController struct {
	resolver    *Resolver
	respondents RespondentRepository
	ledger      *Ledger
	visits      VisitRepository
	log         zerolog.Logger
	now         func() time.Time
}

func NewFlowController(resolver *Resolver, respondents RespondentRepository, ledger *Ledger, visits VisitRepository, log zerolog.Logger) *FlowController {
	return &FlowController{
		resolver:    resolver,
		respondents: respondents,
		ledger:      ledger,
		visits:      visits,
		log:         log,
		now:         time.Now,
	}
}

// StartVisit resolves the quiz and opens a session at respondent selection.
// An unresolvable quiz returns the unavailable snapshot with domain.ErrQuizUnavailable.
func (f *FlowController) StartVisit(ctx context.Context, slug, token string) (*Visit, Snapshot, error) {
	project, err := f.resolver.Resolve(ctx, slug, token)
	if err != nil {
		return nil, UnavailableSnapshot(), err
	}

	selectable, err := f.Selectable(ctx, project.ID)
	if err != nil {
		return nil, UnavailableSnapshot(), err
	}

	visit := f.register(slug, newSession(project, f.ledger, selectable))
	f.log.Info().
		Str("visit_id", visit.ID).
		Str("project_id", project.ID).
		Int("selectable", len(selectable)).
		Msg("visit started")
	return visit, visit.Session.Snapshot(), nil
}

// ResumeVisit opens a session for a respondent chosen up front. A respondent who has
// already submitted starts directly in the submitted state.
func (f *FlowController) ResumeVisit(ctx context.Context, slug, token, respondentID string) (*Visit, Snapshot, error) {
	if respondentID == "" {
		return nil, UnavailableSnapshot(), domain.ErrNoRespondentSelected
	}
	project, err := f.resolver.Resolve(ctx, slug, token)
	if err != nil {
		return nil, UnavailableSnapshot(), err
	}

	known, err := f.onRoster(ctx, respondentID)
	if err != nil {
		return nil, UnavailableSnapshot(), err
	}
	if !known {
		return nil, UnavailableSnapshot(), domain.ErrRespondentNotSelectable
	}

	existing, ok, err := f.ledger.SubmissionFor(ctx, project.ID, respondentID)
	if err != nil {
		return nil, UnavailableSnapshot(), err
	}
	var prior *domain.Submission
	if ok {
		prior = &existing
	}

	visit := f.register(slug, newSessionFor(project, f.ledger, respondentID, prior))
	f.log.Info().
		Str("visit_id", visit.ID).
		Str("project_id", project.ID).
		Str("respondent_id", respondentID).
		Bool("already_submitted", ok).
		Msg("visit resumed")
	return visit, visit.Session.Snapshot(), nil
}

// Selectable lists roster respondents without a submission for the project.
func (f *FlowController) Selectable(ctx context.Context, projectID string) ([]domain.Respondent, error) {
	roster, err := f.respondents.ListRespondents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list respondents: %w", err)
	}
	submitted, err := f.ledger.SubmittedUsers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Respondent, 0, len(roster))
	for _, r := range roster {
		if _, done := submitted[r.ID]; !done {
			out = append(out, r)
		}
	}
	return out, nil
}

// Visit returns a registered visit.
func (f *FlowController) Visit(id string) (*Visit, error) {
	visit, ok := f.visits.Get(id)
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	return visit, nil
}

// Act applies an action to a registered visit.
func (f *FlowController) Act(ctx context.Context, visitID string, action Action) (Snapshot, error) {
	visit, err := f.Visit(visitID)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := visit.Session.Apply(ctx, action)
	if err != nil && !domain.IsValidation(err) {
		f.log.Warn().Err(err).Str("visit_id", visitID).Str("action", action.Type).Msg("visit action rejected")
	}
	if errors.Is(err, domain.ErrDuplicateSubmission) {
		f.log.Error().Str("visit_id", visitID).Str("respondent_id", snap.RespondentID).Msg("duplicate submission prevented")
	}
	return snap, err
}

// EndVisit forgets a visit.
func (f *FlowController) EndVisit(id string) {
	f.visits.Delete(id)
}

func (f *FlowController) register(slug string, session *Session) *Visit {
	visit := &Visit{
		ID:        uuid.NewString(),
		Slug:      slug,
		StartedAt: f.now(),
		Session:   session,
	}
	f.visits.Put(visit)
	return visit
}

func (f *FlowController) onRoster(ctx context.Context, respondentID string) (bool, error) {
	roster, err := f.respondents.ListRespondents(ctx)
	if err != nil {
		return false, fmt.Errorf("list respondents: %w", err)
	}
	for _, r := range roster {
		if r.ID == respondentID {
			return true, nil
		}
	}
	return false, nil
}
