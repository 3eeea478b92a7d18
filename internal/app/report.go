package app

import (
	"context"
	"fmt"
	"sort"

	"quizloop-service/internal/domain"
)

// UnknownRespondentName labels submissions whose respondent left the roster.
const UnknownRespondentName = "unknown user"

// ReportService builds per-project submission status.
type ReportService struct {
	projects    ProjectRepository
	respondents RespondentRepository
	ledger      *Ledger
}

func NewReportService(projects ProjectRepository, respondents RespondentRepository, ledger *Ledger) *ReportService {
	return &ReportService{projects: projects, respondents: respondents, ledger: ledger}
}

// SubmissionStatus splits the roster into submitted and not-submitted respondents, each sorted by name.
func (r *ReportService) SubmissionStatus(ctx context.Context, projectID string) (domain.SubmissionStatus, error) {
	project, err := r.projects.GetProject(ctx, projectID)
	if err != nil {
		return domain.SubmissionStatus{}, err
	}
	roster, err := r.respondents.ListRespondents(ctx)
	if err != nil {
		return domain.SubmissionStatus{}, fmt.Errorf("list respondents: %w", err)
	}
	submitted, err := r.ledger.SubmittedUsers(ctx, projectID)
	if err != nil {
		return domain.SubmissionStatus{}, err
	}

	names := make(map[string]string, len(roster))
	for _, u := range roster {
		names[u.ID] = u.Name
	}

	status := domain.SubmissionStatus{
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		Submitted:    make([]domain.SubmittedEntry, 0, len(submitted)),
		NotSubmitted: make([]domain.Respondent, 0, len(roster)),
	}
	for userID, sub := range submitted {
		name, ok := names[userID]
		if !ok {
			name = UnknownRespondentName
		}
		status.Submitted = append(status.Submitted, domain.SubmittedEntry{
			UserID:       userID,
			Name:         name,
			SubmittedAt:  sub.SubmittedAt,
			AttemptCount: sub.AttemptCount,
		})
	}
	for _, u := range roster {
		if _, ok := submitted[u.ID]; !ok {
			status.NotSubmitted = append(status.NotSubmitted, u)
		}
	}

	sort.Slice(status.Submitted, func(i, j int) bool {
		if status.Submitted[i].Name != status.Submitted[j].Name {
			return status.Submitted[i].Name < status.Submitted[j].Name
		}
		return status.Submitted[i].UserID < status.Submitted[j].UserID
	})
	sort.SliceStable(status.NotSubmitted, func(i, j int) bool {
		return status.NotSubmitted[i].Name < status.NotSubmitted[j].Name
	})
	return status, nil
}
