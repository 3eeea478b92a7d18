package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizloop-service/internal/domain"
	"quizloop-service/internal/generation"
	"quizloop-service/internal/sharelink"
)

const slugAttempts = 8

// ProjectDraft is the editable part of a project.
type ProjectDraft struct {
	Name       string            `json:"name"`
	Transcript string            `json:"transcript"`
	Questions  []domain.Question `json:"questions"`
	Publish    bool              `json:"is_published"`
}

// ShareLink is a self-contained link to a project.
type ShareLink struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// AuthoringService creates, edits and publishes quiz projects.
type AuthoringService struct {
	projects  ProjectRepository
	generator QuestionGenerator
	baseURL   string
	log       zerolog.Logger
	now       func() time.Time
	newSlug   func() string
	count     int
}

func NewAuthoringService(projects ProjectRepository, generator QuestionGenerator, baseURL string, log zerolog.Logger) *AuthoringService {
	return NewAuthoringServiceWithClock(projects, generator, baseURL, log, time.Now)
}

// NewAuthoringServiceWithClock is used by tests for deterministic timestamps.
func NewAuthoringServiceWithClock(projects ProjectRepository, generator QuestionGenerator, baseURL string, log zerolog.Logger, now func() time.Time) *AuthoringService {
	return &AuthoringService{
		projects:  projects,
		generator: generator,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
		now:       now,
		newSlug:   randomSlug,
		count:     generation.DefaultCount,
	}
}

// WithQuestionCount sets how many questions a generation request asks for when none is given.
func (a *AuthoringService) WithQuestionCount(n int) *AuthoringService {
	if n > 0 {
		a.count = n
	}
	return a
}

// List returns every project, newest first.
func (a *AuthoringService) List(ctx context.Context) ([]domain.Project, error) {
	projects, err := a.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

func (a *AuthoringService) Get(ctx context.Context, id string) (domain.Project, error) {
	return a.projects.GetProject(ctx, id)
}

// Create stores a new project with a fresh id and slug.
func (a *AuthoringService) Create(ctx context.Context, draft ProjectDraft) (domain.Project, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Project{}, err
	}
	slug, err := a.uniqueSlug(ctx)
	if err != nil {
		return domain.Project{}, err
	}

	project := domain.Project{
		ID:          "proj-" + uuid.NewString(),
		Name:        strings.TrimSpace(draft.Name),
		Transcript:  draft.Transcript,
		URLSlug:     slug,
		IsPublished: draft.Publish,
		Questions:   nonNilQuestions(draft.Questions),
		CreatedAt:   a.now(),
	}
	if err := a.projects.SaveProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	a.log.Info().Str("project_id", project.ID).Str("slug", slug).Bool("published", project.IsPublished).Msg("project created")
	return project, nil
}

// Update replaces the editable fields; the slug and creation time never change.
func (a *AuthoringService) Update(ctx context.Context, id string, draft ProjectDraft) (domain.Project, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Project{}, err
	}
	project, err := a.projects.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}

	project.Name = strings.TrimSpace(draft.Name)
	project.Transcript = draft.Transcript
	project.Questions = nonNilQuestions(draft.Questions)
	project.IsPublished = draft.Publish
	if project.URLSlug == "" {
		if project.URLSlug, err = a.uniqueSlug(ctx); err != nil {
			return domain.Project{}, err
		}
	}
	if err := a.projects.SaveProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	return project, nil
}

// SetPublished toggles whether the project can be taken by slug.
func (a *AuthoringService) SetPublished(ctx context.Context, id string, published bool) (domain.Project, error) {
	project, err := a.projects.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	project.IsPublished = published
	if err := a.projects.SaveProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	a.log.Info().Str("project_id", id).Bool("published", published).Msg("project publish state changed")
	return project, nil
}

func (a *AuthoringService) Delete(ctx context.Context, id string) error {
	if _, err := a.projects.GetProject(ctx, id); err != nil {
		return err
	}
	if err := a.projects.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// AddBlankQuestion appends an empty question with four blank options.
func (a *AuthoringService) AddBlankQuestion(ctx context.Context, id string) (domain.Project, error) {
	project, err := a.projects.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	project.Questions = append(project.Questions, domain.Question{
		ID:            "q-" + uuid.NewString(),
		Options:       make([]string, domain.OptionCount),
		CorrectAnswer: 1,
	})
	if err := a.projects.SaveProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	return project, nil
}

// GenerateQuestions asks the generator for questions from the project's transcript and
// appends the accepted ones. Rejected items are returned so the caller can report them.
func (a *AuthoringService) GenerateQuestions(ctx context.Context, id string, count int) (domain.Project, []domain.RejectedQuestion, error) {
	project, err := a.projects.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, nil, err
	}
	if strings.TrimSpace(project.Transcript) == "" {
		return domain.Project{}, nil, domain.ErrTranscriptRequired
	}
	if a.generator == nil {
		return domain.Project{}, nil, domain.ErrGeneratorNotConfigured
	}
	if count <= 0 {
		count = a.count
	}

	result, err := a.generator.Generate(ctx, project.Transcript, count)
	if err != nil {
		a.log.Error().Err(err).Str("project_id", id).Msg("question generation failed")
		if errors.Is(err, domain.ErrGeneration) {
			return domain.Project{}, nil, err
		}
		return domain.Project{}, nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if len(result.Rejected) > 0 {
		a.log.Warn().Str("project_id", id).Int("rejected", len(result.Rejected)).Msg("generator returned malformed questions")
	}

	for _, g := range result.Accepted {
		project.Questions = append(project.Questions, domain.Question{
			ID:            "q-" + uuid.NewString(),
			QuestionText:  g.QuestionText,
			Options:       append([]string(nil), g.Options...),
			CorrectAnswer: g.CorrectAnswer,
		})
	}
	if err := a.projects.SaveProject(ctx, project); err != nil {
		return domain.Project{}, nil, fmt.Errorf("save project: %w", err)
	}
	return project, result.Rejected, nil
}

// Share builds the self-contained token and URL for a project.
func (a *AuthoringService) Share(ctx context.Context, id string) (ShareLink, error) {
	project, err := a.projects.GetProject(ctx, id)
	if err != nil {
		return ShareLink{}, err
	}
	token, err := sharelink.Encode(project)
	if err != nil {
		return ShareLink{}, err
	}
	url, err := sharelink.ShareURL(a.baseURL, project)
	if err != nil {
		return ShareLink{}, err
	}
	return ShareLink{Token: token, URL: url}, nil
}

func (a *AuthoringService) uniqueSlug(ctx context.Context) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug := a.newSlug()
		_, err := a.projects.FindBySlug(ctx, slug)
		if errors.Is(err, domain.ErrProjectNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
	}
	return "", fmt.Errorf("could not allocate a unique slug after %d attempts", slugAttempts)
}

func validateDraft(draft ProjectDraft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return domain.ErrNameRequired
	}
	seen := make(map[string]struct{}, len(draft.Questions))
	for i, q := range draft.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", domain.ErrInvalidQuestion, i+1)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: question %d", err, i+1)
		}
	}
	return nil
}

func nonNilQuestions(qs []domain.Question) []domain.Question {
	if qs == nil {
		return []domain.Question{}
	}
	return qs
}

func randomSlug() string {
	return "slug-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
