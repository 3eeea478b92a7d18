package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"quizloop-service/internal/domain"
	"quizloop-service/internal/sharelink"
)

// Resolver turns a visit's slug and optional share token into a takeable quiz.
type Resolver struct {
	projects ProjectRepository
	decode   func(token string) (domain.Project, error)
	log      zerolog.Logger
}

func NewResolver(projects ProjectRepository, log zerolog.Logger) *Resolver {
	return &Resolver{projects: projects, decode: sharelink.Decode, log: log}
}

// Resolve prefers a decodable token (self-contained mode) and otherwise looks the
// slug up in the project store. Missing and unpublished projects both yield
// domain.ErrQuizUnavailable.
func (r *Resolver) Resolve(ctx context.Context, slug, token string) (domain.Project, error) {
	if token != "" {
		project, err := r.decode(token)
		if err == nil {
			return project, nil
		}
		r.log.Debug().Err(err).Str("slug", slug).Msg("share token rejected, falling back to slug")
	}

	if slug == "" {
		return domain.Project{}, domain.ErrQuizUnavailable
	}
	project, err := r.projects.FindBySlug(ctx, slug)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return domain.Project{}, domain.ErrQuizUnavailable
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("resolve quiz: %w", err)
	}
	if !project.IsPublished {
		return domain.Project{}, domain.ErrQuizUnavailable
	}
	return project, nil
}
