package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
)

const maxRosterBytes = 1 << 20

// AdminHandler serves roster, project authoring and reporting endpoints.
type AdminHandler struct {
	authoring *app.AuthoringService
	roster    *app.RosterService
	reports   *app.ReportService
	log       zerolog.Logger
}

func NewAdminHandler(authoring *app.AuthoringService, roster *app.RosterService, reports *app.ReportService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{authoring: authoring, roster: roster, reports: reports, log: log}
}

// Routes mounts the admin API on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/roster", h.ListRoster)
	r.Put("/roster", h.ImportRoster)

	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Put("/", h.UpdateProject)
		r.Delete("/", h.DeleteProject)
		r.Post("/publish", h.Publish)
		r.Post("/unpublish", h.Unpublish)
		r.Post("/questions", h.AddQuestion)
		r.Post("/generate", h.Generate)
		r.Get("/share", h.Share)
		r.Get("/status", h.Status)
	})
}

func (h *AdminHandler) ListRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.roster.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// ImportRoster replaces the roster with the CSV request body.
func (h *AdminHandler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.roster.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxRosterBytes))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (h *AdminHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.authoring.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *AdminHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var draft app.ProjectDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	project, err := h.authoring.Create(r.Context(), draft)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *AdminHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.authoring.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *AdminHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var draft app.ProjectDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	project, err := h.authoring.Update(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *AdminHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.authoring.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

func (h *AdminHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *AdminHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	project, err := h.authoring.SetPublished(r.Context(), chi.URLParam(r, "id"), published)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *AdminHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	project, err := h.authoring.AddBlankQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type generateResponse struct {
	Project  domain.Project            `json:"project"`
	Rejected []domain.RejectedQuestion `json:"rejected"`
}

// Generate handles POST /projects/{id}/generate[?count=N].
func (h *AdminHandler) Generate(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "count must be a positive integer")
			return
		}
		count = n
	}
	project, rejected, err := h.authoring.GenerateQuestions(r.Context(), chi.URLParam(r, "id"), count)
	if err != nil {
		h.fail(w, err)
		return
	}
	if rejected == nil {
		rejected = []domain.RejectedQuestion{}
	}
	writeJSON(w, http.StatusOK, generateResponse{Project: project, Rejected: rejected})
}

func (h *AdminHandler) Share(w http.ResponseWriter, r *http.Request) {
	link, err := h.authoring.Share(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.reports.SubmissionStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error) {
	status, _ := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("admin request failed")
	}
	writeError(w, err)
}
