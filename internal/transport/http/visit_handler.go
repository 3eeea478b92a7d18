package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
	"quizloop-service/internal/sharelink"
)

// VisitHandler exposes quiz visits over plain HTTP for clients without WebSockets.
type VisitHandler struct {
	flow *app.FlowController
	log  zerolog.Logger
}

func NewVisitHandler(flow *app.FlowController, log zerolog.Logger) *VisitHandler {
	return &VisitHandler{flow: flow, log: log}
}

type startVisitRequest struct {
	Slug         string `json:"slug"`
	Data         string `json:"data"`
	RespondentID string `json:"respondentId"`
}

type visitResponse struct {
	VisitID string       `json:"visitId,omitempty"`
	State   app.Snapshot `json:"state"`
}

// Preview handles GET /api/v1/quiz/{slug}?data=... and returns the initial visit
// state without keeping a visit open.
func (h *VisitHandler) Preview(w http.ResponseWriter, r *http.Request) {
	visit, snap, err := h.flow.StartVisit(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get(sharelink.QueryParam))
	if err != nil {
		h.writeStartError(w, err)
		return
	}
	h.flow.EndVisit(visit.ID)
	writeJSON(w, http.StatusOK, visitResponse{State: snap})
}

// Start handles POST /api/v1/visits.
func (h *VisitHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	var (
		visit *app.Visit
		snap  app.Snapshot
		err   error
	)
	if req.RespondentID != "" {
		visit, snap, err = h.flow.ResumeVisit(r.Context(), req.Slug, req.Data, req.RespondentID)
	} else {
		visit, snap, err = h.flow.StartVisit(r.Context(), req.Slug, req.Data)
	}
	if err != nil {
		h.writeStartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visitResponse{VisitID: visit.ID, State: snap})
}

// Get handles GET /api/v1/visits/{id}.
func (h *VisitHandler) Get(w http.ResponseWriter, r *http.Request) {
	visit, err := h.flow.Visit(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visitResponse{VisitID: visit.ID, State: visit.Session.Snapshot()})
}

// Act handles POST /api/v1/visits/{id}/actions.
func (h *VisitHandler) Act(w http.ResponseWriter, r *http.Request) {
	var action app.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := h.flow.Act(r.Context(), id, action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visitResponse{VisitID: id, State: snap})
}

// End handles DELETE /api/v1/visits/{id}.
func (h *VisitHandler) End(w http.ResponseWriter, r *http.Request) {
	h.flow.EndVisit(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// writeStartError renders an unavailable quiz as its state, identical for missing and unpublished.
func (h *VisitHandler) writeStartError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrQuizUnavailable) {
		writeJSON(w, http.StatusNotFound, visitResponse{State: app.UnavailableSnapshot()})
		return
	}
	if _, body := classify(err); body.Code == "INTERNAL" {
		h.log.Error().Err(err).Msg("start visit failed")
	}
	writeError(w, err)
}
