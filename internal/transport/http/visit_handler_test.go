package http

import (
	"net/http"
	"strings"
	"testing"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
	"quizloop-service/internal/sharelink"
)

func TestRESTVisitFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	var started visitResponse
	status, _ := env.do(t, http.MethodPost, "/api/v1/visits", "application/json", `{"slug":"slug-live"}`, &started)
	if status != http.StatusCreated || started.VisitID == "" {
		t.Fatalf("start: status %d, %+v", status, started)
	}
	path := "/api/v1/visits/" + started.VisitID

	actions := []string{
		`{"type":"selectRespondent","respondentId":"u1"}`,
		`{"type":"setAnswer","questionId":"q1","option":1}`,
		`{"type":"setAnswer","questionId":"q2","option":2}`,
		`{"type":"grade"}`,
		`{"type":"submit"}`,
	}
	var resp visitResponse
	for _, body := range actions {
		status, out := env.do(t, http.MethodPost, path+"/actions", "application/json", body, &resp)
		if status != http.StatusOK {
			t.Fatalf("action %s: status %d body %s", body, status, out.Raw)
		}
	}
	if resp.State.State != app.StateSubmitted || resp.State.Submission.AttemptCount != 1 {
		t.Fatalf("expected submitted with one attempt, got %+v", resp.State)
	}

	status, body := env.do(t, http.MethodPost, path+"/actions", "application/json", `{"type":"retry"}`, nil)
	if status != http.StatusConflict || body.Error == nil || body.Error.Code != "SESSION_CLOSED" {
		t.Fatalf("expected 409 SESSION_CLOSED, got %d %s", status, body.Raw)
	}

	var got visitResponse
	if status, _ := env.do(t, http.MethodGet, path, "", "", &got); status != http.StatusOK || got.State.State != app.StateSubmitted {
		t.Fatalf("get visit: status %d state %s", status, got.State.State)
	}
	if status, _ := env.do(t, http.MethodDelete, path, "", "", nil); status != http.StatusNoContent {
		t.Fatalf("end visit: status %d", status)
	}
	if status, body := env.do(t, http.MethodGet, path, "", "", nil); status != http.StatusNotFound || body.Error.Code != "VISIT_NOT_FOUND" {
		t.Fatalf("expected 404 after end, got %d %s", status, body.Raw)
	}
}

func TestRESTActionErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	var started visitResponse
	env.do(t, http.MethodPost, "/api/v1/visits", "application/json", `{"slug":"slug-live","respondentId":"u1"}`, &started)
	path := "/api/v1/visits/" + started.VisitID + "/actions"

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"type":"grade"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{`{"type":"setAnswer","questionId":"q1","option":9}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{`{"type":"submit"}`, http.StatusConflict, "INVALID_TRANSITION"},
		{`{"type":"dance"}`, http.StatusBadRequest, "UNKNOWN_ACTION"},
		{`not json`, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range cases {
		status, body := env.do(t, http.MethodPost, path, "application/json", tc.body, nil)
		if status != tc.status || body.Error == nil || body.Error.Code != tc.code {
			t.Fatalf("%s: expected %d %s, got %d %s", tc.body, tc.status, tc.code, status, body.Raw)
		}
	}
}

func TestPreviewUnavailableIsIdentical(t *testing.T) {
	env := newTestEnv(t, nil)

	missingStatus, missing := env.do(t, http.MethodGet, "/api/v1/quiz/slug-nope", "", "", nil)
	hiddenStatus, hidden := env.do(t, http.MethodGet, "/api/v1/quiz/slug-hidden", "", "", nil)
	if missingStatus != http.StatusNotFound || hiddenStatus != http.StatusNotFound {
		t.Fatalf("expected 404 for both, got %d and %d", missingStatus, hiddenStatus)
	}
	if missing.Raw != hidden.Raw {
		t.Fatalf("bodies differ:\n%s\n%s", missing.Raw, hidden.Raw)
	}

	startMissing, a := env.do(t, http.MethodPost, "/api/v1/visits", "application/json", `{"slug":"slug-nope"}`, nil)
	startHidden, b := env.do(t, http.MethodPost, "/api/v1/visits", "application/json", `{"slug":"slug-hidden"}`, nil)
	if startMissing != startHidden || a.Raw != b.Raw {
		t.Fatalf("start responses differ: %d %s / %d %s", startMissing, a.Raw, startHidden, b.Raw)
	}
	if env.visits.Len() != 0 {
		t.Fatalf("preview and unavailable starts must not leave visits, got %d", env.visits.Len())
	}
}

func TestPreviewWithShareToken(t *testing.T) {
	env := newTestEnv(t, nil)
	token, err := sharelink.Encode(domain.Project{
		ID:   "p1",
		Name: "T",
		Questions: []domain.Question{
			{ID: "q1", QuestionText: "Q?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var resp visitResponse
	status, body := env.do(t, http.MethodGet, "/api/v1/quiz/anything?data="+token, "", "", &resp)
	if status != http.StatusOK {
		t.Fatalf("preview: %d %s", status, body.Raw)
	}
	if resp.State.ProjectName != "T" || resp.State.Total != 1 {
		t.Fatalf("unexpected preview %+v", resp.State)
	}

	// the answer key never leaves the server
	if strings.Contains(body.Raw, "correct_answer") {
		t.Fatalf("preview leaked answer key: %s", body.Raw)
	}
}
