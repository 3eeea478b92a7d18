package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
	"quizloop-service/internal/infra/collection"
	"quizloop-service/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	store  *collection.Store
	visits *memory.VisitStore
}

func newTestEnv(t *testing.T, gen app.QuestionGenerator) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	store := collection.NewStore(memory.NewKVStore())
	visits := memory.NewVisitStore(time.Hour)
	ledger := app.NewLedger(store, store)
	flow := app.NewFlowController(app.NewResolver(store, log), store, ledger, visits, log)

	handler := NewRouter(RouterConfig{
		WS:     NewWSHandler(flow, log),
		Visits: NewVisitHandler(flow, log),
		Admin: NewAdminHandler(
			app.NewAuthoringService(store, gen, "https://quiz.example.com", log),
			app.NewRosterService(store, log),
			app.NewReportService(store, store, ledger),
			log,
		),
		Log: log,
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, store: store, visits: visits}
	env.seed(t)
	return env
}

// seed stores a published two-question quiz (answers [1, 2]), an unpublished one and a roster.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	questions := []domain.Question{
		{ID: "q1", QuestionText: "First?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
		{ID: "q2", QuestionText: "Second?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
	}
	for _, p := range []domain.Project{
		{ID: "p1", Name: "Published", URLSlug: "slug-live", IsPublished: true, Questions: questions},
		{ID: "p2", Name: "Hidden", URLSlug: "slug-hidden", IsPublished: false, Questions: questions},
	} {
		if err := e.store.SaveProject(ctx, p); err != nil {
			t.Fatalf("seed project: %v", err)
		}
	}
	if err := e.store.ReplaceRespondents(ctx, []domain.Respondent{{ID: "u1", Name: "Aiko"}, {ID: "u2", Name: "Ben"}}); err != nil {
		t.Fatalf("seed roster: %v", err)
	}
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + e.server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// do sends a request and decodes the envelope's data into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, contentType, body string, out any) (int, envelopeResult) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelopeResult
	env.Raw = string(raw)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s body %q: %v", method, path, raw, err)
		}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return resp.StatusCode, env
}

type envelopeResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
	Raw     string          `json:"-"`
}

type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wsFrame {
	t.Helper()
	var msg wsFrame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	return msg
}

func readState(conn *websocket.Conn, t *testing.T) app.Snapshot {
	t.Helper()
	frame := readNext(conn, t, "state")
	var snap app.Snapshot
	if err := json.Unmarshal(frame.Payload, &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return snap
}

func send(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}
