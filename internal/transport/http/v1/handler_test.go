package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

type fakeTurn struct {
	fragments []string
	result    orchestrator.TurnResult
	err       error
}

func (t *fakeTurn) Recv() (orchestrator.Fragment, error) {
	if len(t.fragments) == 0 {
		return orchestrator.Fragment{}, io.EOF
	}
	f := t.fragments[0]
	t.fragments = t.fragments[1:]
	return orchestrator.Fragment{Text: f}, nil
}

func (t *fakeTurn) Result() (orchestrator.TurnResult, error) {
	return t.result, t.err
}

type fakeService struct {
	sessions   map[string]*statex.SessionState
	turn       *fakeTurn
	handleErr  error
	destroyErr error
	lastText   string
}

func newFakeService() *fakeService {
	return &fakeService{sessions: map[string]*statex.SessionState{}}
}

func (s *fakeService) CreateSession(context.Context) (*statex.SessionState, error) {
	st := statex.NewSessionState(fmt.Sprintf("s%d", len(s.sessions)+1), time.Unix(0, 0))
	s.sessions[st.SessionID] = st
	return st, nil
}

func (s *fakeService) Session(_ context.Context, id string) (*statex.SessionState, error) {
	st, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownSession, id)
	}
	return st, nil
}

func (s *fakeService) DestroySession(_ context.Context, id string) error {
	if s.destroyErr != nil {
		return s.destroyErr
	}
	if _, ok := s.sessions[id]; !ok {
		return contractx.ErrUnknownSession
	}
	delete(s.sessions, id)
	return nil
}

func (s *fakeService) HandleMessage(_ context.Context, _ string, text string) (Turn, error) {
	s.lastText = text
	if s.handleErr != nil {
		return nil, s.handleErr
	}
	return s.turn, nil
}

type sseEvent struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
		if ev.name == "" {
			t.Fatalf("malformed event block %q", block)
		}
		out = append(out, ev)
	}
	return out
}

func postMessage(t *testing.T, h *Handler, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	if err := h.PostMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestPostMessageStreamsDeltasThenDone(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	st, _ := svc.CreateSession(context.Background())
	svc.turn = &fakeTurn{
		fragments: []string{"Hello ", "there "},
		result: orchestrator.TurnResult{
			State: st,
			Reply: statex.Message{Role: contractx.RoleAssistant, Content: "Hello there", Type: statex.MessageTypeText},
		},
	}
	rec := postMessage(t, NewHandler(svc), st.SessionID, `{"message":"hi"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}
	if svc.lastText != "hi" {
		t.Fatalf("service got %q", svc.lastText)
	}

	events := parseEvents(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	for i, want := range []string{"Hello ", "there "} {
		var d deltaEvent
		if events[i].name != "delta" {
			t.Fatalf("event %d = %q", i, events[i].name)
		}
		if err := json.Unmarshal([]byte(events[i].data), &d); err != nil {
			t.Fatalf("decode delta: %v", err)
		}
		if d.Text != want {
			t.Fatalf("delta %d = %q, want %q", i, d.Text, want)
		}
	}

	last := events[2]
	if last.name != "done" {
		t.Fatalf("last event = %q", last.name)
	}
	var done struct {
		Message statex.Message      `json:"message"`
		State   statex.SessionState `json:"state"`
	}
	if err := json.Unmarshal([]byte(last.data), &done); err != nil {
		t.Fatalf("decode done: %v", err)
	}
	if done.Message.Content != "Hello there" || done.State.SessionID != st.SessionID {
		t.Fatalf("unexpected done payload: %+v", done)
	}
}

func TestPostMessageTurnFailureEmitsErrorEvent(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	svc.turn = &fakeTurn{err: fmt.Errorf("%w: upstream 500", contractx.ErrModelInvoke)}
	rec := postMessage(t, NewHandler(svc), "s1", `{"message":"hi"}`)

	events := parseEvents(t, rec.Body.String())
	if len(events) != 1 || events[0].name != "error" {
		t.Fatalf("unexpected events: %+v", events)
	}
	var apiErr APIError
	if err := json.Unmarshal([]byte(events[0].data), &apiErr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if apiErr.Code != "model_unavailable" {
		t.Fatalf("code = %q", apiErr.Code)
	}
}

func TestPostMessageRejectedBeforeStreaming(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unknown session", err: contractx.ErrUnknownSession, status: http.StatusNotFound, code: "unknown_session"},
		{name: "turn in flight", err: contractx.ErrTurnInFlight, status: http.StatusConflict, code: "turn_in_flight"},
		{name: "empty message", err: fmt.Errorf("%w: empty message", contractx.ErrValidation), status: http.StatusBadRequest, code: "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := newFakeService()
			svc.handleErr = tc.err
			rec := postMessage(t, NewHandler(svc), "s1", `{"message":"hi"}`)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error.Code != tc.code {
				t.Fatalf("code = %q, want %q", resp.Error.Code, tc.code)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	e := echo.New()
	svc := newFakeService()
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	if err := h.CreateSession(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created statex.SessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.SessionID, nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(created.SessionID)
	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+created.SessionID, nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(created.SessionID)
	if err := h.DeleteSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.SessionID, nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(created.SessionID)
	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewHandler(newFakeService()).RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestClassifyDeadline(t *testing.T) {
	t.Parallel()

	status, apiErr := classify(fmt.Errorf("%w: %w", contractx.ErrModelInvoke, context.DeadlineExceeded))
	if status != http.StatusGatewayTimeout || apiErr.Code != "timeout" {
		t.Fatalf("got %d %q", status, apiErr.Code)
	}
}
