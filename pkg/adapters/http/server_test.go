package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/realign"
	httpadapter "github.com/aretw0/realign/pkg/adapters/http"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdvice struct{}

func (stubAdvice) Submit(ctx context.Context, payload map[string]any) (*domain.Report, error) {
	return &domain.Report{FinalRecommendation: []string{"Yoga"}}, nil
}

type stubChat struct{}

func (stubChat) Send(ctx context.Context, query, threadID string) (string, error) {
	return "echo: " + query, nil
}

func newServer(t *testing.T, opts ...httpadapter.Option) (*httpadapter.Server, *realign.Assistant) {
	t.Helper()
	a, err := realign.New(realign.WithAdviceService(stubAdvice{}), realign.WithChatService(stubChat{}))
	require.NoError(t, err)

	srv, err := httpadapter.NewServer(a, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, a.Shutdown(ctx))
	})
	return srv, a
}

type session struct {
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
	Phase     struct {
		Mode string `json:"mode"`
		Step *int   `json:"step"`
	} `json:"phase"`
	Profile  map[string]any   `json:"profile"`
	Messages []domain.Message `json:"messages"`
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) session {
	t.Helper()
	var s session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s), w.Body.String())
	return s
}

func TestServer_IntakeOverHTTP(t *testing.T) {
	srv, a := newServer(t)

	w := do(t, srv, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	s := decode(t, w)
	assert.Equal(t, "selecting", s.Phase.Mode)
	assert.True(t, strings.HasPrefix(s.ThreadID, realign.ThreadPrefix))
	require.Len(t, s.Messages, 1)
	assert.Equal(t, []string{"Health Advice"}, s.Messages[0].Options)

	base := "/sessions/" + s.SessionID

	w = do(t, srv, http.MethodPost, base+"/select", `{"option":"Health Advice"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s = decode(t, w)
	assert.Equal(t, "collecting", s.Phase.Mode)
	require.NotNil(t, s.Phase.Step)
	assert.Equal(t, 0, *s.Phase.Step)

	for _, text := range []string{"Asha", "30", "Female", "165", "60", "Student", "Active", "Strength", "none"} {
		w = do(t, srv, http.MethodPost, base+"/messages", `{"text":"`+text+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.NoError(t, a.Wait())

	w = do(t, srv, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	s = decode(t, w)
	assert.Equal(t, "chatting", s.Phase.Mode)
	assert.Nil(t, s.Phase.Step)
	assert.Equal(t, "Asha", s.Profile["name"])
	assert.Equal(t, []any{}, s.Profile["health_issues"])

	last := s.Messages[len(s.Messages)-1]
	require.NotNil(t, last.Report)
	assert.Equal(t, []string{"Yoga"}, last.Report.FinalRecommendation)

	w = do(t, srv, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), s.SessionID)

	w = do(t, srv, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ErrorMapping(t *testing.T) {
	srv, _ := newServer(t, httpadapter.WithMaxInputSize(8))

	w := do(t, srv, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w).SessionID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown session", http.MethodGet, "/sessions/missing", "", http.StatusNotFound},
		{"unknown option", http.MethodPost, "/sessions/" + id + "/select", `{"option":"Class Booking"}`, http.StatusBadRequest},
		{"schema: missing option", http.MethodPost, "/sessions/" + id + "/select", `{}`, http.StatusBadRequest},
		{"schema: extra field", http.MethodPost, "/sessions/" + id + "/messages", `{"text":"hi","extra":1}`, http.StatusBadRequest},
		{"schema: wrong type", http.MethodPost, "/sessions/" + id + "/messages", `{"text":42}`, http.StatusBadRequest},
		{"input too large", http.MethodPost, "/sessions/" + id + "/messages", `{"text":"way too long"}`, http.StatusBadRequest},
		{"message to missing session", http.MethodPost, "/sessions/missing/messages", `{"text":"hi"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_InfoAndSpec(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, srv, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, realign.Version, info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = do(t, srv, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, srv, http.MethodGet, "/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	var questions []domain.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &questions))
	assert.Len(t, questions, 9)

	w = do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "metrics are only mounted when configured")
}

func TestServer_Metrics(t *testing.T) {
	m := observability.NewMetrics()
	srv, _ := newServer(t, httpadapter.WithMetricsHandler(m.Handler()))

	w := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_SessionGraph(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodPost, "/sessions", "")
	id := decode(t, w).SessionID
	do(t, srv, http.MethodPost, "/sessions/"+id+"/select", `{"option":"health"}`)

	w = do(t, srv, http.MethodGet, "/sessions/"+id+"/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), "class q_name current;")
}

func TestServer_SubscribeEvents(t *testing.T) {
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	var s session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	resp.Body.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sessions/"+s.SessionID+"/events?watch=phase", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := bufio.NewReader(stream.Body)
	readData := func() string {
		t.Helper()
		for {
			line, err := lines.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}
	assert.Equal(t, "connected", readData())

	// Filtered out: no phase change.
	post(t, ts.URL+"/sessions/"+s.SessionID+"/messages", `{"text":"hello"}`)
	// Delivered: Selecting -> Collecting(0).
	post(t, ts.URL+"/sessions/"+s.SessionID+"/select", `{"option":"Health Advice"}`)

	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(readData()), &diff))
	require.NotNil(t, diff.Phase)
	assert.Equal(t, domain.Collecting(0), *diff.Phase)
	require.Len(t, diff.Messages, 1)
	assert.Contains(t, diff.Messages[0].Text, "What is your name?")
}

func TestServer_SubscribeEventsUnknownSession(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodGet, "/sessions/missing/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, srv.Streams().Subscribers("missing"))
}

func post(t *testing.T, url, body string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
