package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWith(reg, reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.Collecting(0), To: domain.Collecting(1)})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.Collecting(1), To: domain.Collecting(2)})
	hooks.OnValidationFailed(ctx, &domain.ValidationEvent{Key: "age", Eligibility: true})
	hooks.OnRequest(ctx, &domain.RequestEvent{Endpoint: domain.EndpointAdvice})
	hooks.OnResponse(ctx, &domain.RequestEvent{Endpoint: domain.EndpointAdvice, Duration: 20 * time.Millisecond, IsError: true})

	expected := `
# HELP realign_transitions_total Phase transitions by source and target mode
# TYPE realign_transitions_total counter
realign_transitions_total{from="collecting",to="collecting"} 2
# HELP realign_validation_failures_total Rejected answers by question key
# TYPE realign_validation_failures_total counter
realign_validation_failures_total{eligibility="true",key="age"} 1
# HELP realign_requests_total Calls to the advice and chat services by outcome
# TYPE realign_requests_total counter
realign_requests_total{endpoint="health-advice",status="error"} 1
# HELP realign_requests_in_flight Calls to remote services currently outstanding
# TYPE realign_requests_in_flight gauge
realign_requests_in_flight{endpoint="health-advice"} 0
`
	err := testutil.GatherAndCompare(reg, bytes.NewBufferString(expected),
		"realign_transitions_total",
		"realign_validation_failures_total",
		"realign_requests_total",
		"realign_requests_in_flight",
	)
	assert.NoError(t, err)
	count, err := testutil.GatherAndCount(reg, "realign_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnTransition(context.Background(), &domain.TransitionEvent{From: domain.Selecting(), To: domain.Collecting(0)})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `realign_transitions_total{from="selecting",to="collecting"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCombineHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "b") }}

	combined := observability.CombineHooks(a, domain.LifecycleHooks{}, b)
	combined.OnTransition(context.Background(), &domain.TransitionEvent{})
	combined.OnRequest(context.Background(), &domain.RequestEvent{})

	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LoggingHooks(logging.NewWithWriter(&buf, slog.LevelDebug))
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionEvent{EventBase: domain.EventBase{SessionID: "s1"}, From: domain.Selecting(), To: domain.Collecting(0)})
	hooks.OnResponse(ctx, &domain.RequestEvent{Endpoint: domain.EndpointChat, IsError: true})

	out := buf.String()
	assert.Contains(t, out, "to=collecting(0)")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "endpoint=chat")
}
