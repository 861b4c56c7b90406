package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/goalchat/goalchat/internal/conversation"
)

// installRecordingTracer swaps in a span-recording tracer provider for
// the duration of the test. The provider must be installed before the
// server is constructed because otelhttp resolves it at wiring time.
func installRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestRequestsEmitSpans(t *testing.T) {
	recorder := installRecordingTracer(t)
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	var conv conversation.Conversation
	rec := ts.do(t, http.MethodPost, "/api/conversations", token,
		map[string]string{"title": "Trip planning"}, &conv)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", token,
		map[string]string{"role": "user", "content": "hello"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/conversations/"+conv.ID, token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "POST /api/auth/login")
	assert.Contains(t, names, "POST /api/conversations")
	assert.Contains(t, names, "DELETE /api/conversations/"+conv.ID)
}

func TestProbesEmitNoSpans(t *testing.T) {
	recorder := installRecordingTracer(t)
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/ready", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, recorder.Ended())
}
