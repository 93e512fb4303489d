package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCompletion("generate_code", "ok", 2*time.Second)
	m.ObserveCompletion("generate_code", "ok", time.Second)
	m.ObserveCompletion("freeform", "UNAUTHORIZED", time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.CompletionTotal.WithLabelValues("generate_code", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CompletionTotal.WithLabelValues("freeform", "UNAUTHORIZED")))
	require.Equal(t, 2, testutil.CollectAndCount(m.CompletionDuration))
}

func TestObserveEventAndChunks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveEvent("text")
	m.ObserveEvent("document")
	m.ObserveEvent("text")
	m.ObserveChunks(3)
	m.ObserveChunks(0)

	require.Equal(t, 2.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("text")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("document")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.ChunksSentTotal))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveCompletion("freeform", "ok", time.Second)
		m.ObserveEvent("text")
		m.ObserveChunks(2)
	})
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveEvent("command")

	srv := httptest.NewServer(NewRouter(reg))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	_ = res.Body.Close()

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `rustbot_events_total{kind="command"} 1`)
}
