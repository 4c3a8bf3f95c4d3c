package cli

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/LexCite/pkg/errors"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "lexcite",
		Subsystem: prometheus.Subsystem,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewPipelineMetrics(collector)
	metrics.DocumentsTotal.WithLabelValues("retained").Add(2)

	srv, err := startMetricsServer("127.0.0.1:0", collector.Handler(), logging.NewNopLogger())
	require.NoError(t, err)
	base := "http://" + srv.Addr()

	status, body := get(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `lexcite_pipeline_documents_total{status="retained"} 2`)

	status, body = get(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	require.NoError(t, srv.Stop())
	_, err = http.Get(base + "/metrics")
	assert.Error(t, err)
}

func TestMetricsServer_AddressInUse(t *testing.T) {
	first, err := startMetricsServer("127.0.0.1:0", http.NotFoundHandler(), nil)
	require.NoError(t, err)
	defer func() { _ = first.Stop() }()

	_, err = startMetricsServer(first.Addr(), http.NotFoundHandler(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
}
