package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/metrics"
)

type fakeWatermarks struct {
	wms []indexermodels.Watermark
	err error
}

func (f fakeWatermarks) Watermarks(context.Context) ([]indexermodels.Watermark, error) {
	return f.wms, f.err
}

func newServer(t *testing.T, c *Controller) *httptest.Server {
	t.Helper()
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	srv := httptest.NewServer(c.NewRouter())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf strings.Builder
	_, err = io.Copy(&buf, resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &Controller{
		Watermarks: fakeWatermarks{},
		Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	})
	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"postgres":"ok"}}`, string(body))
}

func TestHealthDegraded(t *testing.T) {
	srv := newServer(t, &Controller{
		Watermarks: fakeWatermarks{},
		Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		},
	})
	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var h healthResponse
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "dial tcp: refused", h.Dependencies["redis"])
}

func TestWatermarks(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	srv := newServer(t, &Controller{
		Watermarks: fakeWatermarks{wms: []indexermodels.Watermark{
			{Pipeline: "senders", CheckpointHiInclusive: 42, UpdatedAt: at},
		}},
		Pipelines: []string{"blobs", "senders"},
	})

	resp, body := get(t, srv.URL+"/watermarks")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[
		{"pipeline":"blobs","checkpoint_hi_inclusive":null},
		{"pipeline":"senders","checkpoint_hi_inclusive":42,"updated_at":"2024-05-01T00:00:00Z"}
	]`, string(body))

	resp, body = get(t, srv.URL+"/watermarks/senders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"checkpoint_hi_inclusive":42`)

	resp, _ = get(t, srv.URL+"/watermarks/transfers")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatermarksQueryFailure(t *testing.T) {
	srv := newServer(t, &Controller{Watermarks: fakeWatermarks{err: errors.New("pool closed")}})
	resp, _ := get(t, srv.URL+"/watermarks")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(reg, "sui_indexer")
	m.SetWatermark("blobs", 7)

	srv := newServer(t, &Controller{Watermarks: fakeWatermarks{}, Gatherer: reg})
	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sui_indexer_watermark_checkpoint{pipeline="blobs"} 7`)
}
