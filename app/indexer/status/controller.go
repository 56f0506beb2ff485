package status

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
)

// WatermarkReader is the read side of the watermark table.
type WatermarkReader interface {
	Watermarks(ctx context.Context) ([]indexermodels.Watermark, error)
}

// HealthCheck reports nil when the dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Controller struct {
	Logger     *zap.Logger
	Watermarks WatermarkReader
	// Checks are keyed by dependency name ("postgres", "temporal", "redis").
	Checks   map[string]HealthCheck
	Gatherer prometheus.Gatherer
	// Pipelines lists the enabled pipelines, reported even before their first commit.
	Pipelines []string
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

type pipelineStatus struct {
	Pipeline              string     `json:"pipeline"`
	CheckpointHiInclusive *uint64    `json:"checkpoint_hi_inclusive"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`
}

// NewRouter returns the status routes.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/watermarks", c.HandleWatermarks).Methods(http.MethodGet)
	r.HandleFunc("/watermarks/{pipeline}", c.HandleWatermark).Methods(http.MethodGet)

	gatherer := c.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// HandleHealth runs every dependency check; any failure turns the response into a 503.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Dependencies: make(map[string]string, len(c.Checks))}
	for name, check := range c.Checks {
		if err := check(ctx); err != nil {
			c.Logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Dependencies[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// HandleWatermarks lists every enabled pipeline with its watermark; null means nothing committed yet.
func (c *Controller) HandleWatermarks(w http.ResponseWriter, r *http.Request) {
	statuses, err := c.statuses(r.Context())
	if err != nil {
		c.Logger.Error("watermark query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "watermark query failed"})
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (c *Controller) HandleWatermark(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["pipeline"]
	statuses, err := c.statuses(r.Context())
	if err != nil {
		c.Logger.Error("watermark query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "watermark query failed"})
		return
	}
	for _, s := range statuses {
		if s.Pipeline == name {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown pipeline"})
}

func (c *Controller) statuses(ctx context.Context) ([]pipelineStatus, error) {
	wms, err := c.Watermarks.Watermarks(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]pipelineStatus, len(c.Pipelines)+len(wms))
	for _, p := range c.Pipelines {
		byName[p] = pipelineStatus{Pipeline: p}
	}
	for _, wm := range wms {
		hi, at := wm.CheckpointHiInclusive, wm.UpdatedAt
		byName[wm.Pipeline] = pipelineStatus{Pipeline: wm.Pipeline, CheckpointHiInclusive: &hi, UpdatedAt: &at}
	}

	out := make([]pipelineStatus, 0, len(byName))
	for _, s := range byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pipeline < out[j].Pipeline })
	return out, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
