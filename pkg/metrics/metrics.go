package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics are the per-pipeline processing counters. Every series carries a pipeline label.
type PipelineMetrics struct {
	checkpointsProcessed *prometheus.CounterVec
	recordsDecoded       *prometheus.CounterVec
	decodeFailures       *prometheus.CounterVec
	rowsCommitted        *prometheus.CounterVec
	commitFailures       *prometheus.CounterVec
	watermark            *prometheus.GaugeVec
}

// NewPipelineMetrics registers the metrics on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func NewPipelineMetrics(reg prometheus.Registerer, namespace string) *PipelineMetrics {
	factory := promauto.With(reg)
	labels := []string{"pipeline"}
	m := PipelineMetrics{
		checkpointsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_checkpoints_processed_total", namespace),
			Help: "The total number of checkpoints decoded and committed",
		}, labels),
		recordsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_records_decoded_total", namespace),
			Help: "The total number of records produced by the decoder",
		}, labels),
		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_decode_failures_total", namespace),
			Help: "The total number of tracked objects dropped because they could not be decoded",
		}, labels),
		rowsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_rows_committed_total", namespace),
			Help: "The total number of rows inserted or updated",
		}, labels),
		commitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_commit_failures_total", namespace),
			Help: "The total number of failed commit attempts",
		}, labels),
		watermark: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_watermark_checkpoint", namespace),
			Help: "The highest checkpoint fully committed",
		}, labels),
	}
	return &m
}

func (m *PipelineMetrics) IncCheckpointsProcessed(pipeline string) {
	m.checkpointsProcessed.WithLabelValues(pipeline).Inc()
}

func (m *PipelineMetrics) AddRecordsDecoded(pipeline string, count int) {
	m.recordsDecoded.WithLabelValues(pipeline).Add(float64(count))
}

func (m *PipelineMetrics) AddDecodeFailures(pipeline string, count int) {
	m.decodeFailures.WithLabelValues(pipeline).Add(float64(count))
}

func (m *PipelineMetrics) AddRowsCommitted(pipeline string, count int64) {
	m.rowsCommitted.WithLabelValues(pipeline).Add(float64(count))
}

func (m *PipelineMetrics) IncCommitFailures(pipeline string) {
	m.commitFailures.WithLabelValues(pipeline).Inc()
}

func (m *PipelineMetrics) SetWatermark(pipeline string, checkpoint uint64) {
	m.watermark.WithLabelValues(pipeline).Set(float64(checkpoint))
}
