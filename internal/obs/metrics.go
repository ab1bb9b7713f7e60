package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline-stage counters/histograms this engine reports,
// grounded on tphakala-birdnet-go's prometheus wiring (counters/histograms
// registered once at process start, incremented from call sites).
var (
	ChunksPlanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transcript",
		Name:      "chunks_planned_total",
		Help:      "Number of audio chunks produced by the chunk planner, by model id.",
	}, []string{"model"})

	ChunksDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transcript",
		Name:      "chunks_dispatched_total",
		Help:      "Number of chunks dispatched to the remote model, by model id and outcome.",
	}, []string{"model", "outcome"})

	DispatchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transcript",
		Name:      "dispatch_latency_seconds",
		Help:      "Per-chunk remote transcription call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})

	CleaningReductionRatio = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transcript",
		Name:      "cleaning_reduction_ratio",
		Help:      "Fraction of text removed by the cleaning pipeline, by model id.",
		Buckets:   []float64{0, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.75, 1},
	}, []string{"model"})
)

// Register adds every collector to reg. Call once at process start; tests
// that construct their own prometheus.Registry can call this against it for
// isolation.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{ChunksPlanned, ChunksDispatched, DispatchLatency, CleaningReductionRatio} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
