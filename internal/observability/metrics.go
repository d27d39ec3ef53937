package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the detection engine.
type Metrics struct {
	DetectTotal      prometheus.Counter
	ExtractionMisses prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Timeouts         prometheus.Counter
	StrategiesFound  *prometheus.CounterVec
	AnalysisLatency  prometheus.Histogram
	CacheSize        prometheus.Gauge
}

// analysisLatencyBuckets in milliseconds; detection is expected to stay
// in the low single digits, the tail buckets catch timeout-bound calls.
var analysisLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500}

// New registers the detection metrics against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DetectTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "detect_calls_total",
			Help: "Total detection calls processed",
		}),
		ExtractionMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "detect_extraction_misses_total",
			Help: "Detection calls where no code block was found",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "detect_cache_hits_total",
			Help: "Analysis cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "detect_cache_misses_total",
			Help: "Analysis cache misses",
		}),
		Timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "detect_analysis_timeouts_total",
			Help: "Analyses aborted by the wall-clock budget",
		}),
		StrategiesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "detect_strategies_found_total",
			Help: "Snippets classified as strategies, by type",
		}, []string{"strategy_type"}),
		AnalysisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "detect_analysis_latency_ms",
			Help:    "End-to-end detection latency in milliseconds",
			Buckets: analysisLatencyBuckets,
		}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "detect_cache_entries",
			Help: "Current number of analysis cache entries",
		}),
	}
}
