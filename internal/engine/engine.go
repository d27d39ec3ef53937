package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jeffreyzhou0924/trademe-detect/internal/cache"
	"github.com/jeffreyzhou0924/trademe-detect/internal/classify"
	"github.com/jeffreyzhou0924/trademe-detect/internal/extract"
	"github.com/jeffreyzhou0924/trademe-detect/internal/observability"
)

// ---------------------------------------------------------------------------
// Detection Engine — extract → cache lookup → classify-on-miss → store →
// derive UI state. One call per rendered/streamed chat message revision.
// Detect never fails: every outcome, including timeouts, is value-encoded.
// ---------------------------------------------------------------------------

// Config is the caller-facing detection configuration.
// MaxCacheSize binds at engine construction; the rest applies per call.
type Config struct {
	MinConfidence     float64          `yaml:"min_confidence"`
	EnableCache       bool             `yaml:"enable_cache"`
	MaxCacheSize      int              `yaml:"max_cache_size"`
	AnalysisTimeoutMs int              `yaml:"analysis_timeout_ms"`
	MinSnippetLen     int              `yaml:"min_snippet_len"`
	Weights           classify.Weights `yaml:"weights"`
}

// DefaultConfig returns the production detection defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:     0.5,
		EnableCache:       true,
		MaxCacheSize:      cache.DefaultMaxSize,
		AnalysisTimeoutMs: 200,
		MinSnippetLen:     extract.DefaultMinSnippetLen,
		Weights:           classify.DefaultWeights(),
	}
}

// MessageState is the UI-facing state derived for one chat message.
// Invariant: ShowBacktestButton == HasStrategyCode && AnalysisResult.IsStrategy.
type MessageState struct {
	HasStrategyCode    bool                     `json:"has_strategy_code"`
	HasSuccessMessage  bool                     `json:"has_success_message"`
	AnalysisResult     *classify.AnalysisResult `json:"analysis_result,omitempty"`
	ShowBacktestButton bool                     `json:"show_backtest_button"`
	ExtractedCode      string                   `json:"extracted_code,omitempty"`
	Language           string                   `json:"language,omitempty"`
}

// DebugInfo carries per-call diagnostics for the rendering layer.
type DebugInfo struct {
	DetectionID    string   `json:"detection_id"`
	CodeExtracted  bool     `json:"code_extracted"`
	AnalysisTimeMs float64  `json:"analysis_time_ms"`
	CacheHit       bool     `json:"cache_hit"`
	Errors         []string `json:"errors,omitempty"`
}

// SmartDetectionResult is the top-level return value of Detect.
type SmartDetectionResult struct {
	MessageState MessageState `json:"message_state"`
	Confidence   float64      `json:"confidence"`
	DebugInfo    DebugInfo    `json:"debug_info"`
}

// Engine composes extractor, classifier and cache. The cache is the only
// long-lived state; it is owned here and exposed to no other component.
type Engine struct {
	config   Config
	analyzer *classify.Analyzer
	cache    *cache.Cache
	metrics  *observability.Metrics
}

// New creates a detection engine. metrics may be nil.
func New(cfg Config, metrics *observability.Metrics) *Engine {
	return &Engine{
		config:   cfg,
		analyzer: classify.NewAnalyzer(cfg.Weights),
		cache:    cache.New(cfg.MaxCacheSize),
		metrics:  metrics,
	}
}

// Detect runs detection under the engine's configured thresholds.
func (e *Engine) Detect(rawMessage string) SmartDetectionResult {
	return e.DetectWith(rawMessage, e.config)
}

// DetectWith runs detection with per-call config overrides. The cache is
// shared across configs: a stored raw analysis is reinterpreted under the
// caller's MinConfidence without recomputation, which is why the classifier
// never sets IsStrategy itself.
func (e *Engine) DetectWith(rawMessage string, cfg Config) SmartDetectionResult {
	start := time.Now()
	id := uuid.NewString()
	if e.metrics != nil {
		e.metrics.DetectTotal.Inc()
	}

	hasSuccess := hasSuccessMessage(rawMessage)

	snippet, ok := extract.New(cfg.MinSnippetLen).Extract(rawMessage)
	if !ok {
		// ExtractionMiss: a valid negative outcome, not an error.
		if e.metrics != nil {
			e.metrics.ExtractionMisses.Inc()
			e.metrics.AnalysisLatency.Observe(sinceMs(start))
		}
		return SmartDetectionResult{
			MessageState: MessageState{HasSuccessMessage: hasSuccess},
			DebugInfo: DebugInfo{
				DetectionID:    id,
				AnalysisTimeMs: sinceMs(start),
			},
		}
	}

	hash := cache.Key(snippet.Code)

	var (
		result   classify.AnalysisResult
		cacheHit bool
	)
	if cfg.EnableCache {
		result, cacheHit = e.cache.Get(hash)
	}
	if !cacheHit {
		result = e.analyzer.Analyze(snippet.Code, time.Duration(cfg.AnalysisTimeoutMs)*time.Millisecond)
		timedOut := len(result.Errors) == 1 && result.Errors[0] == classify.ErrTimeout
		if timedOut && e.metrics != nil {
			e.metrics.Timeouts.Inc()
		}
		// Timeout results are not cached: the same code may analyze fine
		// on the next revision when the process is less loaded.
		if cfg.EnableCache && !timedOut {
			e.cache.Put(hash, result)
		}
	}

	// The threshold is applied here, one layer above the classifier.
	result.IsStrategy = result.Confidence >= cfg.MinConfidence

	hasStrategyCode := result.IsStrategy
	state := MessageState{
		HasStrategyCode:    hasStrategyCode,
		HasSuccessMessage:  hasSuccess,
		AnalysisResult:     &result,
		ShowBacktestButton: hasStrategyCode && result.IsStrategy,
		ExtractedCode:      snippet.Code,
		Language:           snippet.Language,
	}

	elapsed := sinceMs(start)
	if e.metrics != nil {
		if cacheHit {
			e.metrics.CacheHits.Inc()
		} else {
			e.metrics.CacheMisses.Inc()
		}
		if result.IsStrategy {
			e.metrics.StrategiesFound.WithLabelValues(string(result.StrategyType)).Inc()
		}
		e.metrics.AnalysisLatency.Observe(elapsed)
		e.metrics.CacheSize.Set(float64(e.cache.Len()))
	}

	log.Debug().
		Str("detection_id", id).
		Str("strategy_type", string(result.StrategyType)).
		Float64("confidence", result.Confidence).
		Bool("cache_hit", cacheHit).
		Float64("elapsed_ms", elapsed).
		Msg("detect: message analyzed")

	return SmartDetectionResult{
		MessageState: state,
		Confidence:   result.Confidence,
		DebugInfo: DebugInfo{
			DetectionID:    id,
			CodeExtracted:  true,
			AnalysisTimeMs: elapsed,
			CacheHit:       cacheHit,
			Errors:         result.Errors,
		},
	}
}

// CacheStats exposes cache counters for the health endpoint.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Snapshot()
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// successPhrases mark assistant messages reporting a completed backtest run.
var successPhrases = []string{
	"backtest complete",
	"backtest completed",
	"backtest finished",
	"backtest succeeded",
	"strategy executed successfully",
}

func hasSuccessMessage(rawMessage string) bool {
	lowered := strings.ToLower(rawMessage)
	for _, p := range successPhrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
