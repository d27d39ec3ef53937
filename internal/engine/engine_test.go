package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreyzhou0924/trademe-detect/internal/classify"
)

const strategyMessage = "Here is a MACD+RSI strategy for you:\n" +
	"```python\n" +
	"class MacdRsiStrategy:\n" +
	"    def __init__(self):\n" +
	"        self.rsi_period = 14\n" +
	"\n" +
	"    def handle_data(self, bar):\n" +
	"        macd = self.calc_macd(bar)\n" +
	"        rsi = self.calc_rsi(bar)\n" +
	"        if macd > 0 and rsi < 30:\n" +
	"            self.buy(bar.symbol)\n" +
	"```\n" +
	"Run it when ready."

func testEngine(cfg Config) *Engine {
	return New(cfg, nil)
}

func TestDetectNoCode(t *testing.T) {
	e := testEngine(DefaultConfig())

	res := e.Detect("Sure! Let me explain how MACD works in plain words.")

	assert.False(t, res.DebugInfo.CodeExtracted)
	assert.False(t, res.MessageState.HasStrategyCode)
	assert.False(t, res.MessageState.ShowBacktestButton)
	assert.Nil(t, res.MessageState.AnalysisResult)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestDetectStrategyMessage(t *testing.T) {
	e := testEngine(DefaultConfig())

	res := e.Detect(strategyMessage)

	require.True(t, res.DebugInfo.CodeExtracted)
	require.NotNil(t, res.MessageState.AnalysisResult)
	assert.Equal(t, classify.TypeMACDRSI, res.MessageState.AnalysisResult.StrategyType)
	assert.True(t, res.MessageState.HasStrategyCode)
	assert.True(t, res.MessageState.ShowBacktestButton)
	assert.Equal(t, "python", res.MessageState.Language)
	assert.True(t, strings.HasPrefix(res.MessageState.ExtractedCode, "class MacdRsiStrategy:"))
}

func TestDetectIdempotentWithCache(t *testing.T) {
	e := testEngine(DefaultConfig())

	first := e.Detect(strategyMessage)
	second := e.Detect(strategyMessage)

	assert.False(t, first.DebugInfo.CacheHit)
	assert.True(t, second.DebugInfo.CacheHit)
	assert.Equal(t, first.MessageState.AnalysisResult, second.MessageState.AnalysisResult)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestDetectWhitespaceRerenderHitsCache(t *testing.T) {
	e := testEngine(DefaultConfig())

	e.Detect(strategyMessage)
	// Same code, different surrounding whitespace in the fence.
	rerendered := strings.Replace(strategyMessage, "```python\n", "```python\n\n\n", 1)
	res := e.Detect(rerendered)

	assert.True(t, res.DebugInfo.CacheHit)
}

func TestThresholdReinterpretationWithoutReanalysis(t *testing.T) {
	cfg := DefaultConfig()
	e := testEngine(cfg)

	first := e.Detect(strategyMessage)
	conf := first.Confidence
	require.True(t, conf > 0 && conf < 1)

	// Same message under a permissive threshold: cache hit, flag true.
	loose := cfg
	loose.MinConfidence = conf - 0.1
	res := e.DetectWith(strategyMessage, loose)
	assert.True(t, res.DebugInfo.CacheHit)
	assert.True(t, res.MessageState.AnalysisResult.IsStrategy)
	assert.True(t, res.MessageState.ShowBacktestButton)

	// And under a strict one: still a cache hit, flag false.
	strict := cfg
	strict.MinConfidence = conf + 0.1
	res = e.DetectWith(strategyMessage, strict)
	assert.True(t, res.DebugInfo.CacheHit)
	assert.False(t, res.MessageState.AnalysisResult.IsStrategy)
	assert.False(t, res.MessageState.ShowBacktestButton)
}

func TestDisableCacheIsMissButPreservesEntries(t *testing.T) {
	cfg := DefaultConfig()
	e := testEngine(cfg)

	e.Detect(strategyMessage)
	require.Equal(t, 1, e.CacheStats().Size)

	noCache := cfg
	noCache.EnableCache = false
	res := e.DetectWith(strategyMessage, noCache)
	assert.False(t, res.DebugInfo.CacheHit)
	assert.Equal(t, 1, e.CacheStats().Size, "disabling the cache must not disturb entries")

	// Re-enabling is reversible: the old entry still hits.
	res = e.Detect(strategyMessage)
	assert.True(t, res.DebugInfo.CacheHit)
}

func TestCacheBoundAcrossMessages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCacheSize = 3
	e := testEngine(cfg)

	for i := 0; i < 7; i++ {
		msg := fmt.Sprintf("```python\nclass S%d:\n    def handle_data(self):\n        self.buy('BTC')\n```", i)
		e.Detect(msg)
	}

	assert.Equal(t, 3, e.CacheStats().Size)
}

func TestDetectTimeoutPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnalysisTimeoutMs = 0 // no budget: sanity that large inputs still pass
	e := testEngine(cfg)

	huge := "```python\n" + strings.Repeat("x = macd(close)\n", 1000) + "```"
	res := e.Detect(huge)
	require.NotNil(t, res.MessageState.AnalysisResult)
	assert.NotEqual(t, []string{classify.ErrTimeout}, res.MessageState.AnalysisResult.Errors)
}

func TestDetectTimeoutNotCached(t *testing.T) {
	cfg := DefaultConfig()
	e := testEngine(cfg)

	// Force the timeout branch through the per-call config.
	tight := cfg
	tight.AnalysisTimeoutMs = 1
	huge := "```python\n" + strings.Repeat("x = macd(close, 12, 26, 9)\n", 200000) + "```"

	res := e.DetectWith(huge, tight)
	if assert.NotNil(t, res.MessageState.AnalysisResult) &&
		len(res.MessageState.AnalysisResult.Errors) == 1 &&
		res.MessageState.AnalysisResult.Errors[0] == classify.ErrTimeout {
		assert.Equal(t, 0.0, res.Confidence)
		assert.Equal(t, classify.TypeUnknown, res.MessageState.AnalysisResult.StrategyType)
		assert.Equal(t, 0, e.CacheStats().Size, "timeout results are not stored")
	}
}

func TestSuccessMessageFlag(t *testing.T) {
	e := testEngine(DefaultConfig())

	res := e.Detect("Backtest completed: total return 12.4%, max drawdown 3.1%.")
	assert.True(t, res.MessageState.HasSuccessMessage)
	assert.False(t, res.MessageState.HasStrategyCode)

	res = e.Detect("Still working on the strategy.")
	assert.False(t, res.MessageState.HasSuccessMessage)
}

func TestShowBacktestButtonInvariant(t *testing.T) {
	e := testEngine(DefaultConfig())

	messages := []string{
		strategyMessage,
		"no code here",
		"```python\nprint('not a strategy, just a print statement')\n```",
		"```\nx=1\n```",
	}
	for _, msg := range messages {
		res := e.Detect(msg)
		want := res.MessageState.HasStrategyCode &&
			res.MessageState.AnalysisResult != nil &&
			res.MessageState.AnalysisResult.IsStrategy
		assert.Equal(t, want, res.MessageState.ShowBacktestButton, "message %q", msg)
	}
}
