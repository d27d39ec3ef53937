package classify

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Pattern Classifier — shallow lexical analysis of a code snippet.
// No AST, no execution: identifier-boundary token scans plus a weighted
// saturating confidence score. Never fails; bad input degrades to a
// low-confidence "unknown" result with entries in Errors.
// ---------------------------------------------------------------------------

// AnalysisResult is the immutable outcome of analyzing one distinct snippet.
//
// IsStrategy is derived state: the classifier only emits Confidence, the
// config-dependent threshold is applied by the detection engine so a cached
// result can be reinterpreted under a different minimum without re-analysis.
type AnalysisResult struct {
	IsStrategy   bool                 `json:"is_strategy"`
	Confidence   float64              `json:"confidence"`
	StrategyType StrategyType         `json:"strategy_type"`
	Indicators   []TechnicalIndicator `json:"indicators,omitempty"`
	ClassName    string               `json:"class_name,omitempty"`
	Methods      []string             `json:"methods,omitempty"` // source order
	Params       []Param              `json:"params,omitempty"`  // backtest hints
	Errors       []string             `json:"errors,omitempty"`  // heuristic warnings, non-fatal
}

// ErrTimeout is the single Errors entry of a timed-out analysis.
const ErrTimeout = "timeout"

// Weights drive the confidence score. The score is a weighted sum pushed
// through a saturating curve raw/(raw+knee), so extra matches always help
// but no snippet can reach 1.0.
type Weights struct {
	Indicator      float64 `yaml:"indicator"`       // per distinct indicator token
	Class          float64 `yaml:"class"`           // strategy class/declaration found
	Method         float64 `yaml:"method"`          // per lifecycle method
	TradeVocab     float64 `yaml:"trade_vocab"`     // entry/exit vocabulary present
	SaturationKnee float64 `yaml:"saturation_knee"` // curve knee, raw/(raw+knee)
}

// DefaultWeights returns the production scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Indicator:      0.18,
		Class:          0.25,
		Method:         0.10,
		TradeVocab:     0.15,
		SaturationKnee: 0.35,
	}
}

// structuralPenalty scales down the structural bonus when heuristics
// disagree with themselves (unbalanced brackets, methods without a class).
const structuralPenalty = 0.5

// Token scans use a custom identifier boundary: underscores and case
// changes separate tokens, so "sma_period" matches SMA while "SMART"
// does not. regexp's \b treats '_' as a word character, which is wrong
// for snake_case identifiers.
var indicatorPatterns = func() map[TechnicalIndicator]*regexp.Regexp {
	m := make(map[TechnicalIndicator]*regexp.Regexp, len(AllIndicators))
	for _, ind := range AllIndicators {
		m[ind] = tokenPattern(strings.ToLower(string(ind)))
	}
	return m
}()

func tokenPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9])` + regexp.QuoteMeta(token) + `(?:$|[^a-zA-Z0-9])`)
}

// lifecycleMethods is the closed set of handler/lifecycle hooks recognized
// across the strategy frameworks the assistant emits (init hooks, bar/tick
// handlers, order placement). Each pattern requires a call/def shape —
// the name followed by '(' — to avoid matching prose.
var lifecycleMethods = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"initialize", methodPattern(`initialize`)},
	{"init", methodPattern(`init|__init__`)},
	{"handle_data", methodPattern(`handle_data|handledata`)},
	{"on_bar", methodPattern(`on_bar|onbar`)},
	{"on_tick", methodPattern(`on_tick|ontick`)},
	{"on_order", methodPattern(`on_order|onorder`)},
	{"next", methodPattern(`next`)},
	{"place_order", methodPattern(`place_order|placeorder|create_order|order_target`)},
}

func methodPattern(alts string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9])(?:` + alts + `)\s*\(`)
}

// classPatterns detect a strategy class/declaration and capture its name.
var classPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?m)^\s*type\s+([A-Za-z_][A-Za-z0-9_]*)\s+struct`),
	regexp.MustCompile(`(?i)strategy\s*\(\s*["']([^"']+)["']`), // Pine-style
}

// tradeVocab is the entry/exit keyword set; any hit earns the vocab bonus.
var tradeVocab = []*regexp.Regexp{
	tokenPattern("buy"),
	tokenPattern("sell"),
	tokenPattern("order"),
	tokenPattern("signal"),
	tokenPattern("position"),
	tokenPattern("entry"),
	tokenPattern("exit"),
}

// Analyzer computes AnalysisResults from normalized snippets.
type Analyzer struct {
	weights Weights
}

// NewAnalyzer creates an analyzer with the given scoring weights.
func NewAnalyzer(weights Weights) *Analyzer {
	if weights.SaturationKnee <= 0 {
		weights = DefaultWeights()
	}
	return &Analyzer{weights: weights}
}

// Analyze classifies a normalized snippet within the given wall-clock budget.
// A timeout <= 0 means no budget. The timeout path is the only one that
// short-circuits: it yields confidence 0, type unknown, Errors=["timeout"].
func (a *Analyzer) Analyze(code string, timeout time.Duration) AnalysisResult {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	expired := func() bool {
		return !deadline.IsZero() && time.Now().After(deadline)
	}
	timeoutResult := AnalysisResult{
		StrategyType: TypeUnknown,
		Errors:       []string{ErrTimeout},
	}

	// 1. Indicator scan: whole-token, case-insensitive.
	indicators := make([]TechnicalIndicator, 0, 4)
	for _, ind := range AllIndicators {
		if expired() {
			return timeoutResult
		}
		if indicatorPatterns[ind].MatchString(code) {
			indicators = append(indicators, ind)
		}
	}

	// 2. Structural scan: class declaration and lifecycle methods.
	className := detectClass(code)
	if expired() {
		return timeoutResult
	}

	methods := detectMethods(code, &deadline)
	if expired() {
		return timeoutResult
	}

	// Entry/exit vocabulary.
	hasVocab := false
	for _, p := range tradeVocab {
		if p.MatchString(code) {
			hasVocab = true
			break
		}
	}
	if expired() {
		return timeoutResult
	}

	// 3. Heuristic warnings. Never fatal; they only trim the structural bonus.
	var errs []string
	penalty := 1.0
	if !bracketsBalanced(code) {
		errs = append(errs, "unbalanced brackets")
		penalty = structuralPenalty
	}
	if len(methods) > 0 && className == "" {
		errs = append(errs, "lifecycle method without class context")
		penalty = structuralPenalty
	}

	// 4. Weighted sum through the saturating curve.
	w := a.weights
	raw := float64(len(indicators)) * w.Indicator
	structural := 0.0
	if className != "" {
		structural += w.Class
	}
	structural += float64(len(methods)) * w.Method
	raw += structural * penalty
	if hasVocab {
		raw += w.TradeVocab
	}
	confidence := raw / (raw + w.SaturationKnee)

	// 5. Supplementary parameter extraction for backtest hints.
	params := extractParams(code)
	if expired() {
		return timeoutResult
	}

	return AnalysisResult{
		Confidence:   confidence,
		StrategyType: classifyType(indicators, className != "", len(methods)),
		Indicators:   indicators,
		ClassName:    className,
		Methods:      methods,
		Params:       params,
		Errors:       errs,
	}
}

// detectClass returns the earliest class/declaration name in the snippet.
func detectClass(code string) string {
	bestIdx := -1
	bestName := ""
	for _, p := range classPatterns {
		loc := p.FindStringSubmatchIndex(code)
		if loc == nil {
			continue
		}
		if bestIdx < 0 || loc[0] < bestIdx {
			bestIdx = loc[0]
			bestName = code[loc[2]:loc[3]]
		}
	}
	return bestName
}

// detectMethods returns recognized lifecycle methods in source order.
func detectMethods(code string, deadline *time.Time) []string {
	type hit struct {
		idx  int
		name string
	}
	var hits []hit
	for _, m := range lifecycleMethods {
		if !deadline.IsZero() && time.Now().After(*deadline) {
			return nil
		}
		loc := m.pattern.FindStringIndex(code)
		if loc != nil {
			hits = append(hits, hit{idx: loc[0], name: m.name})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].idx < hits[j].idx })

	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.name)
	}
	return names
}

// bracketsBalanced does a flat count of (), [], {} pairs. Shallow on
// purpose: strings and comments are not parsed at this tier.
func bracketsBalanced(code string) bool {
	var round, square, curly int
	for _, r := range code {
		switch r {
		case '(':
			round++
		case ')':
			round--
		case '[':
			square++
		case ']':
			square--
		case '{':
			curly++
		case '}':
			curly--
		}
	}
	return round == 0 && square == 0 && curly == 0
}
