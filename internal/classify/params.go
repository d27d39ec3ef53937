package classify

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Parameter extraction — numeric strategy parameters pulled straight out of
// the snippet text. Same heuristic tier as the rest of the classifier: plain
// lexical matching, no evaluation. The values ride on AnalysisResult as
// hints for the backtest trigger.
// ---------------------------------------------------------------------------

// Param is a named numeric strategy parameter found in the snippet.
// Values are decimals: these are trading thresholds and percentages,
// binary floats would distort them.
type Param struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// paramPatterns match `name = 14`, `name: 0.02` style assignments for a
// closed set of parameter names. Group 1 is the canonical-ish name, group 2
// the numeric literal.
var paramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9])((?:fast|slow|signal|rsi|ma|ema|sma|kdj|cci|boll)_?(?:period|window|length))\s*[=:]\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])(period|window|length|timeperiod)\s*[=:]\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9])(overbought|oversold|upper_band|lower_band|threshold)\s*[=:]\s*(-?\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9])(stop_?loss|take_?profit|trailing_?stop)\s*[=:]\s*(-?\d+(?:\.\d+)?)`),
}

// extractParams scans the snippet for recognizable numeric parameters.
// First assignment per name wins; later reassignments are ignored.
func extractParams(code string) []Param {
	var params []Param
	seen := make(map[string]bool)

	for _, p := range paramPatterns {
		for _, m := range p.FindAllStringSubmatch(code, -1) {
			name := normalizeParamName(m[1])
			if seen[name] {
				continue
			}
			val, err := decimal.NewFromString(m[2])
			if err != nil {
				continue
			}
			seen[name] = true
			params = append(params, Param{Name: name, Value: val})
		}
	}
	return params
}

var paramNameSep = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeParamName lowers and snake_cases the matched name so
// "StopLoss", "stop_loss" and "stoploss" collapse to one key.
func normalizeParamName(name string) string {
	lowered := ""
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				lowered += "_"
			}
			lowered += string(r + ('a' - 'A'))
			continue
		}
		lowered += string(r)
	}
	return paramNameSep.ReplaceAllString(lowered, "_")
}
