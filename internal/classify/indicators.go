package classify

// StrategyType is the classified kind of a detected strategy.
type StrategyType string

const (
	TypeMACD           StrategyType = "macd"
	TypeMA             StrategyType = "ma"
	TypeRSI            StrategyType = "rsi"
	TypeBOLL           StrategyType = "boll"
	TypeKDJ            StrategyType = "kdj"
	TypeCCI            StrategyType = "cci"
	TypeMACDRSI        StrategyType = "macd-rsi"
	TypeMAKDJ          StrategyType = "ma-kdj"
	TypeBOLLCCI        StrategyType = "boll-cci"
	TypeMultiIndicator StrategyType = "multi-indicator"
	TypeGeneric        StrategyType = "generic"
	TypeUnknown        StrategyType = "unknown"
)

// TechnicalIndicator is a named technical-analysis computation whose
// presence in code is a classification signal.
type TechnicalIndicator string

const (
	IndicatorMACD  TechnicalIndicator = "MACD"
	IndicatorMA    TechnicalIndicator = "MA"
	IndicatorEMA   TechnicalIndicator = "EMA"
	IndicatorSMA   TechnicalIndicator = "SMA"
	IndicatorRSI   TechnicalIndicator = "RSI"
	IndicatorBOLL  TechnicalIndicator = "BOLL"
	IndicatorKDJ   TechnicalIndicator = "KDJ"
	IndicatorCCI   TechnicalIndicator = "CCI"
	IndicatorSTOCH TechnicalIndicator = "STOCH"
)

// AllIndicators lists every indicator in scan order.
var AllIndicators = []TechnicalIndicator{
	IndicatorMACD, IndicatorMA, IndicatorEMA, IndicatorSMA,
	IndicatorRSI, IndicatorBOLL, IndicatorKDJ, IndicatorCCI, IndicatorSTOCH,
}

// family groups indicators that express the same signal: MA/EMA/SMA are all
// moving averages, STOCH is the stochastic oscillator underlying KDJ.
type family string

const (
	familyMACD family = "macd"
	familyMA   family = "ma"
	familyRSI  family = "rsi"
	familyBOLL family = "boll"
	familyKDJ  family = "kdj"
	familyCCI  family = "cci"
)

var indicatorFamily = map[TechnicalIndicator]family{
	IndicatorMACD:  familyMACD,
	IndicatorMA:    familyMA,
	IndicatorEMA:   familyMA,
	IndicatorSMA:   familyMA,
	IndicatorRSI:   familyRSI,
	IndicatorBOLL:  familyBOLL,
	IndicatorKDJ:   familyKDJ,
	IndicatorSTOCH: familyKDJ,
	IndicatorCCI:   familyCCI,
}

// singletonType maps a lone indicator family to its strategy type.
var singletonType = map[family]StrategyType{
	familyMACD: TypeMACD,
	familyMA:   TypeMA,
	familyRSI:  TypeRSI,
	familyBOLL: TypeBOLL,
	familyKDJ:  TypeKDJ,
	familyCCI:  TypeCCI,
}

// pairType maps known two-family combinations to compound types.
// Keys are ordered pairs; pairKey sorts before lookup.
var pairType = map[[2]family]StrategyType{
	{familyMACD, familyRSI}: TypeMACDRSI,
	{familyKDJ, familyMA}:   TypeMAKDJ,
	{familyBOLL, familyCCI}: TypeBOLLCCI,
}

func pairKey(a, b family) [2]family {
	if a > b {
		a, b = b, a
	}
	return [2]family{a, b}
}

// classifyType applies the rule table keyed by the detected indicator set.
//
//	one family            -> that family's singleton type
//	two families          -> compound if known, multi-indicator otherwise
//	three or more         -> multi-indicator
//	none but class+method -> generic
//	otherwise             -> unknown
func classifyType(indicators []TechnicalIndicator, hasClass bool, methodCount int) StrategyType {
	seen := make(map[family]bool)
	fams := make([]family, 0, len(indicators))
	for _, ind := range indicators {
		f := indicatorFamily[ind]
		if !seen[f] {
			seen[f] = true
			fams = append(fams, f)
		}
	}

	switch len(fams) {
	case 0:
		if hasClass && methodCount >= 1 {
			return TypeGeneric
		}
		return TypeUnknown
	case 1:
		return singletonType[fams[0]]
	case 2:
		if t, ok := pairType[pairKey(fams[0], fams[1])]; ok {
			return t
		}
		// Unrecognized pair: multi-indicator beats guessing.
		return TypeMultiIndicator
	default:
		return TypeMultiIndicator
	}
}
