package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"lazyprep/domain/table"
)

// TypeCoercer infers a column kind from raw cells and converts them to typed values
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64 `json:"numeric_threshold"`   // share of present cells that must parse as numbers
	BooleanThreshold   float64 `json:"boolean_threshold"`   // share of present cells that must parse as booleans
	TimestampThreshold float64 `json:"timestamp_threshold"` // share of present cells that must parse as timestamps
	NormalizeStrings   bool    `json:"normalize_strings"`   // collapse whitespace and strip control characters
}

// DefaultCoercionConfig requires every present cell to parse before a column is typed
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   1.0,
		BooleanThreshold:   1.0,
		TimestampThreshold: 1.0,
		NormalizeStrings:   true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

var missingTokens = map[string]bool{
	"":      true,
	"na":    true,
	"n/a":   true,
	"#n/a":  true,
	"nan":   true,
	"null":  true,
	"none":  true,
	"<na>":  true,
	"-nan":  true,
	"#null": true,
}

// IsMissingToken reports whether a raw cell denotes a missing value
func IsMissingToken(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// CoerceColumn types a whole column of raw cells
func (c *TypeCoercer) CoerceColumn(name string, raw []string) *table.Column {
	analysis := c.AnalyzeTypeDistribution(raw)
	vals := make([]table.Value, len(raw))
	for i, s := range raw {
		vals[i] = c.CoerceValue(s, analysis.RecommendedKind)
	}
	return table.NewColumn(name, analysis.RecommendedKind, vals)
}

// CoerceValue converts one raw cell to the given kind; cells that do not parse become missing
func (c *TypeCoercer) CoerceValue(raw string, kind table.Kind) table.Value {
	if IsMissingToken(raw) {
		return table.Missing()
	}
	switch kind {
	case table.KindNumeric:
		if v, ok := c.tryParseNumeric(raw); ok {
			return v
		}
		return table.Missing()
	case table.KindBoolean:
		if v, ok := c.tryParseBoolean(raw); ok {
			return v
		}
		return table.Missing()
	case table.KindDatetime:
		if v, ok := c.tryParseTimestamp(raw); ok {
			return v
		}
		return table.Missing()
	default:
		return c.coerceToString(raw)
	}
}

// AnalyzeTypeDistribution counts how many present cells parse as each type
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, val := range values {
		if IsMissingToken(val) {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.tryParseNumeric(val); ok {
			analysis.NumericCount++
		}
		if _, ok := c.tryParseBoolean(val); ok {
			analysis.BooleanCount++
		}
		if _, ok := c.tryParseTimestamp(val); ok {
			analysis.TimestampCount++
		}
	}

	if analysis.ValidCount > 0 {
		n := float64(analysis.ValidCount)
		analysis.NumericRatio = float64(analysis.NumericCount) / n
		analysis.BooleanRatio = float64(analysis.BooleanCount) / n
		analysis.TimestampRatio = float64(analysis.TimestampCount) / n
	}
	analysis.RecommendedKind = c.determineRecommendedKind(analysis)
	return analysis
}

// coerceToString converts to a trimmed string value
func (c *TypeCoercer) coerceToString(strVal string) table.Value {
	strVal = strings.TrimSpace(strVal)
	if c.config.NormalizeStrings {
		strVal = normalizeString(strVal)
	}
	return table.Str(strVal)
}

// tryParseNumeric attempts to parse as numeric with strict rules.
// Handles parentheses for negatives, European decimals and currency symbols.
func (c *TypeCoercer) tryParseNumeric(strVal string) (table.Value, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return table.Value{}, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)
	cleanVal = strings.TrimSuffix(cleanVal, "%")

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 or 1 234,56 when the comma is last; otherwise 1,234.56
		commaIdx := strings.LastIndex(cleanVal, ",")
		if commaIdx > strings.LastIndex(cleanVal, ".") {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	case hasComma:
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return table.Value{}, false
	}
	return table.Num(val), true
}

// tryParseBoolean accepts only true/false spellings; 0/1 stay numeric
func (c *TypeCoercer) tryParseBoolean(strVal string) (table.Value, bool) {
	switch strings.ToLower(strings.TrimSpace(strVal)) {
	case "true":
		return table.Bool(true), true
	case "false":
		return table.Bool(false), true
	}
	return table.Value{}, false
}

var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	"01/02/2006 15:04",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// tryParseTimestamp attempts to parse as timestamp with multiple formats
func (c *TypeCoercer) tryParseTimestamp(strVal string) (table.Value, bool) {
	s := strings.TrimSpace(strVal)
	if s == "" {
		return table.Value{}, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return table.Time(t), true
		}
	}
	return table.Value{}, false
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeString collapses whitespace and drops control characters
func normalizeString(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// determineRecommendedKind chooses the most restrictive kind that meets its threshold
func (c *TypeCoercer) determineRecommendedKind(analysis TypeAnalysis) table.Kind {
	if analysis.ValidCount == 0 {
		return table.KindUnknown
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return table.KindNumeric
	}
	if analysis.BooleanRatio >= c.config.BooleanThreshold {
		return table.KindBoolean
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return table.KindDatetime
	}
	return table.KindText
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int        `json:"total_count"`
	ValidCount      int        `json:"valid_count"`
	NumericCount    int        `json:"numeric_count"`
	BooleanCount    int        `json:"boolean_count"`
	TimestampCount  int        `json:"timestamp_count"`
	NumericRatio    float64    `json:"numeric_ratio"`
	BooleanRatio    float64    `json:"boolean_ratio"`
	TimestampRatio  float64    `json:"timestamp_ratio"`
	RecommendedKind table.Kind `json:"recommended_kind"`
}
