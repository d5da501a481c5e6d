package helpers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Helper function to match header titles
func MatchHeader(cellValue string, patterns []string) bool {
	normalizedValue := NormalizeString(cellValue)
	for _, pattern := range patterns {
		matched, _ := regexp.MatchString(pattern, normalizedValue)
		if matched {
			return true
		}
	}
	return false
}

// Helper function to normalize strings
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseNumber parses page text such as "1,23,456.50" into a number.
// ok is false when the text is blank or not numeric.
func ParseNumber(text string) (value float64, ok bool) {
	cleanStr := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if cleanStr == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleanStr, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToFloat coerces a cell value to float64. Blank or unparseable input is 0,
// never an error: every statement cell may legitimately be empty.
func ToFloat(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0.0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case *string:
		if v == nil {
			return 0.0
		}
		return ToFloat(*v)
	case string:
		f, ok := ParseNumber(v)
		if !ok && strings.TrimSpace(v) != "" {
			zap.L().Debug("Error converting to float64", zap.String("value", v))
		}
		return f
	}

	// If value is not a string, log the type mismatch
	zap.L().Debug("Error converting to float64: unsupported type", zap.Any("value", value))
	return 0.0
}

// NumberPtr returns a pointer to the parsed number, or nil when text holds none
func NumberPtr(text string) *float64 {
	f, ok := ParseNumber(text)
	if !ok {
		return nil
	}
	return &f
}

// Round rounds half away from zero to the given number of decimal places
func Round(value float64, places int32) float64 {
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}

// GetMarketCapCategory buckets a market cap given in crore
func GetMarketCapCategory(marketCap float64) string {
	if marketCap >= 20000 {
		return "Large Cap"
	} else if marketCap >= 5000 {
		return "Mid Cap"
	} else if marketCap > 0 {
		return "Small Cap"
	}
	return "Unknown Category"
}

// FormatINR renders an amount in rupees, e.g. "₹1,234.50"
func FormatINR(amount float64) string {
	return money.NewFromFloat(amount, money.INR).Display()
}
