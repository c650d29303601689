package extraction

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pigfarm/receipt-capture/internal/expense"
	"github.com/pigfarm/receipt-capture/internal/imaging"
)

// Keys of an extraction result record
const (
	KeyExpenseType = "expense-type"
	KeyDate        = "date"
	KeyTotal       = "total"
	KeyExpenseName = "expense-name"
)

// Result is the loosely typed record returned by an extraction service.
// No key is guaranteed to be present and values may be of any JSON type.
type Result map[string]any

// Extractor turns a receipt image into a Result
type Extractor interface {
	// Extract submits one image and returns the raw result
	Extract(ctx context.Context, image *imaging.Asset) (Result, error)
	// Close releases resources held by the extractor
	Close() error
}

// text returns the value at key when it is a string, "" otherwise
func (r Result) text(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// total parses the total, which may be a string with or without "$" or a JSON number
func (r Result) total() decimal.NullDecimal {
	switch v := r[KeyTotal].(type) {
	case string:
		return expense.ParseTotal(v)
	case json.Number:
		return expense.ParseTotal(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
	case int:
		return decimal.NullDecimal{Decimal: decimal.NewFromInt(int64(v)), Valid: true}
	}
	return decimal.NullDecimal{}
}

// present reports whether key holds a non-blank value
func (r Result) present(key string) bool {
	switch v := r[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	}
	return true
}
