package expense

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigfarm/receipt-capture/internal/apperror"
)

// Draft is the editable, not yet persisted expense.
// Total is unset (Valid == false) until a finite number is known.
type Draft struct {
	Type  string
	Date  string
	Total decimal.NullDecimal
	Name  string
}

// Record is the persistence service's expense payload
type Record struct {
	ExpenseType  string  `json:"expenseType"`
	ExpenseDate  string  `json:"expenseDate"`
	ExpenseTotal float64 `json:"expenseTotal"`
	ExpenseName  string  `json:"expenseName"`
}

// Expense is a stored record as echoed back by the persistence service
type Expense struct {
	ID string `json:"id,omitempty"`
	Record
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

var groupedAmount = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseTotal parses a user or extraction supplied amount.
// A single leading "$" and thousands separators are accepted. Any other
// comma, or anything that is not a finite float64, yields an unset total.
func ParseTotal(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if groupedAmount.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	if s == "" || strings.Contains(s, ",") {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !finite(d) {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func finite(d decimal.Decimal) bool {
	f := d.InexactFloat64()
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// SetTotal replaces the total with the parsed value of raw
func (d *Draft) SetTotal(raw string) {
	d.Total = ParseTotal(raw)
}

// TotalString renders the total for display, "" when unset
func (d Draft) TotalString() string {
	if !d.Total.Valid {
		return ""
	}
	return d.Total.Decimal.StringFixed(2)
}

// Empty reports whether every field is at its default
func (d Draft) Empty() bool {
	return d.Type == "" && d.Date == "" && !d.Total.Valid && d.Name == ""
}

// Validate checks that all four fields are present
func (d Draft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(d.Date) == "" {
		missing = append(missing, "date")
	}
	if !d.Total.Valid {
		missing = append(missing, "total")
	}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return apperror.Validation(fmt.Sprintf("missing required expense fields: %s", strings.Join(missing, ", ")))
	}
	if !finite(d.Total.Decimal) {
		return apperror.Validation("total must be a finite number")
	}
	return nil
}

// Record converts a validated draft to the wire payload
func (d Draft) Record() (Record, error) {
	if err := d.Validate(); err != nil {
		return Record{}, err
	}
	return Record{
		ExpenseType:  strings.TrimSpace(d.Type),
		ExpenseDate:  strings.TrimSpace(d.Date),
		ExpenseTotal: d.Total.Decimal.InexactFloat64(),
		ExpenseName:  strings.TrimSpace(d.Name),
	}, nil
}

func (d Draft) String() string {
	total := d.TotalString()
	if total == "" {
		total = "<unset>"
	}
	return fmt.Sprintf("type=%q date=%q total=%s name=%q", d.Type, d.Date, total, d.Name)
}
