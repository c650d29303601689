package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pigfarm/receipt-capture/internal/expense"
)

// Normalizer maps extraction results onto expense drafts
type Normalizer struct {
	// NormalizeDates rewrites day/month/year dates to YYYY-MM-DD.
	// When false the date is passed through as returned.
	NormalizeDates bool
}

// Normalize builds a draft from r. It never fails: every field that is
// missing or unparseable falls back to its empty default.
func (n Normalizer) Normalize(r Result) expense.Draft {
	draft := expense.Draft{
		Type:  r.text(KeyExpenseType),
		Date:  r.text(KeyDate),
		Total: r.total(),
		Name:  r.text(KeyExpenseName),
	}
	if n.NormalizeDates && draft.Date != "" {
		if iso, err := NormalizeDate(draft.Date); err == nil {
			draft.Date = iso
		}
	}
	return draft
}

var dateSeparators = regexp.MustCompile(`[/.\-]`)

// NormalizeDate rewrites a day/month/year date split by "/", "." or "-" as
// YYYY-MM-DD. Two digit years are taken as 20xx. A date that already starts
// with a four digit year is read as year/month/day.
func NormalizeDate(s string) (string, error) {
	parts := dateSeparators.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return "", fmt.Errorf("date %q does not have three parts", s)
	}

	day, month, year := parts[0], parts[1], parts[2]
	if len(parts[0]) == 4 {
		year, month, day = parts[0], parts[1], parts[2]
	}
	if len(year) == 2 {
		year = "20" + year
	}

	if len(year) != 4 {
		return "", fmt.Errorf("invalid year in %q", s)
	}
	y, err := datePart(year, 4)
	if err != nil {
		return "", fmt.Errorf("parsing year of %q: %w", s, err)
	}
	m, err := datePart(month, 2)
	if err != nil || m < 1 || m > 12 {
		return "", fmt.Errorf("invalid month in %q", s)
	}
	d, err := datePart(day, 2)
	if err != nil || d < 1 || d > 31 {
		return "", fmt.Errorf("invalid day in %q", s)
	}

	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), nil
}

func datePart(s string, maxLen int) (int, error) {
	if s == "" || len(s) > maxLen {
		return 0, fmt.Errorf("bad length %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number %q", s)
		}
	}
	return strconv.Atoi(s)
}
