// Package dates turns the loosely formatted dates found in contracts into YYYY-MM-DD.
//
// The rules are fixed heuristics without locale awareness: a 4-digit first component means
// year-month-day, anything else is read month-day-year, and 2-digit years below 50 land in
// the 2000s while 50 and above land in the 1900s. Day-month-year documents are therefore
// misread whenever the day is 12 or lower.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
)

// Layout is the canonical output format.
const Layout = "2006-01-02"

// CenturyPivot splits 2-digit years: below it -> 20xx, at or above -> 19xx.
const CenturyPivot = 50

// Normalize converts a three-part numeric date separated by "/" or "-" into YYYY-MM-DD.
// Any malformed input returns an error wrapping common.ErrDateNormalization.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fail(raw, "empty")
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 || strings.Count(s, "/")+strings.Count(s, "-") != 2 {
		return "", fail(raw, "expected three components")
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || !isDigits(p) {
			return "", fail(raw, "non-numeric component "+strconv.Quote(p))
		}
		nums[i] = n
	}

	var year, month, day int
	if len(parts[0]) == 4 {
		year, month, day = nums[0], nums[1], nums[2]
	} else {
		month, day, year = nums[0], nums[1], nums[2]
		switch len(parts[2]) {
		case 2:
			year = expandYear(year)
		case 4:
		default:
			return "", fail(raw, "year must have 2 or 4 digits")
		}
	}

	if month < 1 || month > 12 {
		return "", fail(raw, "month out of range")
	}
	if day < 1 || day > 31 {
		return "", fail(raw, "day out of range")
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

// Parse parses a normalized date. It only returns an error for strings that did not
// come from Normalize or that name a day the month does not have (e.g. 2023-02-31).
func Parse(normalized string) (time.Time, error) {
	t, err := time.Parse(Layout, normalized)
	if err != nil {
		return time.Time{}, common.WrapError(common.ErrDateNormalization, err.Error())
	}
	return t, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func expandYear(y int) int {
	if y < CenturyPivot {
		return 2000 + y
	}
	return 1900 + y
}

func fail(raw, reason string) error {
	return fmt.Errorf("%w: %q: %s", common.ErrDateNormalization, raw, reason)
}
