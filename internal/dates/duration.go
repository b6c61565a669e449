package dates

import (
	"fmt"
	"strings"
	"time"
)

// Unit is a contract term unit.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// ParseUnit accepts singular or plural unit words, case-insensitively.
func ParseUnit(s string) (Unit, bool) {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	switch Unit(u) {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return Unit(u), true
	}
	return "", false
}

// AddTerm adds n units to a normalized start date using calendar arithmetic and returns
// the normalized end date. Month and year additions clamp to the last day of the target
// month instead of overflowing (2024-01-31 + 1 month = 2024-02-29).
func AddTerm(start string, n int, unit Unit) (string, error) {
	t, err := Parse(start)
	if err != nil {
		return "", err
	}
	var end time.Time
	switch unit {
	case UnitDay:
		end = t.AddDate(0, 0, n)
	case UnitWeek:
		end = t.AddDate(0, 0, 7*n)
	case UnitMonth:
		end = addMonths(t, n)
	case UnitYear:
		end = addMonths(t, 12*n)
	default:
		return "", fmt.Errorf("unknown term unit %q", unit)
	}
	return end.Format(Layout), nil
}

func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
