package core

import (
	"fmt"
	"time"
)

// PeriodLayout is the calendar-month key used by every report.
const PeriodLayout = "2006-01"

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// PeriodKey returns the YYYY-MM key of t.
func PeriodKey(t time.Time) string {
	return t.Format(PeriodLayout)
}

// ParsePeriod parses a YYYY-MM key into the first day of that month (UTC).
func ParsePeriod(key string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q: %w", key, err)
	}
	return t, nil
}

// MonthStart truncates t to the first day of its month at midnight UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a month start by n months.
func AddMonths(monthStart time.Time, n int) time.Time {
	return time.Date(monthStart.Year(), monthStart.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// MonthName returns the Portuguese name of a month.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// PeriodLabel renders a YYYY-MM key as "Março/2025"; unknown keys are returned unchanged.
func PeriodLabel(key string) string {
	t, err := ParsePeriod(key)
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s/%d", MonthName(t.Month()), t.Year())
}
