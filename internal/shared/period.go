package shared

import (
	"fmt"
	"time"
)

// Period identifies one billing month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod builds a Period from plain year/month integers.
func NewPeriod(year, month int) Period {
	return Period{Year: year, Month: time.Month(month)}
}

// Valid reports whether the period denotes a real calendar month.
func (p Period) Valid() bool {
	return p.Year >= 1900 && p.Year <= 2999 && p.Month >= time.January && p.Month <= time.December
}

// Start returns the first day of the period month at midnight UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// DueDate returns the given day of the period month, clamped to the
// month length so a due day of 31 stays inside February.
func (p Period) DueDate(day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := p.End().Day(); day > last {
		day = last
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
