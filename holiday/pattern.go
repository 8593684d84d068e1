/*
pattern.go - Weekly working patterns

PURPOSE:
  Holds, per staff member, the hours and sessions worked on each weekday.
  The weekly totals are denormalized onto the record so entitlement
  computation never re-sums per-day values at read time.

SUPERSEDE, NOT DELETE:
  When a staff member's pattern changes mid-year, the old record is marked
  superseded and a new one becomes active. Historical entitlement records
  snapshot the pattern at calculation time, so they never retroactively
  change when the pattern does.

SEE ALSO:
  - entitlement.go: Consumes the weekly totals
  - booking.go: Uses per-day values to derive requested amounts
*/
package holiday

import (
	"time"

	"github.com/shopspring/decimal"
)

// Weekdays covered by a working pattern, Monday first. Weekend work is out
// of scope for the portal; a weekend day always contributes zero.
const PatternDays = 5

// WorkingPattern describes one staff member's working week.
type WorkingPattern struct {
	ID      string
	StaffID StaffID
	SiteID  SiteID

	// Per-weekday values, index 0 = Monday .. 4 = Friday.
	Hours    [PatternDays]decimal.Decimal
	Sessions [PatternDays]decimal.Decimal

	// Denormalized weekly totals, maintained by Normalize.
	WeeklyHours    decimal.Decimal
	WeeklySessions decimal.Decimal

	CreatedAt    time.Time
	SupersededAt *time.Time
}

// Normalize recomputes the denormalized weekly totals from the per-day
// values. Call after any mutation and before persisting.
func (p *WorkingPattern) Normalize() {
	p.WeeklyHours = decimal.Zero
	p.WeeklySessions = decimal.Zero
	for i := 0; i < PatternDays; i++ {
		p.WeeklyHours = p.WeeklyHours.Add(p.Hours[i])
		p.WeeklySessions = p.WeeklySessions.Add(p.Sessions[i])
	}
}

// Validate rejects negative day values.
func (p *WorkingPattern) Validate() error {
	for i := 0; i < PatternDays; i++ {
		if p.Hours[i].IsNegative() {
			return &ValidationError{Field: weekdayName(i) + "_hours", Message: "day value must not be negative"}
		}
		if p.Sessions[i].IsNegative() {
			return &ValidationError{Field: weekdayName(i) + "_sessions", Message: "day value must not be negative"}
		}
	}
	return nil
}

// WeeklyTotal returns the weekly total in the given unit.
func (p *WorkingPattern) WeeklyTotal(unit Unit) decimal.Decimal {
	if unit == UnitSessions {
		return p.WeeklySessions
	}
	return p.WeeklyHours
}

// AmountOn returns the amount of work the pattern assigns to a calendar
// date. Weekend dates and weekdays with no configured work return zero;
// that is how a booked day the member doesn't work contributes nothing to
// a request's amount.
func (p *WorkingPattern) AmountOn(d Date, unit Unit) decimal.Decimal {
	idx := patternIndex(d.Weekday())
	if idx < 0 {
		return decimal.Zero
	}
	if unit == UnitSessions {
		return p.Sessions[idx]
	}
	return p.Hours[idx]
}

// IsSuperseded reports whether this pattern has been replaced.
func (p *WorkingPattern) IsSuperseded() bool { return p.SupersededAt != nil }

func patternIndex(wd time.Weekday) int {
	switch wd {
	case time.Monday:
		return 0
	case time.Tuesday:
		return 1
	case time.Wednesday:
		return 2
	case time.Thursday:
		return 3
	case time.Friday:
		return 4
	default:
		return -1
	}
}

func weekdayName(i int) string {
	return [...]string{"monday", "tuesday", "wednesday", "thursday", "friday"}[i]
}
