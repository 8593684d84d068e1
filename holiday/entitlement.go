/*
entitlement.go - Annual entitlement derivation

PURPOSE:
  Turns a weekly working pattern and a multiplier into a yearly leave
  entitlement. The calculation is a pure function; the service around it
  handles lazy per-year record creation and the override rule.

THE OVERRIDE RULE:
  An administrator can set an override value that supersedes the formulaic
  calculation entirely. The calculated values are still stored alongside it
  for audit and comparison, but balance math only ever sees the override.
  Once set, the override is sticky: recalculation is a no-op until the
  override is explicitly cleared.

NUMERIC SEMANTICS:
  Everything is decimal.Decimal. Fractional sessions (3.5) are fine. The
  engine never rounds; presentation rounding belongs to API consumers.

SEE ALSO:
  - pattern.go: Source of the weekly totals
  - balance.go: Consumes the effective entitlement
*/
package holiday

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITLEMENT RECORD - One per (staff, year)
// =============================================================================

// EntitlementRecord snapshots the working pattern and multiplier at
// calculation time. It is self-contained: later pattern edits do not
// retroactively change it unless a recalculation is requested.
type EntitlementRecord struct {
	StaffID StaffID
	Year    int

	// Snapshot of the working pattern at calculation time.
	WeeklyHours    decimal.Decimal
	WeeklySessions decimal.Decimal

	// Role- or contract-driven factor (e.g., weeks per year, bank holiday
	// pro-rating). Defaults to 1.
	Multiplier decimal.Decimal

	// Formulaic results, kept even when an override is set.
	CalculatedHours    decimal.Decimal
	CalculatedSessions decimal.Decimal

	// When set, supersedes the calculation for all balance math.
	Override *decimal.Decimal

	CalculatedAt time.Time
}

// Effective returns the entitlement value balance math must use: the
// override when present, otherwise the calculated value in the given unit.
func (r *EntitlementRecord) Effective(unit Unit) decimal.Decimal {
	if r.Override != nil {
		return *r.Override
	}
	if unit == UnitSessions {
		return r.CalculatedSessions
	}
	return r.CalculatedHours
}

// HasOverride reports whether an override is in force.
func (r *EntitlementRecord) HasOverride() bool { return r.Override != nil }

// =============================================================================
// CALCULATION - Pure function
// =============================================================================

// CalculateEntitlement derives the annual entitlement from weekly totals
// and a multiplier. Pure and idempotent: identical inputs yield identical
// outputs. A zero weekly total yields a zero entitlement - a valid state
// for staff without a pattern yet, not an error.
func CalculateEntitlement(weeklyHours, weeklySessions, multiplier decimal.Decimal) (hours, sessions decimal.Decimal) {
	return weeklyHours.Mul(multiplier), weeklySessions.Mul(multiplier)
}

// =============================================================================
// ENTITLEMENT SERVICE - Lazy records, recalculation, overrides
// =============================================================================

type EntitlementService struct {
	Store Store
	Roles RoleResolver
}

// Ensure returns the entitlement record for (staff, year), creating it
// from the active working pattern on first access. Exactly one record per
// pair: creation goes through the store's upsert keyed on (staff, year).
func (s *EntitlementService) Ensure(ctx context.Context, staffID StaffID, year int) (*EntitlementRecord, error) {
	rec, err := s.Store.GetEntitlement(ctx, staffID, year)
	if err == nil {
		return rec, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	return s.recalculate(ctx, staffID, year, decimal.NewFromInt(1))
}

// Recalculate refreshes the record from the current active pattern and the
// given multiplier. If an override is set, the stored record is returned
// unchanged - overrides are sticky until explicitly cleared.
func (s *EntitlementService) Recalculate(ctx context.Context, staffID StaffID, year int, multiplier decimal.Decimal) (*EntitlementRecord, error) {
	existing, err := s.Store.GetEntitlement(ctx, staffID, year)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.HasOverride() {
		return existing, nil
	}
	return s.recalculate(ctx, staffID, year, multiplier)
}

func (s *EntitlementService) recalculate(ctx context.Context, staffID StaffID, year int, multiplier decimal.Decimal) (*EntitlementRecord, error) {
	var weeklyHours, weeklySessions decimal.Decimal
	pattern, err := s.Store.ActivePattern(ctx, staffID)
	switch {
	case err == nil:
		weeklyHours = pattern.WeeklyHours
		weeklySessions = pattern.WeeklySessions
	case IsNotFound(err):
		// No pattern yet: zero entitlement, valid state.
		weeklyHours, weeklySessions = decimal.Zero, decimal.Zero
	default:
		return nil, fmt.Errorf("load pattern for %s: %w", staffID, err)
	}

	hours, sessions := CalculateEntitlement(weeklyHours, weeklySessions, multiplier)
	rec := &EntitlementRecord{
		StaffID:            staffID,
		Year:               year,
		WeeklyHours:        weeklyHours,
		WeeklySessions:     weeklySessions,
		Multiplier:         multiplier,
		CalculatedHours:    hours,
		CalculatedSessions: sessions,
		CalculatedAt:       time.Now().UTC(),
	}
	if err := s.Store.PutEntitlement(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetOverride pins the entitlement to an explicit value. The formulaic
// calculation already on the record is preserved for audit.
func (s *EntitlementService) SetOverride(ctx context.Context, staffID StaffID, year int, value decimal.Decimal) (*EntitlementRecord, error) {
	if value.IsNegative() {
		return nil, &ValidationError{Field: "override", Message: "override must not be negative"}
	}
	rec, err := s.Ensure(ctx, staffID, year)
	if err != nil {
		return nil, err
	}
	rec.Override = &value
	if err := s.Store.PutEntitlement(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ClearOverride removes the override and recalculates from the current
// active pattern.
func (s *EntitlementService) ClearOverride(ctx context.Context, staffID StaffID, year int) (*EntitlementRecord, error) {
	rec, err := s.Store.GetEntitlement(ctx, staffID, year)
	if err != nil {
		return nil, err
	}
	// recalculate writes a fresh record without the override.
	return s.recalculate(ctx, staffID, year, rec.Multiplier)
}
