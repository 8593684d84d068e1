/*
Package holiday provides the entitlement and booking balance engine for the
staff operations portal.

PURPOSE:
  This package contains the domain types and algorithms that turn a staff
  member's weekly working pattern into an annual leave entitlement, track
  booking requests through an approval lifecycle, detect double-bookings,
  and derive a live remaining balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a unit (hours or sessions)
  - Unit: How entitlement is denominated; clinical staff book in sessions,
    everyone else in hours
  - Staff/Site/Actor IDs: Type-safe identifiers for foreign references

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing staff/site/actor IDs
  3. Derivation: Balances are always computed fresh, never stored

SEE ALSO:
  - pattern.go: Weekly working patterns
  - entitlement.go: Annual entitlement derivation
  - booking.go: Request lifecycle state machine
  - balance.go: Read-time balance aggregation
*/
package holiday

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Decimal quantity with a unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours    Unit = "hours"
	UnitSessions Unit = "sessions"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func ZeroAmount(unit Unit) Amount {
	return Amount{Value: decimal.Zero, Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) FloorZero() Amount {
	if a.Value.IsNegative() {
		return Amount{Value: decimal.Zero, Unit: a.Unit}
	}
	return a
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StaffID string
type SiteID string
type ActorID string
type RequestID string

// =============================================================================
// ROLE CLASSIFICATION
// =============================================================================

// RoleClass determines how a staff member's entitlement is denominated.
// Clinical roles work in sessions (half-day clinical units); all others
// work in hours. The mapping from a concrete role title to a class is the
// identity service's problem - this engine only sees the class.
type RoleClass string

const (
	RoleClinical    RoleClass = "clinical"
	RoleNonClinical RoleClass = "non_clinical"
)

// UnitFor returns the entitlement unit for a role class.
func (rc RoleClass) UnitFor() Unit {
	if rc == RoleClinical {
		return UnitSessions
	}
	return UnitHours
}
