/*
balance.go - Read-time balance aggregation

PURPOSE:
  Produces the {entitlement, booked, requested, remaining} snapshot for a
  staff member and year. The snapshot is never stored: it is recomputed
  from the entitlement record and booking rows on every read, so it can
  never drift from its inputs. There is no cache-invalidation problem
  because there is no cache.

  The deliberate tradeoff is a full scan of the member's requests for the
  year per read. Request counts per person per year are in the tens, so
  the scan is cheap.

ATTRIBUTION:
  A request belongs to the year its start date falls in. Booked sums
  approved requests, requested sums pending ones, and
  remaining = max(0, entitlement - booked).
*/
package holiday

import (
	"context"
)

// BalanceSnapshot is derived, response-only data. Never persisted.
type BalanceSnapshot struct {
	StaffID     StaffID
	Year        int
	Unit        Unit
	Entitlement Amount
	Booked      Amount
	Requested   Amount
	Remaining   Amount
}

type BalanceService struct {
	Store        Store
	Entitlements *EntitlementService
	Roles        RoleResolver
}

// Snapshot computes the live balance for (staff, year). The entitlement
// record is created lazily on first access; its override, when present,
// supersedes the calculated value.
func (s *BalanceService) Snapshot(ctx context.Context, staffID StaffID, year int) (*BalanceSnapshot, error) {
	role, err := s.Roles.Resolve(ctx, staffID)
	if err != nil {
		return nil, err
	}
	unit := role.UnitFor()

	rec, err := s.Entitlements.Ensure(ctx, staffID, year)
	if err != nil {
		return nil, err
	}

	bookings, err := s.Store.BookingsForStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}

	booked := ZeroAmount(unit)
	requested := ZeroAmount(unit)
	for _, b := range bookings {
		if b.Range.Start.Year() != year {
			continue
		}
		switch b.Status {
		case StatusApproved:
			booked.Value = booked.Value.Add(b.Amount.Value)
		case StatusPending:
			requested.Value = requested.Value.Add(b.Amount.Value)
		}
	}

	entitlement := Amount{Value: rec.Effective(unit), Unit: unit}
	remaining := entitlement.Sub(booked).FloorZero()

	return &BalanceSnapshot{
		StaffID:     staffID,
		Year:        year,
		Unit:        unit,
		Entitlement: entitlement,
		Booked:      booked,
		Requested:   requested,
		Remaining:   remaining,
	}, nil
}
