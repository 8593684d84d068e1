/*
store.go - Persistence interfaces for the holiday engine

PURPOSE:
  Defines the boundary between domain logic and the database. Different
  implementations back this with SQLite or in-memory storage.

ATOMICITY:
  TxStore.WithTx is the one concurrency-critical capability: "check no
  conflicting approved request, then approve" must be a single storage
  transaction, not two round trips with a window in between. Stores that
  implement TxStore get the atomic path; the booking service degrades to a
  plain check-then-write only when the store cannot do better.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (WAL mode)
  - store/memory: In-memory for tests and dev

SEE ALSO:
  - booking.go: Uses WithTx for approvals
  - store/sqlite/sqlite.go, store/memory/memory.go
*/
package holiday

import "context"

// Store handles persistence of patterns, entitlements, and bookings.
type Store interface {
	// SavePattern persists a new working pattern for the staff member,
	// marking any currently-active pattern superseded. Patterns are never
	// deleted; history informs past entitlement snapshots.
	SavePattern(ctx context.Context, p *WorkingPattern) error

	// ActivePattern returns the staff member's current (non-superseded)
	// pattern. Returns NotFoundError if none exists.
	ActivePattern(ctx context.Context, staffID StaffID) (*WorkingPattern, error)

	// GetEntitlement returns the record for (staff, year).
	// Returns NotFoundError if absent.
	GetEntitlement(ctx context.Context, staffID StaffID, year int) (*EntitlementRecord, error)

	// PutEntitlement inserts or replaces the record keyed on (staff, year).
	PutEntitlement(ctx context.Context, rec *EntitlementRecord) error

	// InsertBooking persists a new booking request.
	InsertBooking(ctx context.Context, b *BookingRequest) error

	// GetBooking returns a booking by ID. Returns NotFoundError if absent.
	GetBooking(ctx context.Context, id RequestID) (*BookingRequest, error)

	// UpdateBooking replaces the stored booking (status and decision
	// metadata are the only fields that legitimately change).
	UpdateBooking(ctx context.Context, b *BookingRequest) error

	// BookingsForStaff returns all of a staff member's bookings,
	// ordered by start date.
	BookingsForStaff(ctx context.Context, staffID StaffID) ([]BookingRequest, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction is rolled back and no writes apply.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// withTx runs fn transactionally when the store supports it, and directly
// otherwise.
func withTx(ctx context.Context, s Store, fn func(Store) error) error {
	if ts, ok := s.(TxStore); ok {
		return ts.WithTx(ctx, fn)
	}
	return fn(s)
}
