package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/holiday-engine/holiday"
	"github.com/warp/holiday-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testPattern(staffID holiday.StaffID, id string, hoursPerDay float64) *holiday.WorkingPattern {
	p := &holiday.WorkingPattern{
		ID:        id,
		StaffID:   staffID,
		SiteID:    "site-1",
		CreatedAt: time.Now().UTC(),
	}
	for i := 0; i < holiday.PatternDays; i++ {
		p.Hours[i] = decimal.NewFromFloat(hoursPerDay)
	}
	p.Normalize()
	return p
}

func testBooking(id string, staffID holiday.StaffID, start, end holiday.Date) *holiday.BookingRequest {
	return &holiday.BookingRequest{
		ID:        holiday.RequestID(id),
		StaffID:   staffID,
		SiteID:    "site-1",
		Range:     holiday.NewDateRange(start, end),
		Amount:    holiday.Amount{Value: decimal.NewFromFloat(15), Unit: holiday.UnitHours},
		Status:    holiday.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// WORKING PATTERNS
// =============================================================================

func TestSavePattern_SupersedesNotDeletes(t *testing.T) {
	// GIVEN: An active pattern
	// WHEN: A new pattern is saved for the same staff member
	// THEN: The new one is active; the old row is superseded, not gone

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePattern(ctx, testPattern("emp-1", "pat-1", 7.5)))
	require.NoError(t, store.SavePattern(ctx, testPattern("emp-1", "pat-2", 6)))

	active, err := store.ActivePattern(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "pat-2", active.ID)
	assert.Equal(t, "30", active.WeeklyHours.String())
}

func TestActivePattern_Missing_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ActivePattern(context.Background(), "nobody")
	assert.True(t, holiday.IsNotFound(err))
}

// =============================================================================
// ENTITLEMENTS
// =============================================================================

func TestPutEntitlement_OneRowPerStaffYear(t *testing.T) {
	// GIVEN: A record for (emp-1, 2025)
	// WHEN: Writing again for the same key
	// THEN: The row is replaced, never duplicated

	store := newTestStore(t)
	ctx := context.Background()

	rec := &holiday.EntitlementRecord{
		StaffID:            "emp-1",
		Year:               2025,
		WeeklyHours:        decimal.NewFromFloat(37.5),
		WeeklySessions:     decimal.Zero,
		Multiplier:         decimal.NewFromInt(1),
		CalculatedHours:    decimal.NewFromFloat(37.5),
		CalculatedSessions: decimal.Zero,
		CalculatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.PutEntitlement(ctx, rec))

	override := decimal.NewFromInt(200)
	rec.Override = &override
	require.NoError(t, store.PutEntitlement(ctx, rec))

	got, err := store.GetEntitlement(ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.NotNil(t, got.Override)
	assert.Equal(t, "200", got.Override.String())
	assert.Equal(t, "37.5", got.CalculatedHours.String())
}

func TestGetEntitlement_Missing_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEntitlement(context.Background(), "emp-1", 2025)
	assert.True(t, holiday.IsNotFound(err))
}

// =============================================================================
// BOOKINGS
// =============================================================================

func TestBooking_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := testBooking("req-1", "emp-1",
		holiday.NewDate(2025, time.March, 10), holiday.NewDate(2025, time.March, 12))
	require.NoError(t, store.InsertBooking(ctx, b))

	got, err := store.GetBooking(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, holiday.StatusPending, got.Status)
	assert.Equal(t, "2025-03-10", got.Range.Start.String())
	assert.Equal(t, "2025-03-12", got.Range.End.String())
	assert.Equal(t, "15", got.Amount.Value.String())
	assert.Nil(t, got.DecidedAt)

	now := time.Now().UTC().Truncate(time.Second)
	actor := holiday.ActorID("mgr-9")
	got.Status = holiday.StatusApproved
	got.DecidedAt = &now
	got.DecidedBy = &actor
	require.NoError(t, store.UpdateBooking(ctx, got))

	updated, err := store.GetBooking(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, holiday.StatusApproved, updated.Status)
	require.NotNil(t, updated.DecidedBy)
	assert.Equal(t, actor, *updated.DecidedBy)
}

func TestBookingsForStaff_OrderedByStartDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertBooking(ctx, testBooking("req-b", "emp-1",
		holiday.NewDate(2025, time.June, 1), holiday.NewDate(2025, time.June, 2))))
	require.NoError(t, store.InsertBooking(ctx, testBooking("req-a", "emp-1",
		holiday.NewDate(2025, time.March, 1), holiday.NewDate(2025, time.March, 2))))
	require.NoError(t, store.InsertBooking(ctx, testBooking("req-other", "emp-2",
		holiday.NewDate(2025, time.April, 1), holiday.NewDate(2025, time.April, 2))))

	got, err := store.BookingsForStaff(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, holiday.RequestID("req-a"), got[0].ID)
	assert.Equal(t, holiday.RequestID("req-b"), got[1].ID)
}

func TestUpdateBooking_Missing_NotFound(t *testing.T) {
	store := newTestStore(t)

	b := testBooking("ghost", "emp-1",
		holiday.NewDate(2025, time.March, 10), holiday.NewDate(2025, time.March, 12))
	err := store.UpdateBooking(context.Background(), b)
	assert.True(t, holiday.IsNotFound(err))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that writes a booking then fails
	// WHEN: The transaction returns an error
	// THEN: The booking is not visible afterwards

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s holiday.Store) error {
		b := testBooking("req-tx", "emp-1",
			holiday.NewDate(2025, time.March, 10), holiday.NewDate(2025, time.March, 12))
		if err := s.InsertBooking(ctx, b); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetBooking(ctx, "req-tx")
	assert.True(t, holiday.IsNotFound(err))
}

func TestWithTx_CommitOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s holiday.Store) error {
		return s.InsertBooking(ctx, testBooking("req-ok", "emp-1",
			holiday.NewDate(2025, time.March, 10), holiday.NewDate(2025, time.March, 12)))
	})
	require.NoError(t, err)

	got, err := store.GetBooking(ctx, "req-ok")
	require.NoError(t, err)
	assert.Equal(t, holiday.RequestID("req-ok"), got.ID)
}
