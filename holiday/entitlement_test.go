package holiday_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/holiday-engine/holiday"
	"github.com/warp/holiday-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newEntitlementService(roles holiday.StaticRoles) (*holiday.EntitlementService, *memory.Store) {
	store := memory.New()
	return &holiday.EntitlementService{Store: store, Roles: roles}, store
}

func fullTimePattern(staffID holiday.StaffID, hoursPerDay float64) *holiday.WorkingPattern {
	p := &holiday.WorkingPattern{
		ID:        "pat-" + string(staffID),
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

// =============================================================================
// CALCULATION TESTS
// =============================================================================

func TestCalculateEntitlement_ZeroPattern_ZeroEntitlement(t *testing.T) {
	// GIVEN: No working pattern (weekly totals of zero)
	// WHEN: Calculating the entitlement
	// THEN: Result is zero - a valid state, not an error

	hours, sessions := holiday.CalculateEntitlement(decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	assert.True(t, hours.IsZero())
	assert.True(t, sessions.IsZero())
}

func TestCalculateEntitlement_FullTimeWeek(t *testing.T) {
	// GIVEN: 7.5 hours Mon-Fri (37.5/week), multiplier 1.0
	// WHEN: Calculating
	// THEN: Weekly total stage yields 37.5

	p := fullTimePattern("emp-1", 7.5)
	require.Equal(t, "37.5", p.WeeklyHours.String())

	hours, _ := holiday.CalculateEntitlement(p.WeeklyHours, p.WeeklySessions, decimal.NewFromInt(1))
	assert.Equal(t, "37.5", hours.String())
}

func TestCalculateEntitlement_MultiplierApplied(t *testing.T) {
	// GIVEN: 40 hours/week and a weeks-per-year multiplier of 5.6
	// WHEN: Calculating
	// THEN: calculated = weekly_total x multiplier, exact decimal

	hours, _ := holiday.CalculateEntitlement(
		decimal.NewFromInt(40), decimal.Zero, holiday.MustParseDecimal("5.6"))
	assert.True(t, hours.Equal(decimal.NewFromInt(224)), "got %s", hours)
}

func TestCalculateEntitlement_Idempotent(t *testing.T) {
	// GIVEN: Identical inputs
	// WHEN: Calculating twice
	// THEN: Byte-identical output both times

	weekly := holiday.MustParseDecimal("32.25")
	mult := holiday.MustParseDecimal("1.2")

	h1, s1 := holiday.CalculateEntitlement(weekly, weekly, mult)
	h2, s2 := holiday.CalculateEntitlement(weekly, weekly, mult)
	assert.Equal(t, h1.String(), h2.String())
	assert.Equal(t, s1.String(), s2.String())
}

func TestCalculateEntitlement_FractionalSessions(t *testing.T) {
	// 3.5 sessions/week stays exact through the multiplier.
	_, sessions := holiday.CalculateEntitlement(
		decimal.Zero, holiday.MustParseDecimal("3.5"), holiday.MustParseDecimal("2"))
	assert.True(t, sessions.Equal(holiday.MustParseDecimal("7")), "got %s", sessions)
}

// =============================================================================
// SERVICE TESTS - lazy creation, recalculation, overrides
// =============================================================================

func TestEnsure_CreatesLazilyFromActivePattern(t *testing.T) {
	// GIVEN: A staff member with a 37.5h pattern and no entitlement record
	// WHEN: Ensuring the record for 2025
	// THEN: A record is created from the pattern snapshot with multiplier 1

	svc, store := newEntitlementService(holiday.StaticRoles{"emp-1": holiday.RoleNonClinical})
	ctx := context.Background()
	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 7.5)))

	rec, err := svc.Ensure(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, 2025, rec.Year)
	assert.Equal(t, "37.5", rec.WeeklyHours.String())
	assert.Equal(t, "37.5", rec.CalculatedHours.String())
	assert.Equal(t, "1", rec.Multiplier.String())
	assert.False(t, rec.HasOverride())

	// Second Ensure returns the stored record, not a new calculation.
	again, err := svc.Ensure(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, rec.CalculatedAt.Format(time.RFC3339), again.CalculatedAt.Format(time.RFC3339))
}

func TestEnsure_NoPattern_ZeroEntitlement(t *testing.T) {
	// GIVEN: A staff member without a working pattern yet
	// WHEN: Ensuring the record
	// THEN: Zero entitlement, no error

	svc, _ := newEntitlementService(holiday.StaticRoles{"emp-new": holiday.RoleNonClinical})

	rec, err := svc.Ensure(context.Background(), "emp-new", 2025)
	require.NoError(t, err)
	assert.True(t, rec.CalculatedHours.IsZero())
	assert.True(t, rec.CalculatedSessions.IsZero())
}

func TestRecalculate_PatternChange_RefreshesSnapshot(t *testing.T) {
	// GIVEN: An entitlement computed from a 37.5h pattern
	// WHEN: The pattern changes to 30h and recalculation runs
	// THEN: The record reflects the new weekly total

	svc, store := newEntitlementService(holiday.StaticRoles{"emp-1": holiday.RoleNonClinical})
	ctx := context.Background()
	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 7.5)))
	_, err := svc.Ensure(ctx, "emp-1", 2025)
	require.NoError(t, err)

	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 6)))
	rec, err := svc.Recalculate(ctx, "emp-1", 2025, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "30", rec.CalculatedHours.String())
}

func TestSetOverride_SupersedesCalculation(t *testing.T) {
	// GIVEN: A calculated entitlement of 37.5 hours
	// WHEN: An admin sets an override of 200
	// THEN: Effective() returns the override; the calculation is preserved
	//       for audit

	svc, store := newEntitlementService(holiday.StaticRoles{"emp-1": holiday.RoleNonClinical})
	ctx := context.Background()
	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 7.5)))

	rec, err := svc.SetOverride(ctx, "emp-1", 2025, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, "200", rec.Effective(holiday.UnitHours).String())
	assert.Equal(t, "37.5", rec.CalculatedHours.String(), "formulaic value kept for audit")
}

func TestRecalculate_OverrideSticky(t *testing.T) {
	// GIVEN: A record with an override
	// WHEN: Recalculation runs after a pattern change
	// THEN: The record is unchanged - overrides are sticky until cleared

	svc, store := newEntitlementService(holiday.StaticRoles{"emp-1": holiday.RoleNonClinical})
	ctx := context.Background()
	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 7.5)))
	_, err := svc.SetOverride(ctx, "emp-1", 2025, decimal.NewFromInt(200))
	require.NoError(t, err)

	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 4)))
	rec, err := svc.Recalculate(ctx, "emp-1", 2025, decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.True(t, rec.HasOverride())
	assert.Equal(t, "200", rec.Effective(holiday.UnitHours).String())
	assert.Equal(t, "37.5", rec.CalculatedHours.String(), "calculation untouched while override in force")
}

func TestClearOverride_Recalculates(t *testing.T) {
	// GIVEN: A record pinned to 200 while the pattern moved to 30h/week
	// WHEN: The override is cleared
	// THEN: The record recalculates from the current pattern

	svc, store := newEntitlementService(holiday.StaticRoles{"emp-1": holiday.RoleNonClinical})
	ctx := context.Background()
	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 7.5)))
	_, err := svc.SetOverride(ctx, "emp-1", 2025, decimal.NewFromInt(200))
	require.NoError(t, err)
	require.NoError(t, store.SavePattern(ctx, fullTimePattern("emp-1", 6)))

	rec, err := svc.ClearOverride(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.False(t, rec.HasOverride())
	assert.Equal(t, "30", rec.Effective(holiday.UnitHours).String())
}

func TestSetOverride_NegativeRejected(t *testing.T) {
	svc, _ := newEntitlementService(holiday.StaticRoles{"emp-1": holiday.RoleNonClinical})

	_, err := svc.SetOverride(context.Background(), "emp-1", 2025, decimal.NewFromInt(-5))
	require.Error(t, err)
	assert.True(t, holiday.IsClientError(err))
}
