/*
demo.go - Demo data seeding

PURPOSE:
  Loads a small, recognizable dataset so the API can be exercised without
  the portal's identity service: one clinical staff member booking in
  sessions, one non-clinical booking in hours, with patterns and a few
  requests in different lifecycle states.
*/
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/holiday-engine/holiday"
)

// SeedDemo loads the demo dataset. Disabled (404) unless the handler was
// built with a DemoRoles map to register the demo staff in.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if h.DemoRoles == nil {
		writeError(w, http.StatusNotFound, "Demo seeding disabled", nil)
		return
	}
	ctx := r.Context()
	year := time.Now().UTC().Year()

	h.DemoRoles["gp-sarah"] = holiday.RoleClinical
	h.DemoRoles["recep-tom"] = holiday.RoleNonClinical

	// Sarah: GP, 2 sessions Mon-Thu.
	sarah := &holiday.WorkingPattern{
		ID:        uuid.NewString(),
		StaffID:   "gp-sarah",
		SiteID:    "site-main",
		CreatedAt: time.Now().UTC(),
	}
	for i := 0; i < 4; i++ {
		sarah.Sessions[i] = decimal.NewFromInt(2)
	}
	sarah.Normalize()

	// Tom: receptionist, 7.5 hours Mon-Fri.
	tom := &holiday.WorkingPattern{
		ID:        uuid.NewString(),
		StaffID:   "recep-tom",
		SiteID:    "site-main",
		CreatedAt: time.Now().UTC(),
	}
	for i := 0; i < holiday.PatternDays; i++ {
		tom.Hours[i] = decimal.NewFromFloat(7.5)
	}
	tom.Normalize()

	for _, p := range []*holiday.WorkingPattern{sarah, tom} {
		if err := h.Store.SavePattern(ctx, p); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed patterns", err)
			return
		}
		if _, err := h.Entitlements.Ensure(ctx, p.StaffID, year); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed entitlements", err)
			return
		}
	}

	// A booked week for Tom and a pending long weekend for Sarah.
	tomWeek := holiday.NewDateRange(
		holiday.NewDate(year, time.June, 1),
		holiday.NewDate(year, time.June, 5),
	)
	booking, err := h.Bookings.Create(ctx, "recep-tom", "site-main", tomWeek)
	if err == nil {
		_, err = h.Bookings.Transition(ctx, booking.ID, holiday.StatusApproved, "demo-admin")
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed bookings", err)
		return
	}

	sarahDays := holiday.NewDateRange(
		holiday.NewDate(year, time.July, 3),
		holiday.NewDate(year, time.July, 7),
	)
	if _, err := h.Bookings.Create(ctx, "gp-sarah", "site-main", sarahDays); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed bookings", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seeded": []string{"gp-sarah", "recep-tom"},
		"year":   year,
	})
}
