/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupled from the domain model.
  Decimal quantities serialize as strings so clients never see float
  drift; rounding for display is the client's job.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/holiday-engine/holiday"
)

// =============================================================================
// WORKING PATTERNS
// =============================================================================

// DayValuesDTO carries per-weekday values as decimal strings, Monday first.
type DayValuesDTO [holiday.PatternDays]string

// PatternDTO represents a working pattern in API responses.
type PatternDTO struct {
	StaffID        string       `json:"staff_id"`
	SiteID         string       `json:"site_id"`
	Hours          DayValuesDTO `json:"hours"`
	Sessions       DayValuesDTO `json:"sessions"`
	WeeklyHours    string       `json:"weekly_hours"`
	WeeklySessions string       `json:"weekly_sessions"`
	CreatedAt      string       `json:"created_at,omitempty"`
}

// PutPatternRequest is the request to replace a staff member's pattern.
type PutPatternRequest struct {
	SiteID   string       `json:"site_id"`
	Hours    DayValuesDTO `json:"hours"`
	Sessions DayValuesDTO `json:"sessions"`
}

// =============================================================================
// ENTITLEMENTS
// =============================================================================

type EntitlementDTO struct {
	StaffID            string  `json:"staff_id"`
	Year               int     `json:"year"`
	WeeklyHours        string  `json:"weekly_hours"`
	WeeklySessions     string  `json:"weekly_sessions"`
	Multiplier         string  `json:"multiplier"`
	CalculatedHours    string  `json:"calculated_hours"`
	CalculatedSessions string  `json:"calculated_sessions"`
	Override           *string `json:"override"`
	CalculatedAt       string  `json:"calculated_at"`
}

type SetOverrideRequest struct {
	Value string `json:"value"`
}

type RecalculateRequest struct {
	Multiplier string `json:"multiplier"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

type CreateBookingRequest struct {
	SiteID    string `json:"site_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type TransitionRequest struct {
	Actor string `json:"actor"`
}

type BookingDTO struct {
	ID        string  `json:"id"`
	StaffID   string  `json:"staff_id"`
	SiteID    string  `json:"site_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Amount    string  `json:"amount"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	DecidedAt *string `json:"decided_at,omitempty"`
	DecidedBy *string `json:"decided_by,omitempty"`
}

// TransitionResponseDTO carries the updated booking plus any conflicts the
// transition surfaced. Conflicts are warnings, not failures.
type TransitionResponseDTO struct {
	Booking        BookingDTO   `json:"booking"`
	Conflicts      []BookingDTO `json:"conflicts,omitempty"`
	FlaggedPending []BookingDTO `json:"flagged_pending,omitempty"`
}

// =============================================================================
// BALANCE
// =============================================================================

type BalanceDTO struct {
	StaffID     string `json:"staff_id"`
	Year        int    `json:"year"`
	Unit        string `json:"unit"`
	Entitlement string `json:"entitlement"`
	Booked      string `json:"booked"`
	Requested   string `json:"requested"`
	Remaining   string `json:"remaining"`
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

func patternDTO(p *holiday.WorkingPattern) PatternDTO {
	dto := PatternDTO{
		StaffID:        string(p.StaffID),
		SiteID:         string(p.SiteID),
		WeeklyHours:    p.WeeklyHours.String(),
		WeeklySessions: p.WeeklySessions.String(),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	for i := 0; i < holiday.PatternDays; i++ {
		dto.Hours[i] = p.Hours[i].String()
		dto.Sessions[i] = p.Sessions[i].String()
	}
	return dto
}

func entitlementDTO(r *holiday.EntitlementRecord) EntitlementDTO {
	dto := EntitlementDTO{
		StaffID:            string(r.StaffID),
		Year:               r.Year,
		WeeklyHours:        r.WeeklyHours.String(),
		WeeklySessions:     r.WeeklySessions.String(),
		Multiplier:         r.Multiplier.String(),
		CalculatedHours:    r.CalculatedHours.String(),
		CalculatedSessions: r.CalculatedSessions.String(),
		CalculatedAt:       r.CalculatedAt.Format(time.RFC3339),
	}
	if r.Override != nil {
		s := r.Override.String()
		dto.Override = &s
	}
	return dto
}

func bookingDTO(b *holiday.BookingRequest) BookingDTO {
	dto := BookingDTO{
		ID:        string(b.ID),
		StaffID:   string(b.StaffID),
		SiteID:    string(b.SiteID),
		StartDate: b.Range.Start.String(),
		EndDate:   b.Range.End.String(),
		Amount:    b.Amount.Value.String(),
		Unit:      string(b.Amount.Unit),
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
	if b.DecidedAt != nil {
		s := b.DecidedAt.Format(time.RFC3339)
		dto.DecidedAt = &s
	}
	if b.DecidedBy != nil {
		s := string(*b.DecidedBy)
		dto.DecidedBy = &s
	}
	return dto
}

func bookingDTOs(bs []holiday.BookingRequest) []BookingDTO {
	out := make([]BookingDTO, len(bs))
	for i := range bs {
		out[i] = bookingDTO(&bs[i])
	}
	return out
}

func balanceDTO(s *holiday.BalanceSnapshot) BalanceDTO {
	return BalanceDTO{
		StaffID:     string(s.StaffID),
		Year:        s.Year,
		Unit:        string(s.Unit),
		Entitlement: s.Entitlement.Value.String(),
		Booked:      s.Booked.Value.String(),
		Requested:   s.Requested.Value.String(),
		Remaining:   s.Remaining.Value.String(),
	}
}
