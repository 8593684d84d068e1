/*
handlers.go - HTTP handlers for the holiday engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to domain services.

ENDPOINTS:
  Staff:
    PUT    /api/staff/{id}/pattern              Replace working pattern
    GET    /api/staff/{id}/pattern              Current pattern
    GET    /api/staff/{id}/entitlement          Entitlement (lazy-created)
    POST   /api/staff/{id}/entitlement/recalculate
    PUT    /api/staff/{id}/entitlement/override Set override
    DELETE /api/staff/{id}/entitlement/override Clear override
    POST   /api/staff/{id}/bookings             Create leave request
    GET    /api/staff/{id}/bookings             List requests
    GET    /api/staff/{id}/balance              Live balance snapshot

  Bookings:
    POST   /api/bookings/{id}/approve           With overlap reporting
    POST   /api/bookings/{id}/reject
    POST   /api/bookings/{id}/cancel
    POST   /api/bookings/{id}/revert            Admin approved->pending

ERROR HANDLING:
  - 400: Validation errors
  - 404: Missing staff/booking/entitlement
  - 409: Illegal status transition
  - 500: Everything else

  Overlap conflicts are NOT errors: approve/revert respond 200 with the
  conflicting bookings enumerated in the body.

SECURITY NOTE:
  Authentication and approval authority live in the portal's identity
  layer; this service trusts the actor field it is handed.

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/holiday-engine/holiday"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        holiday.Store
	Roles        holiday.RoleResolver
	Entitlements *holiday.EntitlementService
	Bookings     *holiday.BookingService
	Balance      *holiday.BalanceService

	// DemoRoles backs the demo seed endpoint; nil disables seeding.
	DemoRoles holiday.StaticRoles
}

// NewHandler wires the domain services over the given store and resolver.
func NewHandler(store holiday.Store, roles holiday.RoleResolver) *Handler {
	ents := &holiday.EntitlementService{Store: store, Roles: roles}
	return &Handler{
		Store:        store,
		Roles:        roles,
		Entitlements: ents,
		Bookings:     &holiday.BookingService{Store: store, Roles: roles},
		Balance:      &holiday.BalanceService{Store: store, Entitlements: ents, Roles: roles},
	}
}

// =============================================================================
// WORKING PATTERN HANDLERS
// =============================================================================

// PutPattern replaces the staff member's working pattern (superseding the
// previous one) and refreshes the current year's entitlement.
func (h *Handler) PutPattern(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))

	var req PutPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pattern := &holiday.WorkingPattern{
		ID:        uuid.NewString(),
		StaffID:   staffID,
		SiteID:    holiday.SiteID(req.SiteID),
		CreatedAt: time.Now().UTC(),
	}
	for i := 0; i < holiday.PatternDays; i++ {
		var err error
		if pattern.Hours[i], err = parseDayValue(req.Hours[i]); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hours value", err)
			return
		}
		if pattern.Sessions[i], err = parseDayValue(req.Sessions[i]); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid sessions value", err)
			return
		}
	}
	pattern.Normalize()
	if err := pattern.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.SavePattern(r.Context(), pattern); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pattern", err)
		return
	}

	// Pattern changes drive recalculation; the sticky-override rule is
	// enforced inside the service.
	multiplier := decimal.NewFromInt(1)
	if rec, err := h.Store.GetEntitlement(r.Context(), staffID, time.Now().UTC().Year()); err == nil {
		multiplier = rec.Multiplier
	}
	if _, err := h.Entitlements.Recalculate(r.Context(), staffID, time.Now().UTC().Year(), multiplier); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recalculate entitlement", err)
		return
	}

	writeJSON(w, http.StatusOK, patternDTO(pattern))
}

// GetPattern returns the active working pattern.
func (h *Handler) GetPattern(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))
	pattern, err := h.Store.ActivePattern(r.Context(), staffID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patternDTO(pattern))
}

// =============================================================================
// ENTITLEMENT HANDLERS
// =============================================================================

// GetEntitlement returns the record for the requested year, creating it
// lazily on first access.
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	rec, err := h.Entitlements.Ensure(r.Context(), staffID, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entitlementDTO(rec))
}

// RecalculateEntitlement refreshes the record with a new multiplier.
func (h *Handler) RecalculateEntitlement(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	multiplier, err := decimal.NewFromString(req.Multiplier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multiplier", err)
		return
	}

	rec, err := h.Entitlements.Recalculate(r.Context(), staffID, year, multiplier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entitlementDTO(rec))
}

// SetOverride pins the entitlement to an administrator-supplied value.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	var req SetOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid override value", err)
		return
	}

	rec, err := h.Entitlements.SetOverride(r.Context(), staffID, year, value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entitlementDTO(rec))
}

// ClearOverride removes the override and recalculates.
func (h *Handler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	rec, err := h.Entitlements.ClearOverride(r.Context(), staffID, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entitlementDTO(rec))
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking submits a new leave request.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := holiday.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end, err := holiday.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return
	}

	booking, err := h.Bookings.Create(r.Context(), staffID, holiday.SiteID(req.SiteID), holiday.NewDateRange(start, end))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingDTO(booking))
}

// ListBookings lists a staff member's requests, optionally filtered by
// year (of the start date) and status.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))

	bookings, err := h.Store.BookingsForStaff(r.Context(), staffID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	yearFilter := r.URL.Query().Get("year")
	statusFilter := r.URL.Query().Get("status")
	var filtered []holiday.BookingRequest
	for _, b := range bookings {
		if yearFilter != "" && strconv.Itoa(b.Range.Start.Year()) != yearFilter {
			continue
		}
		if statusFilter != "" && string(b.Status) != statusFilter {
			continue
		}
		filtered = append(filtered, b)
	}

	writeJSON(w, http.StatusOK, bookingDTOs(filtered))
}

// ApproveBooking transitions pending -> approved. Conflicting approved
// requests are enumerated in the response, never silently ignored.
func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, holiday.StatusApproved)
}

// RejectBooking transitions pending -> rejected.
func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, holiday.StatusRejected)
}

// CancelBooking withdraws a pending or approved request.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, holiday.StatusCancelled)
}

// RevertBooking is the admin correction path: approved -> pending.
func (h *Handler) RevertBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, holiday.StatusPending)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target holiday.Status) {
	id := holiday.RequestID(chi.URLParam(r, "id"))

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "Actor is required", nil)
		return
	}

	result, err := h.Bookings.Transition(r.Context(), id, target, holiday.ActorID(req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransitionResponseDTO{
		Booking:        bookingDTO(result.Request),
		Conflicts:      bookingDTOs(result.Conflicts),
		FlaggedPending: bookingDTOs(result.FlaggedPending),
	})
}

// =============================================================================
// BALANCE HANDLER
// =============================================================================

// GetBalance returns the live {entitlement, booked, requested, remaining}
// snapshot. Always computed fresh; nothing is cached.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	staffID := holiday.StaffID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	snap, err := h.Balance.Snapshot(r.Context(), staffID, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceDTO(snap))
}

// =============================================================================
// HELPERS
// =============================================================================

func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().UTC().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 3000 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, false
	}
	return year, true
}

func parseDayValue(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case holiday.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case holiday.IsClientError(err):
		status := http.StatusBadRequest
		var stErr *holiday.StateTransitionError
		if errors.As(err, &stErr) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
