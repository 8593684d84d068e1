/*
booking.go - Booking request lifecycle

PURPOSE:
  Owns the leave request state machine:

      pending ──▶ approved ──▶ cancelled
         │  ▲        │
         │  └────────┘  (admin revert)
         ├──▶ rejected   (terminal)
         └──▶ cancelled  (terminal)

  rejected and cancelled are terminal. A rejected or cancelled request is
  never resurrected - the staff member creates a new one.

OVERLAPS ARE WARNINGS:
  Approving a request that overlaps an existing approved request is not a
  hard failure. The engine's contract is to always report the conflict
  accurately; whether to block or proceed-with-warning is the calling
  workflow's policy. What the engine guarantees is atomicity: the overlap
  check and the status write happen inside one storage transaction, so two
  actors cannot race each other into a silent double-booking.

AMOUNT DERIVATION:
  The requested amount is the candidate range intersected with the working
  pattern: each day contributes what the pattern says the member works that
  weekday. A Tuesday-off request from someone who doesn't work Tuesdays
  costs zero.

SEE ALSO:
  - overlap.go: Conflict detection
  - pattern.go: AmountOn
*/
package holiday

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// BOOKING REQUEST
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// BookingRequest is a single leave request.
type BookingRequest struct {
	ID      RequestID
	StaffID StaffID
	SiteID  SiteID

	Range DateRange

	// Derived from the working pattern at creation time.
	Amount Amount

	Status    Status
	CreatedAt time.Time

	// Decision audit trail; nil until a decision is made, cleared on revert.
	DecidedAt *time.Time
	DecidedBy *ActorID
}

// transitions is the allowed-move table. Absence means StateTransitionError.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusApproved:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusApproved: {
		StatusPending:   true, // admin correction path
		StatusCancelled: true,
	},
	StatusRejected:  {},
	StatusCancelled: {},
}

// CanTransition reports whether the move is legal.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// =============================================================================
// TRANSITION RESULT
// =============================================================================

// TransitionResult carries the updated request plus any conflicts the
// transition surfaced. Conflicts never fail the operation; they are
// reported for the caller to act on.
type TransitionResult struct {
	Request *BookingRequest

	// Approved requests whose range overlaps this one. Populated when
	// entering approved (the double-booking warning) and after a revert
	// (informs whether re-approval would conflict).
	Conflicts []BookingRequest

	// Pending requests left overlapping a newly approved one. Approving
	// one of two overlapping pending requests must flag the survivor, not
	// silently leave it primed for a second approval.
	FlaggedPending []BookingRequest
}

// HasConflicts reports whether the transition surfaced approved overlaps.
func (r *TransitionResult) HasConflicts() bool { return len(r.Conflicts) > 0 }

// =============================================================================
// BOOKING SERVICE
// =============================================================================

type BookingService struct {
	Store Store
	Roles RoleResolver
}

// Create validates the date range, derives the requested amount from the
// staff member's working pattern, and persists the request as pending.
// Nothing is persisted if validation fails.
func (s *BookingService) Create(ctx context.Context, staffID StaffID, siteID SiteID, rng DateRange) (*BookingRequest, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	role, err := s.Roles.Resolve(ctx, staffID)
	if err != nil {
		return nil, err
	}
	unit := role.UnitFor()

	amount := ZeroAmount(unit)
	pattern, err := s.Store.ActivePattern(ctx, staffID)
	switch {
	case err == nil:
		for _, day := range rng.Days() {
			amount.Value = amount.Value.Add(pattern.AmountOn(day, unit))
		}
	case IsNotFound(err):
		// No pattern: every day contributes zero. The request is still
		// recordable; it just costs nothing against the balance.
	default:
		return nil, err
	}

	req := &BookingRequest{
		ID:        RequestID(uuid.NewString()),
		StaffID:   staffID,
		SiteID:    siteID,
		Range:     rng,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.InsertBooking(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Transition moves a request to the target status, enforcing the state
// machine. Entering approved runs the overlap check and the status write
// inside one storage transaction. The operation fails whole: on any error
// the stored record is unchanged.
func (s *BookingService) Transition(ctx context.Context, id RequestID, target Status, actor ActorID) (*TransitionResult, error) {
	result := &TransitionResult{}

	err := withTx(ctx, s.Store, func(store Store) error {
		req, err := store.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(req.Status, target) {
			return &StateTransitionError{RequestID: id, Current: req.Status, Attempted: target}
		}

		now := time.Now().UTC()
		switch target {
		case StatusApproved:
			others, err := store.BookingsForStaff(ctx, req.StaffID)
			if err != nil {
				return err
			}
			others = excludeRequest(others, req.ID)
			result.Conflicts = Overlapping(req.Range, others, ApprovedOnly)
			result.FlaggedPending = Overlapping(req.Range, others, func(st Status) bool { return st == StatusPending })
			req.Status = StatusApproved
			req.DecidedAt = &now
			req.DecidedBy = &actor

		case StatusRejected:
			req.Status = StatusRejected
			req.DecidedAt = &now
			req.DecidedBy = &actor

		case StatusCancelled:
			req.Status = StatusCancelled
			req.DecidedAt = &now
			req.DecidedBy = &actor

		case StatusPending:
			// Admin revert of an approval. The revert itself always
			// succeeds; conflicts are reported so the caller knows what a
			// re-approval would collide with.
			others, err := store.BookingsForStaff(ctx, req.StaffID)
			if err != nil {
				return err
			}
			others = excludeRequest(others, req.ID)
			result.Conflicts = Overlapping(req.Range, others, ApprovedOnly)
			req.Status = StatusPending
			req.DecidedAt = nil
			req.DecidedBy = nil

		default:
			return &ValidationError{Field: "status", Message: "unknown target status " + string(target)}
		}

		if err := store.UpdateBooking(ctx, req); err != nil {
			return err
		}
		result.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestedAmount recomputes what a range would cost against a pattern
// without creating anything. Used by the API for previews.
func RequestedAmount(pattern *WorkingPattern, rng DateRange, unit Unit) decimal.Decimal {
	total := decimal.Zero
	if pattern == nil {
		return total
	}
	for _, day := range rng.Days() {
		total = total.Add(pattern.AmountOn(day, unit))
	}
	return total
}

func excludeRequest(reqs []BookingRequest, id RequestID) []BookingRequest {
	out := reqs[:0]
	for _, r := range reqs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
