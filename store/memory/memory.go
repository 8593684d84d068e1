// Package memory provides an in-memory holiday.Store for tests and dev runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/holiday-engine/holiday"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu           sync.RWMutex
	patterns     map[holiday.StaffID][]*holiday.WorkingPattern
	entitlements map[entKey]*holiday.EntitlementRecord
	bookings     map[holiday.RequestID]*holiday.BookingRequest
}

type entKey struct {
	StaffID holiday.StaffID
	Year    int
}

func New() *Store {
	return &Store{
		patterns:     make(map[holiday.StaffID][]*holiday.WorkingPattern),
		entitlements: make(map[entKey]*holiday.EntitlementRecord),
		bookings:     make(map[holiday.RequestID]*holiday.BookingRequest),
	}
}

func (s *Store) SavePattern(_ context.Context, p *holiday.WorkingPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePatternLocked(p)
}

func (s *Store) savePatternLocked(p *holiday.WorkingPattern) error {
	// Supersede, never delete.
	now := p.CreatedAt
	for _, prev := range s.patterns[p.StaffID] {
		if prev.SupersededAt == nil {
			at := now
			prev.SupersededAt = &at
		}
	}
	cp := clonePattern(p)
	s.patterns[p.StaffID] = append(s.patterns[p.StaffID], cp)
	return nil
}

func (s *Store) ActivePattern(_ context.Context, staffID holiday.StaffID) (*holiday.WorkingPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePatternLocked(staffID)
}

func (s *Store) activePatternLocked(staffID holiday.StaffID) (*holiday.WorkingPattern, error) {
	for _, p := range s.patterns[staffID] {
		if p.SupersededAt == nil {
			return clonePattern(p), nil
		}
	}
	return nil, &holiday.NotFoundError{Kind: "pattern", Ref: string(staffID)}
}

func (s *Store) GetEntitlement(_ context.Context, staffID holiday.StaffID, year int) (*holiday.EntitlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEntitlementLocked(staffID, year)
}

func (s *Store) getEntitlementLocked(staffID holiday.StaffID, year int) (*holiday.EntitlementRecord, error) {
	rec, ok := s.entitlements[entKey{staffID, year}]
	if !ok {
		return nil, &holiday.NotFoundError{Kind: "entitlement", Ref: string(staffID)}
	}
	return cloneEntitlement(rec), nil
}

func (s *Store) PutEntitlement(_ context.Context, rec *holiday.EntitlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entitlements[entKey{rec.StaffID, rec.Year}] = cloneEntitlement(rec)
	return nil
}

func (s *Store) InsertBooking(_ context.Context, b *holiday.BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBookingLocked(b)
}

func (s *Store) insertBookingLocked(b *holiday.BookingRequest) error {
	s.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (s *Store) GetBooking(_ context.Context, id holiday.RequestID) (*holiday.BookingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBookingLocked(id)
}

func (s *Store) getBookingLocked(id holiday.RequestID) (*holiday.BookingRequest, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, &holiday.NotFoundError{Kind: "booking", Ref: string(id)}
	}
	return cloneBooking(b), nil
}

func (s *Store) UpdateBooking(_ context.Context, b *holiday.BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBookingLocked(b)
}

func (s *Store) updateBookingLocked(b *holiday.BookingRequest) error {
	if _, ok := s.bookings[b.ID]; !ok {
		return &holiday.NotFoundError{Kind: "booking", Ref: string(b.ID)}
	}
	s.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (s *Store) BookingsForStaff(_ context.Context, staffID holiday.StaffID) ([]holiday.BookingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookingsForStaffLocked(staffID)
}

func (s *Store) bookingsForStaffLocked(staffID holiday.StaffID) ([]holiday.BookingRequest, error) {
	var out []holiday.BookingRequest
	for _, b := range s.bookings {
		if b.StaffID == staffID {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

// =============================================================================
// TRANSACTION SUPPORT - snapshot + rollback
// =============================================================================

// WithTx executes fn under the store lock, restoring a snapshot of all
// state if fn fails. Good enough for tests; the SQLite store uses real
// database transactions.
func (s *Store) WithTx(_ context.Context, fn func(holiday.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	view := &txView{parent: s}
	if err := fn(view); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	patterns     map[holiday.StaffID][]*holiday.WorkingPattern
	entitlements map[entKey]*holiday.EntitlementRecord
	bookings     map[holiday.RequestID]*holiday.BookingRequest
}

func (s *Store) snapshot() snapshot {
	pats := make(map[holiday.StaffID][]*holiday.WorkingPattern, len(s.patterns))
	for k, v := range s.patterns {
		cp := make([]*holiday.WorkingPattern, len(v))
		for i, p := range v {
			cp[i] = clonePattern(p)
		}
		pats[k] = cp
	}
	ents := make(map[entKey]*holiday.EntitlementRecord, len(s.entitlements))
	for k, v := range s.entitlements {
		ents[k] = cloneEntitlement(v)
	}
	books := make(map[holiday.RequestID]*holiday.BookingRequest, len(s.bookings))
	for k, v := range s.bookings {
		books[k] = cloneBooking(v)
	}
	return snapshot{patterns: pats, entitlements: ents, bookings: books}
}

func (s *Store) restore(snap snapshot) {
	s.patterns = snap.patterns
	s.entitlements = snap.entitlements
	s.bookings = snap.bookings
}

// txView routes through the *Locked methods so fn runs under the already
// held lock without deadlocking.
type txView struct {
	parent *Store
}

func (v *txView) SavePattern(_ context.Context, p *holiday.WorkingPattern) error {
	return v.parent.savePatternLocked(p)
}

func (v *txView) ActivePattern(_ context.Context, staffID holiday.StaffID) (*holiday.WorkingPattern, error) {
	return v.parent.activePatternLocked(staffID)
}

func (v *txView) GetEntitlement(_ context.Context, staffID holiday.StaffID, year int) (*holiday.EntitlementRecord, error) {
	return v.parent.getEntitlementLocked(staffID, year)
}

func (v *txView) PutEntitlement(_ context.Context, rec *holiday.EntitlementRecord) error {
	v.parent.entitlements[entKey{rec.StaffID, rec.Year}] = cloneEntitlement(rec)
	return nil
}

func (v *txView) InsertBooking(_ context.Context, b *holiday.BookingRequest) error {
	return v.parent.insertBookingLocked(b)
}

func (v *txView) GetBooking(_ context.Context, id holiday.RequestID) (*holiday.BookingRequest, error) {
	return v.parent.getBookingLocked(id)
}

func (v *txView) UpdateBooking(_ context.Context, b *holiday.BookingRequest) error {
	return v.parent.updateBookingLocked(b)
}

func (v *txView) BookingsForStaff(_ context.Context, staffID holiday.StaffID) ([]holiday.BookingRequest, error) {
	return v.parent.bookingsForStaffLocked(staffID)
}

// =============================================================================
// CLONING - callers never share memory with the store
// =============================================================================

func clonePattern(p *holiday.WorkingPattern) *holiday.WorkingPattern {
	cp := *p
	if p.SupersededAt != nil {
		at := *p.SupersededAt
		cp.SupersededAt = &at
	}
	return &cp
}

func cloneEntitlement(r *holiday.EntitlementRecord) *holiday.EntitlementRecord {
	cp := *r
	if r.Override != nil {
		ov := *r.Override
		cp.Override = &ov
	}
	return &cp
}

func cloneBooking(b *holiday.BookingRequest) *holiday.BookingRequest {
	cp := *b
	if b.DecidedAt != nil {
		at := *b.DecidedAt
		cp.DecidedAt = &at
	}
	if b.DecidedBy != nil {
		by := *b.DecidedBy
		cp.DecidedBy = &by
	}
	return &cp
}
