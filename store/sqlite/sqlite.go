/*
Package sqlite provides the SQLite-backed implementation of holiday.Store.

PURPOSE:
  Production persistence for working patterns, entitlement records, and
  booking requests. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  working_patterns:  Per-staff weekly patterns; superseded, never deleted
  entitlements:      One row per (staff, year), UNIQUE enforced
  booking_requests:  Leave requests with status and decision audit fields

SCHEMA NOTES:
  One versioned schema, migrated on New(). The portal this replaces grew
  parallel "old" and "numbered" holiday tables reconciled by scripts; here
  a single migration path owns the shape of the data.

ATOMIC APPROVAL:
  WithTx wraps a database transaction. The booking service runs its
  "check no conflicting approved request, then approve" sequence inside
  one WithTx call, so concurrent approvers serialize at the database and
  cannot double-book.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

SEE ALSO:
  - holiday/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/holiday-engine/holiday"
)

// Store implements holiday.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and sidesteps
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS working_patterns (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		mon_hours TEXT NOT NULL, tue_hours TEXT NOT NULL, wed_hours TEXT NOT NULL,
		thu_hours TEXT NOT NULL, fri_hours TEXT NOT NULL,
		mon_sessions TEXT NOT NULL, tue_sessions TEXT NOT NULL, wed_sessions TEXT NOT NULL,
		thu_sessions TEXT NOT NULL, fri_sessions TEXT NOT NULL,
		weekly_hours TEXT NOT NULL,
		weekly_sessions TEXT NOT NULL,
		created_at TEXT NOT NULL,
		superseded_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_patterns_staff_active
		ON working_patterns(staff_id) WHERE superseded_at IS NULL;

	CREATE TABLE IF NOT EXISTS entitlements (
		staff_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		weekly_hours TEXT NOT NULL,
		weekly_sessions TEXT NOT NULL,
		multiplier TEXT NOT NULL,
		calculated_hours TEXT NOT NULL,
		calculated_sessions TEXT NOT NULL,
		override TEXT,
		calculated_at TEXT NOT NULL,
		PRIMARY KEY (staff_id, year)
	);

	CREATE TABLE IF NOT EXISTS booking_requests (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		amount_value TEXT NOT NULL,
		amount_unit TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		decided_at TEXT,
		decided_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_staff_start
		ON booking_requests(staff_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_bookings_status
		ON booking_requests(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. If fn returns an
// error, the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(holiday.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	view := &txStore{q: tx}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same SQL runs in
// and out of transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txStore struct {
	q querier
}

// Store methods delegate to the shared helpers against the raw DB.

func (s *Store) SavePattern(ctx context.Context, p *holiday.WorkingPattern) error {
	return savePattern(ctx, s.db, p)
}
func (s *Store) ActivePattern(ctx context.Context, staffID holiday.StaffID) (*holiday.WorkingPattern, error) {
	return activePattern(ctx, s.db, staffID)
}
func (s *Store) GetEntitlement(ctx context.Context, staffID holiday.StaffID, year int) (*holiday.EntitlementRecord, error) {
	return getEntitlement(ctx, s.db, staffID, year)
}
func (s *Store) PutEntitlement(ctx context.Context, rec *holiday.EntitlementRecord) error {
	return putEntitlement(ctx, s.db, rec)
}
func (s *Store) InsertBooking(ctx context.Context, b *holiday.BookingRequest) error {
	return insertBooking(ctx, s.db, b)
}
func (s *Store) GetBooking(ctx context.Context, id holiday.RequestID) (*holiday.BookingRequest, error) {
	return getBooking(ctx, s.db, id)
}
func (s *Store) UpdateBooking(ctx context.Context, b *holiday.BookingRequest) error {
	return updateBooking(ctx, s.db, b)
}
func (s *Store) BookingsForStaff(ctx context.Context, staffID holiday.StaffID) ([]holiday.BookingRequest, error) {
	return bookingsForStaff(ctx, s.db, staffID)
}

func (t *txStore) SavePattern(ctx context.Context, p *holiday.WorkingPattern) error {
	return savePattern(ctx, t.q, p)
}
func (t *txStore) ActivePattern(ctx context.Context, staffID holiday.StaffID) (*holiday.WorkingPattern, error) {
	return activePattern(ctx, t.q, staffID)
}
func (t *txStore) GetEntitlement(ctx context.Context, staffID holiday.StaffID, year int) (*holiday.EntitlementRecord, error) {
	return getEntitlement(ctx, t.q, staffID, year)
}
func (t *txStore) PutEntitlement(ctx context.Context, rec *holiday.EntitlementRecord) error {
	return putEntitlement(ctx, t.q, rec)
}
func (t *txStore) InsertBooking(ctx context.Context, b *holiday.BookingRequest) error {
	return insertBooking(ctx, t.q, b)
}
func (t *txStore) GetBooking(ctx context.Context, id holiday.RequestID) (*holiday.BookingRequest, error) {
	return getBooking(ctx, t.q, id)
}
func (t *txStore) UpdateBooking(ctx context.Context, b *holiday.BookingRequest) error {
	return updateBooking(ctx, t.q, b)
}
func (t *txStore) BookingsForStaff(ctx context.Context, staffID holiday.StaffID) ([]holiday.BookingRequest, error) {
	return bookingsForStaff(ctx, t.q, staffID)
}

// =============================================================================
// WORKING PATTERNS
// =============================================================================

func savePattern(ctx context.Context, q querier, p *holiday.WorkingPattern) error {
	now := p.CreatedAt.UTC().Format(time.RFC3339)
	if _, err := q.ExecContext(ctx,
		`UPDATE working_patterns SET superseded_at = ? WHERE staff_id = ? AND superseded_at IS NULL`,
		now, p.StaffID,
	); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO working_patterns (
			id, staff_id, site_id,
			mon_hours, tue_hours, wed_hours, thu_hours, fri_hours,
			mon_sessions, tue_sessions, wed_sessions, thu_sessions, fri_sessions,
			weekly_hours, weekly_sessions, created_at, superseded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		p.ID, p.StaffID, p.SiteID,
		p.Hours[0].String(), p.Hours[1].String(), p.Hours[2].String(), p.Hours[3].String(), p.Hours[4].String(),
		p.Sessions[0].String(), p.Sessions[1].String(), p.Sessions[2].String(), p.Sessions[3].String(), p.Sessions[4].String(),
		p.WeeklyHours.String(), p.WeeklySessions.String(), now,
	)
	return err
}

func activePattern(ctx context.Context, q querier, staffID holiday.StaffID) (*holiday.WorkingPattern, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, staff_id, site_id,
			mon_hours, tue_hours, wed_hours, thu_hours, fri_hours,
			mon_sessions, tue_sessions, wed_sessions, thu_sessions, fri_sessions,
			weekly_hours, weekly_sessions, created_at
		FROM working_patterns
		WHERE staff_id = ? AND superseded_at IS NULL`, staffID)

	var p holiday.WorkingPattern
	var hours, sessions [5]string
	var weeklyHours, weeklySessions, createdAt string
	err := row.Scan(&p.ID, &p.StaffID, &p.SiteID,
		&hours[0], &hours[1], &hours[2], &hours[3], &hours[4],
		&sessions[0], &sessions[1], &sessions[2], &sessions[3], &sessions[4],
		&weeklyHours, &weeklySessions, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &holiday.NotFoundError{Kind: "pattern", Ref: string(staffID)}
	}
	if err != nil {
		return nil, err
	}

	for i := 0; i < 5; i++ {
		if p.Hours[i], err = decimal.NewFromString(hours[i]); err != nil {
			return nil, fmt.Errorf("corrupt pattern hours: %w", err)
		}
		if p.Sessions[i], err = decimal.NewFromString(sessions[i]); err != nil {
			return nil, fmt.Errorf("corrupt pattern sessions: %w", err)
		}
	}
	if p.WeeklyHours, err = decimal.NewFromString(weeklyHours); err != nil {
		return nil, err
	}
	if p.WeeklySessions, err = decimal.NewFromString(weeklySessions); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// ENTITLEMENTS
// =============================================================================

func getEntitlement(ctx context.Context, q querier, staffID holiday.StaffID, year int) (*holiday.EntitlementRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT staff_id, year, weekly_hours, weekly_sessions, multiplier,
			calculated_hours, calculated_sessions, override, calculated_at
		FROM entitlements WHERE staff_id = ? AND year = ?`, staffID, year)

	var rec holiday.EntitlementRecord
	var weeklyHours, weeklySessions, multiplier, calcHours, calcSessions, calculatedAt string
	var override sql.NullString
	err := row.Scan(&rec.StaffID, &rec.Year, &weeklyHours, &weeklySessions, &multiplier,
		&calcHours, &calcSessions, &override, &calculatedAt)
	if err == sql.ErrNoRows {
		return nil, &holiday.NotFoundError{Kind: "entitlement", Ref: fmt.Sprintf("%s/%d", staffID, year)}
	}
	if err != nil {
		return nil, err
	}

	if rec.WeeklyHours, err = decimal.NewFromString(weeklyHours); err != nil {
		return nil, err
	}
	if rec.WeeklySessions, err = decimal.NewFromString(weeklySessions); err != nil {
		return nil, err
	}
	if rec.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
		return nil, err
	}
	if rec.CalculatedHours, err = decimal.NewFromString(calcHours); err != nil {
		return nil, err
	}
	if rec.CalculatedSessions, err = decimal.NewFromString(calcSessions); err != nil {
		return nil, err
	}
	if override.Valid {
		ov, err := decimal.NewFromString(override.String)
		if err != nil {
			return nil, err
		}
		rec.Override = &ov
	}
	if rec.CalculatedAt, err = time.Parse(time.RFC3339, calculatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func putEntitlement(ctx context.Context, q querier, rec *holiday.EntitlementRecord) error {
	var override any
	if rec.Override != nil {
		override = rec.Override.String()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO entitlements (
			staff_id, year, weekly_hours, weekly_sessions, multiplier,
			calculated_hours, calculated_sessions, override, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(staff_id, year) DO UPDATE SET
			weekly_hours = excluded.weekly_hours,
			weekly_sessions = excluded.weekly_sessions,
			multiplier = excluded.multiplier,
			calculated_hours = excluded.calculated_hours,
			calculated_sessions = excluded.calculated_sessions,
			override = excluded.override,
			calculated_at = excluded.calculated_at`,
		rec.StaffID, rec.Year, rec.WeeklyHours.String(), rec.WeeklySessions.String(),
		rec.Multiplier.String(), rec.CalculatedHours.String(), rec.CalculatedSessions.String(),
		override, rec.CalculatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// BOOKINGS
// =============================================================================

func insertBooking(ctx context.Context, q querier, b *holiday.BookingRequest) error {
	decidedAt, decidedBy := decisionColumns(b)
	_, err := q.ExecContext(ctx, `
		INSERT INTO booking_requests (
			id, staff_id, site_id, start_date, end_date,
			amount_value, amount_unit, status, created_at, decided_at, decided_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(b.ID), string(b.StaffID), string(b.SiteID), b.Range.Start.String(), b.Range.End.String(),
		b.Amount.Value.String(), string(b.Amount.Unit), string(b.Status),
		b.CreatedAt.UTC().Format(time.RFC3339), decidedAt, decidedBy,
	)
	return err
}

func updateBooking(ctx context.Context, q querier, b *holiday.BookingRequest) error {
	decidedAt, decidedBy := decisionColumns(b)
	res, err := q.ExecContext(ctx, `
		UPDATE booking_requests
		SET status = ?, decided_at = ?, decided_by = ?
		WHERE id = ?`,
		string(b.Status), decidedAt, decidedBy, string(b.ID),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &holiday.NotFoundError{Kind: "booking", Ref: string(b.ID)}
	}
	return nil
}

func getBooking(ctx context.Context, q querier, id holiday.RequestID) (*holiday.BookingRequest, error) {
	row := q.QueryRowContext(ctx, bookingSelect+` WHERE id = ?`, string(id))
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, &holiday.NotFoundError{Kind: "booking", Ref: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func bookingsForStaff(ctx context.Context, q querier, staffID holiday.StaffID) ([]holiday.BookingRequest, error) {
	rows, err := q.QueryContext(ctx, bookingSelect+` WHERE staff_id = ? ORDER BY start_date`, string(staffID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []holiday.BookingRequest
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

const bookingSelect = `
	SELECT id, staff_id, site_id, start_date, end_date,
		amount_value, amount_unit, status, created_at, decided_at, decided_by
	FROM booking_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*holiday.BookingRequest, error) {
	var b holiday.BookingRequest
	var startDate, endDate, amountValue, amountUnit, status, createdAt string
	var decidedAt, decidedBy sql.NullString

	err := row.Scan(&b.ID, &b.StaffID, &b.SiteID, &startDate, &endDate,
		&amountValue, &amountUnit, &status, &createdAt, &decidedAt, &decidedBy)
	if err != nil {
		return nil, err
	}

	if b.Range.Start, err = holiday.ParseDate(startDate); err != nil {
		return nil, err
	}
	if b.Range.End, err = holiday.ParseDate(endDate); err != nil {
		return nil, err
	}
	if b.Amount.Value, err = decimal.NewFromString(amountValue); err != nil {
		return nil, err
	}
	b.Amount.Unit = holiday.Unit(amountUnit)
	b.Status = holiday.Status(status)
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		at, err := time.Parse(time.RFC3339, decidedAt.String)
		if err != nil {
			return nil, err
		}
		b.DecidedAt = &at
	}
	if decidedBy.Valid {
		by := holiday.ActorID(decidedBy.String)
		b.DecidedBy = &by
	}
	return &b, nil
}

func decisionColumns(b *holiday.BookingRequest) (decidedAt, decidedBy any) {
	if b.DecidedAt != nil {
		decidedAt = b.DecidedAt.UTC().Format(time.RFC3339)
	}
	if b.DecidedBy != nil {
		decidedBy = string(*b.DecidedBy)
	}
	return decidedAt, decidedBy
}
