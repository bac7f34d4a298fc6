package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id                TEXT PRIMARY KEY,
		tenant_id         TEXT NOT NULL,
		name              TEXT NOT NULL,
		kind              TEXT NOT NULL DEFAULT '',
		capacity          INTEGER NOT NULL DEFAULT 0,
		hourly_rate_cents BIGINT NOT NULL DEFAULT 0,
		active            BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             TEXT PRIMARY KEY,
		tenant_id      TEXT NOT NULL,
		facility_id    TEXT NOT NULL REFERENCES facilities (id),
		title          TEXT NOT NULL,
		customer       TEXT NOT NULL DEFAULT '',
		start_ms       BIGINT NOT NULL,
		end_ms         BIGINT NOT NULL,
		status         TEXT NOT NULL,
		price_cents    BIGINT NOT NULL DEFAULT 0,
		promotion_code TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_facility_start ON bookings (facility_id, start_ms)`,
	`CREATE TABLE IF NOT EXISTS promotions (
		tenant_id   TEXT NOT NULL,
		code        TEXT NOT NULL,
		percent_off INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, code)
	)`,
}

const (
	facilityColumns = `id, tenant_id, name, kind, capacity, hourly_rate_cents, active`
	bookingColumns  = `id, tenant_id, facility_id, title, customer, start_ms, end_ms, status, price_cents, promotion_code`
)

// SQLAPI implements IBookingAPI on database/sql. Queries are written with ? placeholders
// and rebound to $n for postgres. Times are stored as unix milliseconds.
type SQLAPI struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens the database, checks the connection and applies the schema.
//
// Usage:
//
//	a, err := api.OpenSQL(ctx, api.DriverSQLite, ":memory:")
//	a, err := api.OpenSQL(ctx, api.DriverPostgres, "postgres://localhost/dbook?sslmode=disable")
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLAPI, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection: an in-memory database lives per connection and
		// sqlite serializes writers anyway
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	a := &SQLAPI{db: db, driver: driver}
	if err := a.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	Logger.Infof("connected to %s database", driver)
	return a, nil
}

func (a *SQLAPI) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close implements IBookingAPI.
func (a *SQLAPI) Close() error {
	return a.db.Close()
}

// --------------------------------------------------------------------------
// Facilities
// --------------------------------------------------------------------------

func (a *SQLAPI) ListFacilities(ctx context.Context, tenant string) ([]model.Facility, error) {
	var facilities []model.Facility
	err := a.read(ctx, func(q *txn) error {
		rows, err := q.query(`SELECT `+facilityColumns+` FROM facilities WHERE tenant_id = ? ORDER BY name, id`, tenant)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			f, err := scanFacility(rows)
			if err != nil {
				return err
			}
			facilities = append(facilities, f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	return facilities, nil
}

func (a *SQLAPI) CreateFacility(ctx context.Context, f model.Facility) (model.Facility, error) {
	if err := model.ValidateFacility(f); err != nil {
		return model.Facility{}, err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	err := a.write(ctx, func(q *txn) error {
		_, err := q.exec(`INSERT INTO facilities (`+facilityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.TenantID, f.Name, f.Kind, f.Capacity, f.HourlyRateCents, f.Active)
		return err
	})
	if err != nil {
		return model.Facility{}, fmt.Errorf("create facility %s: %w", f.Name, err)
	}
	return f, nil
}

func (a *SQLAPI) UpdateFacility(ctx context.Context, id string, p model.FacilityPatch) (model.Facility, error) {
	var updated model.Facility
	err := a.write(ctx, func(q *txn) error {
		current, err := q.facility(id, false)
		if err != nil {
			return err
		}
		updated = p.MergeInto(current)
		if err := model.ValidateFacility(updated); err != nil {
			return err
		}
		_, err = q.exec(`UPDATE facilities SET name = ?, kind = ?, capacity = ?, hourly_rate_cents = ?, active = ? WHERE id = ?`,
			updated.Name, updated.Kind, updated.Capacity, updated.HourlyRateCents, updated.Active, id)
		return err
	})
	if err != nil {
		return model.Facility{}, fmt.Errorf("update facility %s: %w", id, err)
	}
	return updated, nil
}

func (a *SQLAPI) DeleteFacility(ctx context.Context, id string) error {
	err := a.write(ctx, func(q *txn) error {
		var n int
		if err := q.queryRow(`SELECT COUNT(*) FROM bookings WHERE facility_id = ?`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: facility has %d bookings", ErrConflict, n)
		}
		return q.execOne(`DELETE FROM facilities WHERE id = ?`, id)
	})
	if err != nil {
		return fmt.Errorf("delete facility %s: %w", id, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Bookings
// --------------------------------------------------------------------------

func (a *SQLAPI) ListBookings(ctx context.Context, tenant string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := a.read(ctx, func(q *txn) error {
		rows, err := q.query(`SELECT `+bookingColumns+` FROM bookings WHERE tenant_id = ? ORDER BY start_ms, id`, tenant)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				return err
			}
			bookings = append(bookings, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (a *SQLAPI) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	created, err := a.CreateBookings(ctx, []model.Booking{b})
	if err != nil {
		return model.Booking{}, err
	}
	return created[0], nil
}

func (a *SQLAPI) CreateBookings(ctx context.Context, bookings []model.Booking) ([]model.Booking, error) {
	for _, b := range bookings {
		if err := model.ValidateBooking(b); err != nil {
			return nil, err
		}
	}
	created := make([]model.Booking, 0, len(bookings))
	err := a.write(ctx, func(q *txn) error {
		for _, b := range bookings {
			b, err := q.insertBooking(b)
			if err != nil {
				return err
			}
			created = append(created, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", plural(len(bookings), "booking"), err)
	}
	return created, nil
}

func (a *SQLAPI) UpdateBooking(ctx context.Context, id string, p model.BookingPatch) (model.Booking, error) {
	updated, err := a.UpdateBookings(ctx, []BookingUpdate{{ID: id, Patch: p}})
	if err != nil {
		return model.Booking{}, err
	}
	return updated[0], nil
}

func (a *SQLAPI) UpdateBookings(ctx context.Context, updates []BookingUpdate) ([]model.Booking, error) {
	updated := make([]model.Booking, 0, len(updates))
	err := a.write(ctx, func(q *txn) error {
		for _, u := range updates {
			b, err := q.updateBooking(u.ID, u.Patch)
			if err != nil {
				return err
			}
			updated = append(updated, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", plural(len(updates), "booking"), err)
	}
	return updated, nil
}

func (a *SQLAPI) DeleteBooking(ctx context.Context, id string) error {
	return a.DeleteBookings(ctx, []string{id})
}

func (a *SQLAPI) DeleteBookings(ctx context.Context, ids []string) error {
	err := a.write(ctx, func(q *txn) error {
		for _, id := range ids {
			if err := q.execOne(`DELETE FROM bookings WHERE id = ?`, id); err != nil {
				return fmt.Errorf("booking %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", plural(len(ids), "booking"), err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Promotions
// --------------------------------------------------------------------------

func (a *SQLAPI) ListPromotions(ctx context.Context, tenant string) ([]model.Promotion, error) {
	var promotions []model.Promotion
	err := a.read(ctx, func(q *txn) error {
		rows, err := q.query(`SELECT code, percent_off FROM promotions WHERE tenant_id = ? ORDER BY code`, tenant)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var p model.Promotion
			if err := rows.Scan(&p.Code, &p.PercentOff); err != nil {
				return err
			}
			promotions = append(promotions, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return promotions, nil
}

func (a *SQLAPI) UpsertPromotion(ctx context.Context, tenant string, p model.Promotion) error {
	if err := model.ValidatePromotion(p); err != nil {
		return err
	}
	err := a.write(ctx, func(q *txn) error {
		_, err := q.exec(`INSERT INTO promotions (tenant_id, code, percent_off) VALUES (?, ?, ?)
			ON CONFLICT (tenant_id, code) DO UPDATE SET percent_off = excluded.percent_off`,
			tenant, p.Code, p.PercentOff)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert promotion %s: %w", p.Code, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// txn wraps a transaction and rebinds placeholders for the driver.
type txn struct {
	ctx      context.Context
	tx       *sql.Tx
	postgres bool
}

func (a *SQLAPI) read(ctx context.Context, fn func(q *txn) error) error {
	return a.inTx(ctx, &sql.TxOptions{ReadOnly: a.driver == DriverPostgres}, fn)
}

func (a *SQLAPI) write(ctx context.Context, fn func(q *txn) error) error {
	return a.inTx(ctx, nil, fn)
}

func (a *SQLAPI) inTx(ctx context.Context, opts *sql.TxOptions, fn func(q *txn) error) (err error) {
	tx, err := a.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				Logger.Warningf("rollback failed: %v", rbErr)
			}
		}
	}()
	if err = fn(&txn{ctx: ctx, tx: tx, postgres: a.driver == DriverPostgres}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (q *txn) exec(query string, args ...any) (sql.Result, error) {
	return q.tx.ExecContext(q.ctx, q.rebind(query), args...)
}

// execOne runs a statement that must affect exactly one row (ErrNotFound otherwise).
func (q *txn) execOne(query string, args ...any) error {
	res, err := q.exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *txn) query(query string, args ...any) (*sql.Rows, error) {
	return q.tx.QueryContext(q.ctx, q.rebind(query), args...)
}

func (q *txn) queryRow(query string, args ...any) *sql.Row {
	return q.tx.QueryRowContext(q.ctx, q.rebind(query), args...)
}

// rebind replaces ? placeholders with $1, $2, ... for postgres.
func (q *txn) rebind(query string) string {
	if !q.postgres || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// facility loads a facility. With lock the row is locked for the rest of the transaction
// (postgres only, sqlite transactions are serialized anyway).
func (q *txn) facility(id string, lock bool) (model.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE id = ?`
	if lock && q.postgres {
		query += ` FOR UPDATE`
	}
	f, err := scanFacility(q.queryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Facility{}, fmt.Errorf("%w: facility %s", ErrNotFound, id)
	}
	return f, err
}

func (q *txn) booking(id string) (model.Booking, error) {
	b, err := scanBooking(q.queryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return b, err
}

// checkSlot verifies that b may occupy its facility: the facility exists, belongs to the
// tenant, is active and has no other active booking overlapping b.
func (q *txn) checkSlot(b model.Booking) (model.Facility, error) {
	f, err := q.facility(b.FacilityID, true)
	if err != nil {
		return f, err
	}
	if f.TenantID != b.TenantID {
		return f, fmt.Errorf("%w: facility %s", ErrNotFound, b.FacilityID)
	}
	if !b.Active() {
		return f, nil
	}
	if !f.Active {
		return f, fmt.Errorf("%w: %s", ErrFacilityInactive, f.Name)
	}

	var n int
	err = q.queryRow(`SELECT COUNT(*) FROM bookings
		WHERE facility_id = ? AND id <> ? AND status <> ? AND start_ms < ? AND end_ms > ?`,
		b.FacilityID, b.ID, string(model.BookingCancelled), b.End.UnixMilli(), b.Start.UnixMilli()).Scan(&n)
	if err != nil {
		return f, err
	}
	if n > 0 {
		return f, fmt.Errorf("%w: %s is already booked between %s and %s", ErrConflict, f.Name,
			b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
	}
	return f, nil
}

// price computes the price of b from the facility rate and its promotion code.
func (q *txn) price(b model.Booking, f model.Facility) (int64, error) {
	var promo *model.Promotion
	if b.PromotionCode != "" {
		p := model.Promotion{Code: b.PromotionCode}
		err := q.queryRow(`SELECT percent_off FROM promotions WHERE tenant_id = ? AND code = ?`,
			b.TenantID, b.PromotionCode).Scan(&p.PercentOff)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: promotion %s", ErrNotFound, b.PromotionCode)
		}
		if err != nil {
			return 0, err
		}
		promo = &p
	}
	return model.Price(f.HourlyRateCents, b.Start, b.End, promo), nil
}

func (q *txn) insertBooking(b model.Booking) (model.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" || b.Status == model.BookingPending {
		b.Status = model.BookingConfirmed
	}
	f, err := q.checkSlot(b)
	if err != nil {
		return b, err
	}
	if b.PriceCents == 0 {
		if b.PriceCents, err = q.price(b, f); err != nil {
			return b, err
		}
	}
	_, err = q.exec(`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TenantID, b.FacilityID, b.Title, b.Customer, b.Start.UnixMilli(), b.End.UnixMilli(),
		string(b.Status), b.PriceCents, b.PromotionCode)
	return b, err
}

func (q *txn) updateBooking(id string, p model.BookingPatch) (model.Booking, error) {
	current, err := q.booking(id)
	if err != nil {
		return current, err
	}
	if err := model.ValidateBookingPatch(current, p); err != nil {
		return current, err
	}
	b := p.MergeInto(current)

	f, err := q.checkSlot(b)
	if err != nil {
		return b, err
	}
	repriced := p.FacilityID != nil || p.Start != nil || p.End != nil || p.PromotionCode != nil
	if repriced && p.PriceCents == nil {
		if b.PriceCents, err = q.price(b, f); err != nil {
			return b, err
		}
	}

	_, err = q.exec(`UPDATE bookings SET facility_id = ?, title = ?, customer = ?, start_ms = ?, end_ms = ?,
		status = ?, price_cents = ?, promotion_code = ? WHERE id = ?`,
		b.FacilityID, b.Title, b.Customer, b.Start.UnixMilli(), b.End.UnixMilli(),
		string(b.Status), b.PriceCents, b.PromotionCode, id)
	return b, err
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanFacility(row scanner) (model.Facility, error) {
	var f model.Facility
	err := row.Scan(&f.ID, &f.TenantID, &f.Name, &f.Kind, &f.Capacity, &f.HourlyRateCents, &f.Active)
	return f, err
}

func scanBooking(row scanner) (model.Booking, error) {
	var (
		b              model.Booking
		startMs, endMs int64
		status         string
	)
	err := row.Scan(&b.ID, &b.TenantID, &b.FacilityID, &b.Title, &b.Customer, &startMs, &endMs,
		&status, &b.PriceCents, &b.PromotionCode)
	if err != nil {
		return b, err
	}
	b.Start = time.UnixMilli(startMs).UTC()
	b.End = time.UnixMilli(endMs).UTC()
	b.Status = model.BookingStatus(status)
	return b, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
