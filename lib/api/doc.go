// Package api is the remote side of the booking console: the relational data API that
// confirms or rejects the changes the optimistic engine already applied locally.
//
// IBookingAPI is implemented by SQLAPI on database/sql, with two drivers:
//
//	sqlite   modernc.org/sqlite (pure go, default, ":memory:" or a file path)
//	pgx      github.com/jackc/pgx/v5/stdlib (postgres DSN)
//
// The API enforces what the console cannot: bookings of one facility must not overlap,
// inactive facilities cannot be booked and facilities with bookings cannot be deleted.
// Batch calls run in one transaction.
//
// WithFaults wraps any IBookingAPI with latency and random failures (ErrInjected), which
// is how the console's simulate command exercises rollbacks and retries.
package api
