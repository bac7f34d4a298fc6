// Package booking connects the optimistic engine to the booking API. It holds the read
// models the console renders.
//
// Adapters:
//
//	Bookings    single bookings (create, update, cancel, delete), weekly series and
//	            multi-selections (batch create, reschedule, delete), retries of failed creates
//	Facilities  facilities (create, update, deactivate, delete)
//	Dashboard   totals, revenue, utilization per facility and confirmation latency
//
// Each adapter validates its input with the model package before touching the store, so
// invalid input never shows up as a speculative record. Confirmed server objects (with
// server id and price) are merged back into the store with Seed.
//
// Seed files (TOML, see Seed) populate an empty database. WriteExport dumps the read model
// as JSON.
package booking
