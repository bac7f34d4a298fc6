// Package cmd implements the command-line interface of dBook. The console
// manages the facilities and bookings of one tenant against a SQL data API.
//
// The package is organized into several subpackages:
//
//   - console: Commands for facilities, bookings, promotions, statistics and the load simulation
//   - serve: Starts the API server that consoles reach with --driver rpc
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dbook -help for a list of all commands.
package cmd
