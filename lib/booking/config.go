package booking

import (
	"time"

	"github.com/ValentinKolb/dBook/lib/optimistic"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("booking")

// Config configures the adapters. Every adapter of one console shares it.
type Config struct {
	Tenant string // Every booking and facility belongs to this tenant

	AutoRollback  bool          // See optimistic.Options
	RollbackDelay time.Duration // See optimistic.Options

	RetainFailures    bool // Failed creates stay visible in StatusError and can be retried
	PreserveTokens    bool // Failed deletes come back under their original token
	KeepFailedUpdates bool // Failed updates keep the rejected value

	// Notifier receives the success and error messages of every adapter (default: logger).
	Notifier optimistic.Notifier
}

// options builds the coordinator options of one adapter.
func options[T, R any](cfg Config, name, success, failure string) optimistic.Options[T, R] {
	return optimistic.Options[T, R]{
		Name:              name,
		SuccessMessage:    success,
		ErrorMessage:      failure,
		AutoRollback:      cfg.AutoRollback,
		RollbackDelay:     cfg.RollbackDelay,
		Notifier:          cfg.Notifier,
		RetainFailures:    cfg.RetainFailures,
		PreserveTokens:    cfg.PreserveTokens,
		KeepFailedUpdates: cfg.KeepFailedUpdates,
	}
}

// unknown is returned for ids the adapter does not hold.
func unknown(kind, id string) error {
	return optimistic.NewError(optimistic.RetCUnknownRecord, "unknown "+kind+" "+id)
}

// neverConfirmed is returned for records that do not exist on the server yet.
func neverConfirmed(kind, id string) error {
	return optimistic.NewError(optimistic.RetCInvalidState, kind+" "+id+" was never confirmed")
}

// settle confirms the records restored after a failed delete: the server still holds
// them unchanged, so they are not speculative. serverID extracts the server id of a value.
func settle[T any](store optimistic.IRecordStore[T], serverID func(T) string, serverIDs ...string) {
	ids := make(map[string]bool, len(serverIDs))
	for _, id := range serverIDs {
		ids[id] = true
	}
	for _, rec := range store.Records() {
		if rec.IsOptimistic && ids[serverID(rec.Data)] {
			store.Confirm(rec.ID)
		}
	}
}
