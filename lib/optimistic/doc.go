// Package optimistic provides an optimistic mutation engine: a change is applied to locally
// held records before a remote authority confirms it, and is then reconciled, rolled back,
// retried or batched depending on the outcome of the confirmation call.
//
// The engine is single-client, in-memory and session-scoped. It is generic over the record
// type T; partial updates are typed Partial[T] values that merge field by field.
//
// Key Components:
//
//   - IRecordStore: An ordered collection of Record[T] with primitive mutators (Add, Update,
//     Remove, Rollback, RollbackAll, ClearErrors) plus the state machine helpers the
//     coordinators are built on. It has no knowledge of networking. All mutators are safe
//     no-ops for unknown tokens. The in-memory implementation is created with NewRecordStore.
//
//   - Auto-Rollback: With StoreOptions.AutoRollback every added record gets a countdown. A
//     record that is not resolved (removed, confirmed or rolled back) in time is rolled back
//     by the store itself. The countdowns are serviced by one goroutine per store and torn
//     down by Close.
//
//   - Coordinator: Wraps a store with the Create, Update and Remove verbs. Each verb takes a
//     confirmation function, blocks on it and drives the record through its life cycle.
//     Confirmation errors are always returned after the local reconciliation, wrapped in an
//     *Error with code RetCConfirmFailed.
//
//   - BatchCoordinator: Applies N changes as one logical operation with a single
//     confirmation (BatchCreate, BatchUpdate, BatchDelete). A failed batch is reconciled
//     for every item, never for a subset.
//
//   - RetryManager: Resubmits records in StatusError, one by one (RetryFailed) or all of
//     them in sequence (RetryAllFailed), isolating the failures of individual retries.
//
// Record life cycle:
//
//	Add ------------> Pending --(confirm ok)------> removed (create) / Success (update)
//	                     |  \---(confirm fails)---> Rollback, or Error with RetainFailures
//	                     \------(timer expires)---> Rollback
//	Error --(retry)--> Pending
//
// A rolled back record stays in the store with its last data, so the change stays visible
// to the user until the caller decides what to do with it.
//
// Usage:
//
//	c := optimistic.New[Booking, Booking](optimistic.Options[Booking, Booking]{
//		Name:           "bookings",
//		ErrorMessage:   "booking could not be saved",
//		AutoRollback:   true,
//		RollbackDelay:  10 * time.Second,
//		RetainFailures: true,
//	})
//	defer c.Close()
//
//	_, created, err := c.Create(ctx, draft, func(ctx context.Context, b Booking) (Booking, error) {
//		return api.CreateBooking(ctx, b)
//	})
//	if err == nil {
//		c.Store().Seed(created)
//	}
//
//	retry := optimistic.NewRetryManager(c)
//	retry.RetryAllFailed(ctx, api.CreateBooking)
//
// Metrics:
//
//	Every coordinator counts its mutations, rollbacks and retries in a VictoriaMetrics set
//	(see Metrics.WritePrometheus) and tracks the confirmation latency in a go-metrics timer.
package optimistic
