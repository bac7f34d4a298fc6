package optimistic

import (
	"context"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("optimistic")

// --------------------------------------------------------------------------
// Confirmation Functions
// --------------------------------------------------------------------------

// The confirmation functions ask the remote authority to accept a speculative change.
// They must return a non-nil error on any remote failure (the coordinator has no other
// way to detect one) and should give up once ctx is done.
type (
	CreateFunc[T, R any] func(ctx context.Context, value T) (R, error)
	UpdateFunc[T, R any] func(ctx context.Context, id Token, partial Partial[T]) (R, error)
	RemoveFunc[R any]    func(ctx context.Context, id Token) (R, error)
)

// --------------------------------------------------------------------------
// Mutation Coordinator
// --------------------------------------------------------------------------

// Coordinator drives single records through their life cycle:
//
//	Pending --(confirm succeeds)--> removed (create) / Success (update)
//	Pending --(confirm fails)-----> Rollback (or Error with RetainFailures)
//
// Every verb applies its change to the store first, blocks on the confirmation and then
// reconciles the store. Confirmation errors are always returned after the reconciliation,
// wrapped in an *Error with code RetCConfirmFailed.
//
// Thread-safety: all verbs can be called concurrently. For one record the last mutation
// wins; concurrent updates of the same record are not sequenced.
type Coordinator[T, R any] struct {
	name      string
	opts      Options[T, R]
	store     IRecordStore[T]
	notifier  Notifier
	metrics   *Metrics
	ownsStore bool // the store was created by New (closed together, rollbacks counted by its hook)
}

// New creates a coordinator with its own record store configured from opts.
//
// Usage:
//
//	c := optimistic.New[model.Booking, model.Booking](optimistic.Options[model.Booking, model.Booking]{
//		Name:          "bookings",
//		AutoRollback:  true,
//		RollbackDelay: 10 * time.Second,
//	})
//	defer c.Close()
//
//	id, created, err := c.Create(ctx, booking, api.CreateBooking)
func New[T, R any](opts Options[T, R]) *Coordinator[T, R] {
	c := &Coordinator[T, R]{
		name:      opts.name(),
		opts:      opts,
		notifier:  opts.notifier(),
		ownsStore: true,
	}
	c.store = NewRecordStore(StoreOptions[T]{
		Name:          c.name,
		AutoRollback:  opts.AutoRollback,
		RollbackDelay: opts.RollbackDelay,
		OnRollback: func(data T) {
			c.metrics.rollback()
			if opts.OnRollback != nil {
				opts.OnRollback(data)
			}
		},
	})
	c.metrics = newMetrics(c.name, c.pendingRecords)
	return c
}

// NewCoordinator creates a coordinator on top of an existing store. The store options
// (auto-rollback, OnRollback) are owned by whoever created the store, so opts.AutoRollback,
// opts.RollbackDelay and opts.OnRollback are ignored here.
func NewCoordinator[T, R any](store IRecordStore[T], opts Options[T, R]) *Coordinator[T, R] {
	c := &Coordinator[T, R]{
		name:     opts.name(),
		opts:     opts,
		store:    store,
		notifier: opts.notifier(),
	}
	c.metrics = newMetrics(c.name, c.pendingRecords)
	return c
}

// Create adds value as a pending record and confirms it.
//
// On success the speculative record is removed: the caller merges the confirmed object
// (e.g. via Store().Seed) if it should stay visible. On failure the record is rolled back
// (it stays visible with its data) or, with RetainFailures, marked as failed for a retry.
// The token is returned in both cases.
func (c *Coordinator[T, R]) Create(ctx context.Context, value T, confirm CreateFunc[T, R]) (Token, R, error) {
	var zero R
	if confirm == nil {
		return "", zero, NewError(RetCValidation, "create: missing confirmation function")
	}

	id := c.store.Add(value)
	Logger.Debugf("%s: create %s pending", c.name, id)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, value)
	})
	if err != nil {
		if c.opts.RetainFailures {
			c.store.MarkError(id, err)
		} else {
			c.rollback(id)
		}
		return id, result, c.fail(VerbCreate, id.String(), err)
	}

	c.store.Remove(id)
	c.succeed(VerbCreate, id.String(), result)
	return id, result, nil
}

// Update merges partial into the record and confirms it.
//
// Before the merge the current data is captured (unless KeepFailedUpdates is set), so a
// failed confirmation restores the previous value. On success the record is confirmed
// (StatusSuccess, not optimistic), on failure it is rolled back.
// Unknown ids do not touch the store, but the confirmation still runs.
func (c *Coordinator[T, R]) Update(ctx context.Context, id Token, partial Partial[T], confirm UpdateFunc[T, R]) (R, error) {
	var zero R
	if confirm == nil {
		return zero, NewError(RetCValidation, "update: missing confirmation function")
	}

	snapshot := false
	if !c.opts.KeepFailedUpdates {
		snapshot = c.store.Checkpoint(id)
	}
	c.store.Update(id, partial)
	c.store.MarkPending(id)
	Logger.Debugf("%s: update %s pending", c.name, id)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, id, partial)
	})
	if err != nil {
		if snapshot {
			c.store.Restore(id)
		}
		c.rollback(id)
		return result, c.fail(VerbUpdate, id.String(), err)
	}

	c.store.Confirm(id)
	c.succeed(VerbUpdate, id.String(), result)
	return result, nil
}

// Remove deletes the record and confirms the deletion.
//
// On failure the removed record comes back: by default as a new pending record under a
// fresh token, with PreserveTokens under its original token at its original position.
func (c *Coordinator[T, R]) Remove(ctx context.Context, id Token, confirm RemoveFunc[R]) (R, error) {
	var zero R
	if confirm == nil {
		return zero, NewError(RetCValidation, "remove: missing confirmation function")
	}

	rec, found := c.store.Get(id)
	index := c.store.IndexOf(id)
	c.store.Remove(id)
	Logger.Debugf("%s: remove %s pending", c.name, id)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, id)
	})
	if err != nil {
		if found {
			restored := c.restoreRemoved(rec, index)
			Logger.Debugf("%s: remove of %s failed, restored as %s", c.name, id, restored)
		}
		return result, c.fail(VerbRemove, id.String(), err)
	}

	c.succeed(VerbRemove, id.String(), result)
	return result, nil
}

// Store returns the record store backing the coordinator.
func (c *Coordinator[T, R]) Store() IRecordStore[T] {
	return c.store
}

// Name returns the coordinator name.
func (c *Coordinator[T, R]) Name() string {
	return c.name
}

// Metrics returns the counters of the coordinator.
func (c *Coordinator[T, R]) Metrics() *Metrics {
	return c.metrics
}

// ConfirmLatency returns the timer tracking how long confirmations take.
func (c *Coordinator[T, R]) ConfirmLatency() gometrics.Timer {
	return c.metrics.Latency()
}

// Close releases the metrics and, if the store was created by New, closes the store.
func (c *Coordinator[T, R]) Close() error {
	c.metrics.close()
	if c.ownsStore {
		return c.store.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// confirm runs call and records its latency. A context that is already done fails the
// confirmation without calling the remote authority.
func (c *Coordinator[T, R]) confirm(ctx context.Context, call func(ctx context.Context) (R, error)) (R, error) {
	if err := ctx.Err(); err != nil {
		var zero R
		return zero, err
	}
	start := time.Now()
	result, err := call(ctx)
	c.metrics.observe(start)
	return result, err
}

// rollback rolls id back unless another path (e.g. the auto-rollback) already resolved it.
// Rollbacks of a store created by New are counted by its hook.
func (c *Coordinator[T, R]) rollback(id Token) {
	if !c.store.IsOptimistic(id) {
		return
	}
	if !c.ownsStore {
		c.metrics.rollback()
	}
	c.store.Rollback(id)
}

// restoreRemoved puts a removed record back and returns the token it lives under now.
func (c *Coordinator[T, R]) restoreRemoved(rec Record[T], index int) Token {
	if c.opts.PreserveTokens {
		c.store.Reinsert(rec, index)
		return rec.ID
	}
	return c.store.Add(rec.Data)
}

func (c *Coordinator[T, R]) succeed(verb, subject string, result R) {
	c.metrics.mutation(verb, nil)
	Logger.Debugf("%s: %s %s confirmed", c.name, verb, subject)
	if c.opts.OnSuccess != nil {
		c.opts.OnSuccess(result)
	}
	if c.opts.SuccessMessage != "" {
		c.notifier.Notify(LevelSuccess, c.name, c.opts.SuccessMessage, nil)
	}
}

// fail reports a failed confirmation and returns the error handed to the caller.
func (c *Coordinator[T, R]) fail(verb, subject string, cause error) error {
	err := WrapError(RetCConfirmFailed, verb+" "+subject, cause)
	c.metrics.mutation(verb, err)
	Logger.Debugf("%s: %s %s failed: %v", c.name, verb, subject, cause)
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
	if c.opts.ErrorMessage != "" {
		c.notifier.Notify(LevelError, c.name, c.opts.ErrorMessage, err)
	}
	return err
}

// pendingRecords counts the optimistic records of the store.
func (c *Coordinator[T, R]) pendingRecords() int {
	n := 0
	for _, rec := range c.store.Records() {
		if rec.IsOptimistic {
			n++
		}
	}
	return n
}
