package optimistic

import (
	"context"
)

// --------------------------------------------------------------------------
// Retry Manager
// --------------------------------------------------------------------------

// RetryManager resubmits the confirmation of records in StatusError (see
// Options.RetainFailures), either one by one or all of them in sequence.
type RetryManager[T, R any] struct {
	c *Coordinator[T, R]
}

// NewRetryManager creates a retry manager for c.
func NewRetryManager[T, R any](c *Coordinator[T, R]) *RetryManager[T, R] {
	return &RetryManager[T, R]{c: c}
}

// RetryFailed confirms the data of a failed record again.
//
// The record must exist (RetCUnknownRecord otherwise) and be in StatusError (RetCInvalidState
// otherwise). It is marked pending while the confirmation runs. On success it is removed,
// on failure it goes back to StatusError and the error is returned; it is not rolled back.
func (m *RetryManager[T, R]) RetryFailed(ctx context.Context, id Token, confirm CreateFunc[T, R]) (R, error) {
	var zero R
	if confirm == nil {
		return zero, NewError(RetCValidation, "retry: missing confirmation function")
	}

	c := m.c
	rec, ok := c.store.Get(id)
	if !ok {
		return zero, NewError(RetCUnknownRecord, "retry: unknown record "+id.String())
	}
	if rec.Status != StatusError {
		return zero, NewError(RetCInvalidState, "retry: record "+id.String()+" is "+rec.Status.String())
	}

	c.store.MarkPending(id)
	Logger.Debugf("%s: retry of %s pending", c.name, id)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, rec.Data)
	})
	c.metrics.retry(err)
	if err != nil {
		c.store.MarkError(id, err)
		return result, c.fail(VerbRetry, id.String(), err)
	}

	c.store.Remove(id)
	c.succeed(VerbRetry, id.String(), result)
	return result, nil
}

// RetryAllFailed retries every optimistic record in StatusError sequentially, in insertion
// order. A failing retry is logged and skipped. It stops early once ctx is done.
// The results of the successful retries are returned.
func (m *RetryManager[T, R]) RetryAllFailed(ctx context.Context, confirm CreateFunc[T, R]) []R {
	failed := m.Failed()
	results := make([]R, 0, len(failed))
	for _, rec := range failed {
		if ctx.Err() != nil {
			Logger.Infof("%s: retry of failed records interrupted: %v", m.c.name, ctx.Err())
			break
		}
		result, err := m.RetryFailed(ctx, rec.ID, confirm)
		if err != nil {
			Logger.Warningf("%s: retry of %s failed: %v", m.c.name, rec.ID, err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the records RetryAllFailed would pick up.
func (m *RetryManager[T, R]) Failed() []Record[T] {
	var failed []Record[T]
	for _, rec := range m.c.store.Records() {
		if rec.IsOptimistic && rec.Status == StatusError {
			failed = append(failed, rec)
		}
	}
	return failed
}

// Coordinator returns the underlying coordinator.
func (m *RetryManager[T, R]) Coordinator() *Coordinator[T, R] {
	return m.c
}
