package optimistic

import (
	"context"
	"fmt"
	"slices"
)

// Update is one entry of a batch update.
type Update[T any] struct {
	ID    Token
	Patch Partial[T]
}

// Batch confirmation functions confirm a whole batch with a single call. The remote
// authority either accepts every item or none: a partial success can not be told apart
// from a failure.
type (
	BatchCreateFunc[T, R any] func(ctx context.Context, items []T) (R, error)
	BatchUpdateFunc[T, R any] func(ctx context.Context, updates []Update[T]) (R, error)
	BatchDeleteFunc[R any]    func(ctx context.Context, ids []Token) (R, error)
)

// --------------------------------------------------------------------------
// Batch Coordinator
// --------------------------------------------------------------------------

// BatchCoordinator applies N speculative changes as one logical operation on top of a
// Coordinator (sharing its store, options and metrics). A failed batch confirmation is
// reconciled for every item of the batch.
//
// Empty batches are a no-op: the confirmation is not called.
type BatchCoordinator[T, R any] struct {
	c *Coordinator[T, R]
}

// NewBatchCoordinator creates a batch coordinator for c.
func NewBatchCoordinator[T, R any](c *Coordinator[T, R]) *BatchCoordinator[T, R] {
	return &BatchCoordinator[T, R]{c: c}
}

// BatchCreate adds every item as a pending record and confirms them with one call.
// On success every record is removed, on failure every record is rolled back (or marked
// as failed with RetainFailures). The tokens are returned in item order.
func (b *BatchCoordinator[T, R]) BatchCreate(ctx context.Context, items []T, confirm BatchCreateFunc[T, R]) ([]Token, R, error) {
	var zero R
	if confirm == nil {
		return nil, zero, NewError(RetCValidation, "batch create: missing confirmation function")
	}
	if len(items) == 0 {
		return nil, zero, nil
	}

	c := b.c
	ids := make([]Token, len(items))
	for i, item := range items {
		ids[i] = c.store.Add(item)
	}
	subject := batchSubject(len(ids))
	Logger.Debugf("%s: batch create of %s pending", c.name, subject)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, items)
	})
	if err != nil {
		for _, id := range ids {
			if c.opts.RetainFailures {
				c.store.MarkError(id, err)
			} else {
				c.rollback(id)
			}
		}
		return ids, result, c.fail(VerbBatchCreate, subject, err)
	}

	for _, id := range ids {
		c.store.Remove(id)
	}
	c.succeed(VerbBatchCreate, subject, result)
	return ids, result, nil
}

// BatchUpdate applies every update and confirms them with one call.
// Each target's data is captured before the batch; on failure every target is restored to
// that snapshot and rolled back, on success every target is confirmed.
func (b *BatchCoordinator[T, R]) BatchUpdate(ctx context.Context, updates []Update[T], confirm BatchUpdateFunc[T, R]) (R, error) {
	var zero R
	if confirm == nil {
		return zero, NewError(RetCValidation, "batch update: missing confirmation function")
	}
	if len(updates) == 0 {
		return zero, nil
	}

	c := b.c
	targets := distinctTargets(updates)
	snapshots := make(map[Token]bool, len(targets))
	for _, id := range targets {
		snapshots[id] = c.store.Checkpoint(id)
	}
	for _, u := range updates {
		c.store.Update(u.ID, u.Patch)
	}
	for _, id := range targets {
		c.store.MarkPending(id)
	}
	subject := batchSubject(len(targets))
	Logger.Debugf("%s: batch update of %s pending", c.name, subject)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, updates)
	})
	if err != nil {
		for _, id := range targets {
			if snapshots[id] {
				c.store.Restore(id)
			}
			c.rollback(id)
		}
		return result, c.fail(VerbBatchUpdate, subject, err)
	}

	for _, id := range targets {
		c.store.Confirm(id)
	}
	c.succeed(VerbBatchUpdate, subject, result)
	return result, nil
}

// BatchDelete removes every record and confirms the deletion with one call.
// On failure every removed record comes back in its original order: under fresh tokens by
// default, under the original tokens at their original positions with PreserveTokens.
func (b *BatchCoordinator[T, R]) BatchDelete(ctx context.Context, ids []Token, confirm BatchDeleteFunc[R]) (R, error) {
	var zero R
	if confirm == nil {
		return zero, NewError(RetCValidation, "batch delete: missing confirmation function")
	}
	if len(ids) == 0 {
		return zero, nil
	}

	c := b.c

	// snapshot everything before the first removal so the positions are consistent
	type removed struct {
		rec   Record[T]
		index int
	}
	var snapshots []removed
	seen := make(map[Token]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rec, ok := c.store.Get(id)
		if !ok {
			continue
		}
		snapshots = append(snapshots, removed{rec: rec, index: c.store.IndexOf(id)})
	}
	slices.SortFunc(snapshots, func(a, b removed) int {
		return a.index - b.index
	})
	for _, id := range ids {
		c.store.Remove(id)
	}
	subject := batchSubject(len(ids))
	Logger.Debugf("%s: batch delete of %s pending", c.name, subject)

	result, err := c.confirm(ctx, func(ctx context.Context) (R, error) {
		return confirm(ctx, ids)
	})
	if err != nil {
		// ascending original positions, so every reinsert lands where it was
		for _, s := range snapshots {
			c.restoreRemoved(s.rec, s.index)
		}
		return result, c.fail(VerbBatchDelete, subject, err)
	}

	c.succeed(VerbBatchDelete, subject, result)
	return result, nil
}

// Coordinator returns the underlying coordinator.
func (b *BatchCoordinator[T, R]) Coordinator() *Coordinator[T, R] {
	return b.c
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// distinctTargets returns the ids of updates without duplicates, in first-seen order.
func distinctTargets[T any](updates []Update[T]) []Token {
	seen := make(map[Token]struct{}, len(updates))
	targets := make([]Token, 0, len(updates))
	for _, u := range updates {
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		targets = append(targets, u.ID)
	}
	return targets
}

func batchSubject(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
