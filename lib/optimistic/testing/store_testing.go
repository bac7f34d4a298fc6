package testing

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dBook/lib/optimistic"
	"github.com/google/go-cmp/cmp"
)

// Item is the record type used by the suite.
type Item struct {
	ID    string
	Name  string
	Count int
}

// ItemPatch is a partial update of an Item. Nil fields are left unchanged.
type ItemPatch struct {
	Name  *string
	Count *int
}

func (p ItemPatch) MergeInto(current Item) Item {
	if p.Name != nil {
		current.Name = *p.Name
	}
	if p.Count != nil {
		current.Count = *p.Count
	}
	return current
}

// StoreFactory creates a new, empty store with the given options.
type StoreFactory func(opts optimistic.StoreOptions[Item]) optimistic.IRecordStore[Item]

// rollbackDelay is the auto-rollback delay used by the timing tests.
const rollbackDelay = 50 * time.Millisecond

// RunRecordStoreTests runs a comprehensive test suite for an IRecordStore implementation.
func RunRecordStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Add&Get", func(t *testing.T) {
			testAddGet(t, factory)
		})

		t.Run("UniqueTokens", func(t *testing.T) {
			testUniqueTokens(t, factory)
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory)
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory)
		})

		t.Run("Rollback", func(t *testing.T) {
			testRollback(t, factory)
		})

		t.Run("RollbackAll", func(t *testing.T) {
			testRollbackAll(t, factory)
		})

		t.Run("ClearErrors", func(t *testing.T) {
			testClearErrors(t, factory)
		})

		t.Run("Checkpoint&Restore", func(t *testing.T) {
			testCheckpointRestore(t, factory)
		})

		t.Run("StateTransitions", func(t *testing.T) {
			testStateTransitions(t, factory)
		})

		t.Run("Reinsert", func(t *testing.T) {
			testReinsert(t, factory)
		})

		t.Run("InsertionOrder", func(t *testing.T) {
			testInsertionOrder(t, factory)
		})

		t.Run("Subscribe", func(t *testing.T) {
			testSubscribe(t, factory)
		})

		t.Run("ConcurrentSubscribe", func(t *testing.T) {
			testConcurrentSubscribe(t, factory)
		})

		t.Run("SubscriberChangesStore", func(t *testing.T) {
			testSubscriberChangesStore(t, factory)
		})

		t.Run("AutoRollback", func(t *testing.T) {
			testAutoRollback(t, factory)
		})

		t.Run("AutoRollbackCancelled", func(t *testing.T) {
			testAutoRollbackCancelled(t, factory)
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory)
		})

		t.Run("CloseFromOnRollback", func(t *testing.T) {
			testCloseFromOnRollback(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func newStore(t testing.TB, factory StoreFactory, opts optimistic.StoreOptions[Item]) optimistic.IRecordStore[Item] {
	t.Helper()
	s := factory(opts)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func mustGet(t testing.TB, s optimistic.IRecordStore[Item], id optimistic.Token) optimistic.Record[Item] {
	t.Helper()
	rec, ok := s.Get(id)
	if !ok {
		t.Fatalf("Expected record %s to exist", id)
	}
	return rec
}

// waitFor polls cond until it holds or the timeout elapsed.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func ptr[V any](v V) *V {
	return &v
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func testAddGet(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})

	item := Item{ID: "x", Name: "n"}
	id := s.Add(item)

	if !id.Valid() {
		t.Errorf("Expected a valid token, got %q", id)
	}
	if diff := cmp.Diff([]Item{item}, s.Data()); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}

	rec := mustGet(t, s, id)
	if rec.ID != id || rec.Status != optimistic.StatusPending || !rec.IsOptimistic {
		t.Errorf("Expected pending optimistic record %s, got %+v", id, rec)
	}
	if rec.OriginalData != nil || rec.Error != "" {
		t.Errorf("Expected no snapshot and no error, got %+v", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Errorf("Expected creation timestamp to be set")
	}
	if !s.IsOptimistic(id) {
		t.Errorf("Expected IsOptimistic(%s) to be true", id)
	}

	if _, ok := s.Get("opt-unknown-1"); ok {
		t.Errorf("Expected unknown token to be absent")
	}
	if s.IsOptimistic("opt-unknown-1") {
		t.Errorf("Expected IsOptimistic of unknown token to be false")
	}
}

func testUniqueTokens(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})

	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	tokens := make(chan optimistic.Token, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				tokens <- s.Add(Item{ID: fmt.Sprintf("%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()
	close(tokens)

	seen := make(map[optimistic.Token]struct{}, workers*perWorker)
	for id := range tokens {
		if _, dup := seen[id]; dup {
			t.Fatalf("Token %s was minted twice", id)
		}
		seen[id] = struct{}{}
	}
	if s.Len() != workers*perWorker {
		t.Errorf("Expected %d records, got %d", workers*perWorker, s.Len())
	}
}

func testUpdate(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})
	id := s.Add(Item{ID: "a", Name: "before", Count: 1})

	s.Update(id, ItemPatch{Name: ptr("after")})

	rec := mustGet(t, s, id)
	if diff := cmp.Diff(Item{ID: "a", Name: "after", Count: 1}, rec.Data); diff != "" {
		t.Errorf("Update did not merge (-want +got):\n%s", diff)
	}
	if rec.Status != optimistic.StatusPending || !rec.IsOptimistic || rec.OriginalData != nil {
		t.Errorf("Update must not touch status, flag or snapshot, got %+v", rec)
	}

	// full replacement and function patches
	s.Update(id, optimistic.Replace(Item{ID: "a", Name: "replaced"}))
	s.Update(id, optimistic.PatchFunc[Item](func(cur Item) Item {
		cur.Count += 41
		return cur
	}))
	if diff := cmp.Diff(Item{ID: "a", Name: "replaced", Count: 41}, mustGet(t, s, id).Data); diff != "" {
		t.Errorf("Update mismatch (-want +got):\n%s", diff)
	}

	// unknown ids and nil partials are no-ops
	before := s.Data()
	s.Update("opt-unknown-1", ItemPatch{Name: ptr("ghost")})
	s.Update(id, nil)
	if diff := cmp.Diff(before, s.Data()); diff != "" {
		t.Errorf("No-op updates changed the data (-want +got):\n%s", diff)
	}
}

func testRemove(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})
	a := s.Add(Item{ID: "a"})
	b := s.Add(Item{ID: "b"})

	s.Remove(a)

	if _, ok := s.Get(a); ok {
		t.Errorf("Expected %s to be removed", a)
	}
	if s.IsOptimistic(a) {
		t.Errorf("Expected IsOptimistic(%s) to be false after Remove", a)
	}
	if s.IndexOf(a) != -1 {
		t.Errorf("Expected IndexOf of removed record to be -1")
	}
	if diff := cmp.Diff([]Item{{ID: "b"}}, s.Data()); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}

	// removing twice or an unknown id is a no-op
	s.Remove(a)
	s.Remove("opt-unknown-1")
	if s.Len() != 1 || !s.IsOptimistic(b) {
		t.Errorf("No-op removes changed the store")
	}
}

func testRollback(t *testing.T, factory StoreFactory) {
	var (
		mu         sync.Mutex
		rolledBack []Item
	)
	s := newStore(t, factory, optimistic.StoreOptions[Item]{
		OnRollback: func(data Item) {
			mu.Lock()
			rolledBack = append(rolledBack, data)
			mu.Unlock()
		},
	})

	id := s.Add(Item{ID: "a", Name: "speculative"})
	s.Rollback(id)

	rec := mustGet(t, s, id)
	if rec.Status != optimistic.StatusRollback || rec.IsOptimistic {
		t.Errorf("Expected rolled back record, got %+v", rec)
	}
	if rec.Data.Name != "speculative" {
		t.Errorf("Rollback must keep the last data, got %+v", rec.Data)
	}
	if s.IsOptimistic(id) {
		t.Errorf("Expected IsOptimistic(%s) to be false after Rollback", id)
	}

	s.Rollback("opt-unknown-1")

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]Item{{ID: "a", Name: "speculative"}}, rolledBack); diff != "" {
		t.Errorf("OnRollback calls mismatch (-want +got):\n%s", diff)
	}
}

func testRollbackAll(t *testing.T, factory StoreFactory) {
	var rolledBack []Item
	s := newStore(t, factory, optimistic.StoreOptions[Item]{
		OnRollback: func(data Item) {
			rolledBack = append(rolledBack, data)
		},
	})

	seeded := s.Seed(Item{ID: "confirmed"})
	a := s.Add(Item{ID: "a"})
	b := s.Add(Item{ID: "b"})

	s.RollbackAll()

	for _, id := range []optimistic.Token{a, b} {
		if rec := mustGet(t, s, id); rec.Status != optimistic.StatusRollback || rec.IsOptimistic {
			t.Errorf("Expected %s to be rolled back, got %+v", id, rec)
		}
	}
	if rec := mustGet(t, s, seeded[0]); rec.Status != optimistic.StatusSuccess {
		t.Errorf("Expected confirmed record to be untouched, got %+v", rec)
	}
	if diff := cmp.Diff([]Item{{ID: "a"}, {ID: "b"}}, rolledBack); diff != "" {
		t.Errorf("OnRollback calls mismatch (-want +got):\n%s", diff)
	}

	// nothing optimistic is left, so a second call does nothing
	s.RollbackAll()
	if len(rolledBack) != 2 {
		t.Errorf("Expected no further rollbacks, got %d", len(rolledBack))
	}
}

func testClearErrors(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})
	a := s.Add(Item{ID: "a"})
	b := s.Add(Item{ID: "b"})
	s.MarkError(a, errors.New("network down"))

	if rec := mustGet(t, s, a); rec.Status != optimistic.StatusError || rec.Error != "network down" {
		t.Fatalf("Expected error record, got %+v", rec)
	}

	s.ClearErrors()
	once := s.Records()
	s.ClearErrors()
	twice := s.Records()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("ClearErrors is not idempotent (-once +twice):\n%s", diff)
	}
	if rec := mustGet(t, s, a); rec.Status != optimistic.StatusSuccess || rec.Error != "" {
		t.Errorf("Expected cleared record, got %+v", rec)
	}
	if rec := mustGet(t, s, b); rec.Status != optimistic.StatusPending {
		t.Errorf("ClearErrors must not touch pending records, got %+v", rec)
	}
}

func testCheckpointRestore(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})
	id := s.Seed(Item{ID: "a", Name: "v1"})[0]

	if s.Restore(id) {
		t.Errorf("Restore without snapshot must report false")
	}
	if !s.Checkpoint(id) {
		t.Fatalf("Checkpoint of existing record must report true")
	}
	s.Update(id, ItemPatch{Name: ptr("v2")})

	// a second checkpoint keeps the first snapshot
	s.Checkpoint(id)
	s.Update(id, ItemPatch{Name: ptr("v3")})

	rec := mustGet(t, s, id)
	if rec.OriginalData == nil || rec.OriginalData.Name != "v1" {
		t.Fatalf("Expected snapshot v1, got %+v", rec.OriginalData)
	}

	// Get returns a copy
	rec.OriginalData.Name = "mutated"
	if mustGet(t, s, id).OriginalData.Name != "v1" {
		t.Errorf("Get must not expose the stored snapshot")
	}

	if !s.Restore(id) {
		t.Fatalf("Restore with snapshot must report true")
	}
	rec = mustGet(t, s, id)
	if rec.Data.Name != "v1" || rec.OriginalData != nil {
		t.Errorf("Expected restored data without snapshot, got %+v", rec)
	}

	if s.Checkpoint("opt-unknown-1") || s.Restore("opt-unknown-1") {
		t.Errorf("Checkpoint/Restore of unknown ids must report false")
	}
}

func testStateTransitions(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})
	id := s.Add(Item{ID: "a"})

	steps := []struct {
		name       string
		apply      func()
		status     optimistic.Status
		optimistic bool
		err        string
	}{
		{"MarkError", func() { s.MarkError(id, errors.New("boom")) }, optimistic.StatusError, true, "boom"},
		{"MarkPending", func() { s.MarkPending(id) }, optimistic.StatusPending, true, ""},
		{"MarkErrorNil", func() { s.MarkError(id, nil) }, optimistic.StatusError, true, "unknown error"},
		{"Confirm", func() { s.Confirm(id) }, optimistic.StatusSuccess, false, ""},
	}
	for _, step := range steps {
		step.apply()
		rec := mustGet(t, s, id)
		if rec.Status != step.status || rec.IsOptimistic != step.optimistic || rec.Error != step.err {
			t.Errorf("%s: expected status=%s optimistic=%v error=%q, got %+v",
				step.name, step.status, step.optimistic, step.err, rec)
		}
	}

	// unknown ids are no-ops
	s.Confirm("opt-unknown-1")
	s.MarkPending("opt-unknown-1")
	s.MarkError("opt-unknown-1", errors.New("boom"))
	if s.Len() != 1 {
		t.Errorf("Expected 1 record, got %d", s.Len())
	}
}

func testReinsert(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})
	ids := s.Seed(Item{ID: "a"}, Item{ID: "b"}, Item{ID: "c"})

	rec := mustGet(t, s, ids[1])
	s.Remove(ids[1])
	s.Reinsert(rec, 1)

	if diff := cmp.Diff([]Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}, s.Data()); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}
	if got := s.IndexOf(ids[1]); got != 1 {
		t.Errorf("Expected %s at index 1, got %d", ids[1], got)
	}

	// a token that is still present is left alone
	s.Reinsert(optimistic.Record[Item]{ID: ids[0], Data: Item{ID: "dup"}}, 0)
	if s.Len() != 3 || mustGet(t, s, ids[0]).Data.ID != "a" {
		t.Errorf("Reinsert of a present token changed the store")
	}

	// positions are clamped
	removed := mustGet(t, s, ids[2])
	s.Remove(ids[2])
	s.Reinsert(removed, 99)
	if got := s.IndexOf(ids[2]); got != 2 {
		t.Errorf("Expected clamped index 2, got %d", got)
	}
}

func testInsertionOrder(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})

	var ids []optimistic.Token
	for i := 0; i < 10; i++ {
		ids = append(ids, s.Add(Item{ID: fmt.Sprint(i), Count: i}))
	}
	for i := 0; i < 10; i += 3 {
		s.Remove(ids[i])
	}
	s.Rollback(ids[1])
	s.Update(ids[2], ItemPatch{Count: ptr(20)})

	want := []Item{{ID: "1", Count: 1}, {ID: "2", Count: 20}, {ID: "4", Count: 4}, {ID: "5", Count: 5},
		{ID: "7", Count: 7}, {ID: "8", Count: 8}}
	if diff := cmp.Diff(want, s.Data()); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}

	records := s.Records()
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, rec := range records {
		if rec.Data != want[i] {
			t.Errorf("Record %d: expected %+v, got %+v", i, want[i], rec.Data)
		}
		if s.IndexOf(rec.ID) != i {
			t.Errorf("IndexOf(%s): expected %d, got %d", rec.ID, i, s.IndexOf(rec.ID))
		}
	}
}

func testSubscribe(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})

	var (
		mu    sync.Mutex
		calls [][]Item
	)
	cancel := s.Subscribe(func(data []Item) {
		mu.Lock()
		calls = append(calls, data)
		mu.Unlock()
	})

	id := s.Add(Item{ID: "a"})
	s.Update(id, ItemPatch{Name: ptr("n")})
	s.Update("opt-unknown-1", ItemPatch{Name: ptr("ghost")}) // no change, no call
	cancel()
	cancel()
	s.Remove(id)

	mu.Lock()
	defer mu.Unlock()
	want := [][]Item{{{ID: "a"}}, {{ID: "a", Name: "n"}}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("Subscriber calls mismatch (-want +got):\n%s", diff)
	}
}

func testConcurrentSubscribe(t *testing.T, factory StoreFactory) {
	const (
		rounds     = 50
		goroutines = 4
		adds       = 10
	)

	for round := range rounds {
		s := newStore(t, factory, optimistic.StoreOptions[Item]{})

		var (
			mu       sync.Mutex
			calls    int
			last     []Item
			inCall   bool
			overlaps int
		)
		s.Subscribe(func(data []Item) {
			mu.Lock()
			if inCall {
				overlaps++
			}
			inCall = true
			calls++
			slow := calls%3 == 0
			mu.Unlock()

			if slow {
				time.Sleep(20 * time.Microsecond)
			}

			mu.Lock()
			last = data
			inCall = false
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for g := range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range adds {
					s.Add(Item{ID: fmt.Sprintf("%d-%d", g, i)})
				}
			}()
		}
		wg.Wait()

		mu.Lock()
		if overlaps > 0 {
			t.Errorf("Round %d: expected subscriber calls not to overlap, got %d overlaps", round, overlaps)
		}
		if len(last) != s.Len() {
			t.Errorf("Round %d: expected the last snapshot to hold %d items, got %d", round, s.Len(), len(last))
		}
		if diff := cmp.Diff(s.Data(), last); diff != "" {
			t.Errorf("Round %d: last snapshot mismatch (-want +got):\n%s", round, diff)
		}
		mu.Unlock()
	}
}

func testSubscriberChangesStore(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{})

	var calls [][]Item
	s.Subscribe(func(data []Item) {
		calls = append(calls, data)
		if len(data) == 1 {
			s.Add(Item{ID: "follow-up"})
		}
	})

	s.Add(Item{ID: "a"})

	want := [][]Item{{{ID: "a"}}, {{ID: "a"}, {ID: "follow-up"}}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("Subscriber calls mismatch (-want +got):\n%s", diff)
	}
}

func testAutoRollback(t *testing.T, factory StoreFactory) {
	rolledBack := make(chan Item, 1)
	s := newStore(t, factory, optimistic.StoreOptions[Item]{
		AutoRollback:  true,
		RollbackDelay: rollbackDelay,
		OnRollback: func(data Item) {
			rolledBack <- data
		},
	})

	start := time.Now()
	id := s.Add(Item{ID: "a"})
	s.Update(id, ItemPatch{Name: ptr("late")})

	select {
	case data := <-rolledBack:
		if elapsed := time.Since(start); elapsed < rollbackDelay {
			t.Errorf("Rollback fired after %s, before the delay of %s", elapsed, rollbackDelay)
		}
		if data.Name != "late" {
			t.Errorf("Expected OnRollback with current data, got %+v", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Record was not rolled back automatically")
	}

	rec := mustGet(t, s, id)
	if rec.Status != optimistic.StatusRollback || rec.IsOptimistic {
		t.Errorf("Expected rolled back record, got %+v", rec)
	}
}

func testAutoRollbackCancelled(t *testing.T, factory StoreFactory) {
	s := newStore(t, factory, optimistic.StoreOptions[Item]{
		AutoRollback:  true,
		RollbackDelay: rollbackDelay,
	})

	removed := s.Add(Item{ID: "removed"})
	confirmed := s.Add(Item{ID: "confirmed"})
	failed := s.Add(Item{ID: "failed"})
	rolledBack := s.Add(Item{ID: "rolled back"})
	seeded := s.Seed(Item{ID: "seeded"})[0]

	s.Remove(removed)
	s.Confirm(confirmed)
	s.MarkError(failed, errors.New("boom"))
	s.Rollback(rolledBack)

	time.Sleep(3 * rollbackDelay)

	if _, ok := s.Get(removed); ok {
		t.Errorf("Removed record came back")
	}
	expected := map[optimistic.Token]optimistic.Status{
		confirmed:  optimistic.StatusSuccess,
		failed:     optimistic.StatusError,
		rolledBack: optimistic.StatusRollback,
		seeded:     optimistic.StatusSuccess,
	}
	for id, status := range expected {
		if rec := mustGet(t, s, id); rec.Status != status {
			t.Errorf("Expected %s to stay %s, got %s", rec.Data.ID, status, rec.Status)
		}
	}
}

func testCloseFromOnRollback(t *testing.T, factory StoreFactory) {
	var s optimistic.IRecordStore[Item]
	closed := make(chan error, 1)
	s = factory(optimistic.StoreOptions[Item]{
		AutoRollback:  true,
		RollbackDelay: rollbackDelay,
		OnRollback: func(Item) {
			closed <- s.Close()
		},
	})
	id := s.Add(Item{ID: "a"})

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close from OnRollback failed: %v", err)
		}
	case <-time.After(20 * rollbackDelay):
		t.Fatalf("Expected Close from OnRollback to return")
	}

	if rec := mustGet(t, s, id); rec.Status != optimistic.StatusRollback {
		t.Errorf("Expected %s, got %s", optimistic.StatusRollback, rec.Status)
	}
}

func testClose(t *testing.T, factory StoreFactory) {
	s := factory(optimistic.StoreOptions[Item]{
		AutoRollback:  true,
		RollbackDelay: rollbackDelay,
	})
	id := s.Add(Item{ID: "a"})

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}

	time.Sleep(3 * rollbackDelay)
	if rec := mustGet(t, s, id); rec.Status != optimistic.StatusPending {
		t.Errorf("Expected no rollback after Close, got %s", rec.Status)
	}

	// the read model stays usable
	if !waitFor(time.Second, func() bool { return s.Len() == 1 }) {
		t.Errorf("Expected 1 record after Close")
	}
}
