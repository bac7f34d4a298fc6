package optimistic

import (
	"sync"
	"testing"
	"time"
)

type note struct {
	Text string
}

func TestSchedulerFiresInDeadlineOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		fired []Token
	)
	done := make(chan struct{})
	s := newRollbackScheduler(func(id Token) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, id)
		if len(fired) == 3 {
			close(done)
		}
	})
	defer s.close()

	now := time.Now()
	s.schedule("c", now.Add(60*time.Millisecond))
	s.schedule("a", now.Add(20*time.Millisecond))
	s.schedule("b", now.Add(40*time.Millisecond))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Scheduler did not fire all deadlines")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []Token{"a", "b", "c"}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("Expected fire order %v, got %v", want, fired)
		}
	}
	if s.pending() != 0 {
		t.Errorf("Expected no pending countdowns, got %d", s.pending())
	}
}

func TestSchedulerCancel(t *testing.T) {
	fired := make(chan Token, 2)
	s := newRollbackScheduler(func(id Token) {
		fired <- id
	})
	defer s.close()

	s.schedule("cancelled", time.Now().Add(30*time.Millisecond))
	s.schedule("kept", time.Now().Add(50*time.Millisecond))

	if !s.cancel("cancelled") {
		t.Fatalf("Expected cancel of a pending countdown to report true")
	}
	if s.cancel("cancelled") {
		t.Errorf("Expected second cancel to report false")
	}

	select {
	case id := <-fired:
		if id != "kept" {
			t.Errorf("Expected only 'kept' to fire, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Scheduler did not fire")
	}

	select {
	case id := <-fired:
		t.Errorf("Unexpected fire of %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerEarlierDeadlineWakesUp(t *testing.T) {
	fired := make(chan Token, 2)
	s := newRollbackScheduler(func(id Token) {
		fired <- id
	})
	defer s.close()

	// the loop sleeps until the far deadline unless the new one wakes it up
	s.schedule("far", time.Now().Add(time.Hour))
	time.Sleep(10 * time.Millisecond)
	s.schedule("near", time.Now().Add(20*time.Millisecond))

	select {
	case id := <-fired:
		if id != "near" {
			t.Errorf("Expected 'near' to fire first, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Scheduler was not woken up by an earlier deadline")
	}
	if s.pending() != 1 {
		t.Errorf("Expected 1 pending countdown, got %d", s.pending())
	}
}

func TestSchedulerClose(t *testing.T) {
	fired := make(chan Token, 1)
	s := newRollbackScheduler(func(id Token) {
		fired <- id
	})

	s.schedule("a", time.Now().Add(30*time.Millisecond))
	s.close()
	s.close()

	// scheduling after close is ignored
	s.schedule("b", time.Now())

	select {
	case id := <-fired:
		t.Errorf("Unexpected fire of %s after close", id)
	case <-time.After(100 * time.Millisecond):
	}
	if s.pending() != 0 {
		t.Errorf("Expected close to drop all countdowns, got %d", s.pending())
	}
}

func TestUpdateDoesNotRestartCountdown(t *testing.T) {
	store := NewRecordStore(StoreOptions[note]{
		AutoRollback:  true,
		RollbackDelay: time.Hour,
	}).(*storeImpl[note])
	defer store.Close()

	id := store.Add(note{Text: "draft"})
	before, ok := store.timers.deadline(id)
	if !ok {
		t.Fatalf("Expected a countdown after Add")
	}

	time.Sleep(5 * time.Millisecond)
	store.Update(id, Replace(note{Text: "edited"}))
	store.MarkPending(id)

	after, ok := store.timers.deadline(id)
	if !ok || !after.Equal(before) {
		t.Errorf("Expected deadline %s to stay, got %s (ok=%v)", before, after, ok)
	}

	rec, _ := store.Get(id)
	if want := rec.Timestamp.Add(time.Hour); !before.Equal(want) {
		t.Errorf("Expected deadline at creation + delay (%s), got %s", want, before)
	}

	for name, resolve := range map[string]func(Token){
		"Remove":    store.Remove,
		"Rollback":  store.Rollback,
		"Confirm":   store.Confirm,
		"MarkError": func(id Token) { store.MarkError(id, nil) },
	} {
		id := store.Add(note{Text: name})
		resolve(id)
		if _, ok := store.timers.deadline(id); ok {
			t.Errorf("%s: expected the countdown to be cancelled", name)
		}
	}
}

func TestStoreWithoutAutoRollbackHasNoScheduler(t *testing.T) {
	for _, opts := range []StoreOptions[note]{
		{},
		{AutoRollback: true},
		{RollbackDelay: time.Second},
	} {
		store := NewRecordStore(opts).(*storeImpl[note])
		if store.timers != nil {
			t.Errorf("Expected no scheduler for %+v", opts)
		}
		_ = store.Close()
	}
}

func TestAutoRollbackSkipsResolvedRecords(t *testing.T) {
	var rolledBack []note
	store := NewRecordStore(StoreOptions[note]{
		AutoRollback:  true,
		RollbackDelay: time.Hour,
		OnRollback:    func(data note) { rolledBack = append(rolledBack, data) },
	}).(*storeImpl[note])
	defer store.Close()

	confirmed := store.Add(note{Text: "confirmed"})
	store.Confirm(confirmed)
	failed := store.Add(note{Text: "failed"})
	store.MarkError(failed, nil)
	pending := store.Add(note{Text: "pending"})

	// the scheduler may have popped a deadline right before the record was resolved
	for _, id := range []Token{confirmed, failed, pending} {
		store.autoRollback(id)
	}

	for id, want := range map[Token]Status{
		confirmed: StatusSuccess,
		failed:    StatusError,
		pending:   StatusRollback,
	} {
		if rec, _ := store.Get(id); rec.Status != want {
			t.Errorf("%s: expected %s, got %s", rec.Data.Text, want, rec.Status)
		}
	}
	if len(rolledBack) != 1 || rolledBack[0].Text != "pending" {
		t.Errorf("Expected OnRollback only for the pending record, got %+v", rolledBack)
	}
}
