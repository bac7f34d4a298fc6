package optimistic

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// StoreOptions configures a record store.
type StoreOptions[T any] struct {
	Name          string        // Used in log lines (default "store")
	AutoRollback  bool          // Roll records back automatically if they are not resolved in time
	RollbackDelay time.Duration // Countdown started at Add when AutoRollback is set
	// OnRollback is called with the record's current data on every rollback. For
	// auto-rollbacks it runs on the scheduler goroutine and may close the store.
	OnRollback func(data T)
}

type storeImpl[T any] struct {
	name       string
	onRollback func(T)

	// mu serializes all mutations and guards order. Point reads (Get, IsOptimistic)
	// go straight to the records map and never take mu.
	mu      sync.Mutex
	order   []Token
	records *xsync.MapOf[Token, Record[T]]

	// auto rollback (timers is nil if disabled)
	rollbackDelay time.Duration
	timers        *rollbackScheduler

	// subscribers of the read model
	subsMu   sync.Mutex
	subs     map[uint64]func([]T)
	subSeq   uint64
	subCount atomic.Int32

	// delivery of snapshots. Only the newest undelivered snapshot is kept and one
	// goroutine at a time delivers, so the last call always carries the latest state.
	deliverMu  sync.Mutex
	pending    []T
	hasPending bool
	delivering bool

	closed atomic.Bool
}

// NewRecordStore creates a new in-memory record store.
//
// Usage:
//
//	s := optimistic.NewRecordStore(optimistic.StoreOptions[Booking]{
//		AutoRollback:  true,
//		RollbackDelay: 10 * time.Second,
//	})
//	defer s.Close()
//
//	id := s.Add(booking)
func NewRecordStore[T any](opts StoreOptions[T]) IRecordStore[T] {
	name := opts.Name
	if name == "" {
		name = "store"
	}
	s := &storeImpl[T]{
		name:       name,
		onRollback: opts.OnRollback,
		records:    xsync.NewMapOf[Token, Record[T]](),
		subs:       make(map[uint64]func([]T)),
	}
	if opts.AutoRollback && opts.RollbackDelay > 0 {
		s.rollbackDelay = opts.RollbackDelay
		s.timers = newRollbackScheduler(s.autoRollback)
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see optimistic/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl[T]) Add(value T) Token {
	now := time.Now()
	id := sessionTokens.next(now)

	s.mutate(func() bool {
		s.records.Store(id, Record[T]{
			ID:           id,
			Data:         value,
			IsOptimistic: true,
			Timestamp:    now,
			Status:       StatusPending,
		})
		s.order = append(s.order, id)
		return true
	})

	if s.timers != nil {
		s.timers.schedule(id, now.Add(s.rollbackDelay))
	}
	return id
}

func (s *storeImpl[T]) Update(id Token, partial Partial[T]) {
	if partial == nil {
		return
	}
	s.mutate(func() bool {
		return s.modify(id, func(rec *Record[T]) {
			rec.Data = partial.MergeInto(rec.Data)
		})
	})
}

func (s *storeImpl[T]) Remove(id Token) {
	s.mutate(func() bool {
		if _, ok := s.records.LoadAndDelete(id); !ok {
			return false
		}
		if i := slices.Index(s.order, id); i >= 0 {
			s.order = slices.Delete(s.order, i, i+1)
		}
		return true
	})
	s.cancelTimer(id)
}

func (s *storeImpl[T]) Rollback(id Token) {
	s.rollbackIf(id, nil)
}

func (s *storeImpl[T]) RollbackAll() {
	var rolledBack []T
	s.mutate(func() bool {
		for _, id := range s.order {
			rec, ok := s.records.Load(id)
			if !ok || !rec.IsOptimistic {
				continue
			}
			rec.IsOptimistic = false
			rec.Status = StatusRollback
			s.records.Store(id, rec)
			rolledBack = append(rolledBack, rec.Data)
		}
		return len(rolledBack) > 0
	})
	if s.timers != nil {
		s.timers.cancelAll()
	}

	if s.onRollback != nil {
		for _, data := range rolledBack {
			s.onRollback(data)
		}
	}
}

func (s *storeImpl[T]) ClearErrors() {
	s.mutate(func() bool {
		changed := false
		for _, id := range s.order {
			rec, ok := s.records.Load(id)
			if !ok || rec.Status != StatusError {
				continue
			}
			rec.IsOptimistic = false
			rec.Status = StatusSuccess
			rec.Error = ""
			s.records.Store(id, rec)
			changed = true
		}
		return changed
	})
}

func (s *storeImpl[T]) Seed(values ...T) []Token {
	if len(values) == 0 {
		return nil
	}
	now := time.Now()
	ids := make([]Token, len(values))
	for i := range values {
		ids[i] = sessionTokens.next(now)
	}

	s.mutate(func() bool {
		for i, value := range values {
			s.records.Store(ids[i], Record[T]{
				ID:        ids[i],
				Data:      value,
				Timestamp: now,
				Status:    StatusSuccess,
			})
			s.order = append(s.order, ids[i])
		}
		return true
	})
	return ids
}

func (s *storeImpl[T]) Checkpoint(id Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modify(id, func(rec *Record[T]) {
		if rec.OriginalData == nil {
			snapshot := rec.Data
			rec.OriginalData = &snapshot
		}
	})
}

func (s *storeImpl[T]) Restore(id Token) bool {
	restored := false
	s.mutate(func() bool {
		s.modify(id, func(rec *Record[T]) {
			if rec.OriginalData == nil {
				return
			}
			rec.Data = *rec.OriginalData
			rec.OriginalData = nil
			restored = true
		})
		return restored
	})
	return restored
}

func (s *storeImpl[T]) Confirm(id Token) {
	s.mutate(func() bool {
		return s.modify(id, func(rec *Record[T]) {
			rec.IsOptimistic = false
			rec.Status = StatusSuccess
			rec.OriginalData = nil
			rec.Error = ""
		})
	})
	s.cancelTimer(id)
}

func (s *storeImpl[T]) MarkPending(id Token) {
	s.mutate(func() bool {
		return s.modify(id, func(rec *Record[T]) {
			rec.IsOptimistic = true
			rec.Status = StatusPending
			rec.Error = ""
		})
	})
}

func (s *storeImpl[T]) MarkError(id Token, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	s.mutate(func() bool {
		return s.modify(id, func(rec *Record[T]) {
			rec.IsOptimistic = true
			rec.Status = StatusError
			rec.Error = msg
		})
	})
	s.cancelTimer(id)
}

func (s *storeImpl[T]) Reinsert(rec Record[T], index int) {
	if rec.ID == "" {
		return
	}
	inserted := false
	s.mutate(func() bool {
		if _, exists := s.records.Load(rec.ID); exists {
			return false
		}
		index = max(0, min(index, len(s.order)))
		s.records.Store(rec.ID, rec.clone())
		s.order = slices.Insert(s.order, index, rec.ID)
		inserted = true
		return true
	})

	if inserted && s.timers != nil && rec.Status == StatusPending {
		s.timers.schedule(rec.ID, time.Now().Add(s.rollbackDelay))
	}
}

func (s *storeImpl[T]) IsOptimistic(id Token) bool {
	rec, ok := s.records.Load(id)
	return ok && rec.IsOptimistic
}

func (s *storeImpl[T]) Get(id Token) (Record[T], bool) {
	rec, ok := s.records.Load(id)
	if !ok {
		return Record[T]{}, false
	}
	return rec.clone(), true
}

func (s *storeImpl[T]) IndexOf(id Token) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Index(s.order, id)
}

func (s *storeImpl[T]) Data() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLocked()
}

func (s *storeImpl[T]) Records() []Record[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]Record[T], 0, len(s.order))
	for _, id := range s.order {
		if rec, ok := s.records.Load(id); ok {
			records = append(records, rec.clone())
		}
	}
	return records
}

func (s *storeImpl[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *storeImpl[T]) Subscribe(fn func(data []T)) func() {
	if fn == nil {
		return func() {}
	}
	s.subsMu.Lock()
	s.subSeq++
	key := s.subSeq
	s.subs[key] = fn
	s.subCount.Add(1)
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, key)
			s.subCount.Add(-1)
			s.subsMu.Unlock()
		})
	}
}

func (s *storeImpl[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.timers != nil {
		s.timers.close()
	}
	s.subsMu.Lock()
	clear(s.subs)
	s.subCount.Store(0)
	s.subsMu.Unlock()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// mutate runs fn under the store lock. If fn reports a change, the read model as it
// was right after fn is handed to deliver.
func (s *storeImpl[T]) mutate(fn func() (changed bool)) {
	s.mu.Lock()
	changed := fn()
	if changed && s.subCount.Load() > 0 {
		snapshot := s.dataLocked()
		// queued under s.mu, so snapshots are queued in mutation order
		s.deliverMu.Lock()
		s.pending, s.hasPending = snapshot, true
		s.deliverMu.Unlock()
	}
	s.mu.Unlock()

	s.deliver()
}

// deliver calls the subscribers (outside the store lock) until no snapshot is queued.
// If another goroutine is already delivering it picks up the queued snapshot, so
// deliver returns at once. A newer snapshot replaces an undelivered older one.
func (s *storeImpl[T]) deliver() {
	s.deliverMu.Lock()
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	for s.hasPending {
		snapshot := s.pending
		s.pending, s.hasPending = nil, false
		s.deliverMu.Unlock()

		s.subsMu.Lock()
		listeners := make([]func([]T), 0, len(s.subs))
		for _, l := range s.subs {
			listeners = append(listeners, l)
		}
		s.subsMu.Unlock()
		for _, l := range listeners {
			l(snapshot)
		}

		s.deliverMu.Lock()
	}
	s.delivering = false
	s.deliverMu.Unlock()
}

// modify loads the record for id, applies fn and stores the result.
// It reports whether the record exists.
//
// Thread-safety: the caller must hold s.mu.
func (s *storeImpl[T]) modify(id Token, fn func(rec *Record[T])) bool {
	rec, ok := s.records.Load(id)
	if !ok {
		return false
	}
	fn(&rec)
	s.records.Store(id, rec)
	return true
}

// dataLocked builds the read model.
//
// Thread-safety: the caller must hold s.mu.
func (s *storeImpl[T]) dataLocked() []T {
	data := make([]T, 0, len(s.order))
	for _, id := range s.order {
		if rec, ok := s.records.Load(id); ok {
			data = append(data, rec.Data)
		}
	}
	return data
}

func (s *storeImpl[T]) cancelTimer(id Token) {
	if s.timers != nil {
		s.timers.cancel(id)
	}
}

// rollbackIf rolls the record back if it exists and cond (nil = always) holds for it.
// cond is checked under the store lock, so no other mutation can land in between.
func (s *storeImpl[T]) rollbackIf(id Token, cond func(rec Record[T]) bool) bool {
	var (
		data       T
		rolledBack bool
	)
	s.mutate(func() bool {
		rec, ok := s.records.Load(id)
		if !ok || (cond != nil && !cond(rec)) {
			return false
		}
		rec.IsOptimistic = false
		rec.Status = StatusRollback
		s.records.Store(id, rec)
		data, rolledBack = rec.Data, true
		return true
	})
	if cond == nil || rolledBack {
		s.cancelTimer(id)
	}
	if !rolledBack {
		return false
	}

	if s.onRollback != nil {
		s.onRollback(data)
	}
	return true
}

// autoRollback is called by the scheduler when a record was not resolved in time.
// Records that were confirmed, failed or rolled back meanwhile are left alone.
func (s *storeImpl[T]) autoRollback(id Token) {
	if s.rollbackIf(id, func(rec Record[T]) bool {
		return rec.IsOptimistic && rec.Status == StatusPending
	}) {
		Logger.Debugf("%s: auto-rollback of %s after %s", s.name, id, s.rollbackDelay)
	}
}
