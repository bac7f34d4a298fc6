package optimistic

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dBook/lib/optimistic/util"
)

// --------------------------------------------------------------------------
// Auto-Rollback Scheduler
// --------------------------------------------------------------------------

// idleWait is how long the scheduler sleeps when nothing is scheduled.
// Any schedule call wakes it up early.
const idleWait = time.Hour

// rollbackScheduler owns the per-record auto-rollback countdowns of one store.
// Deadlines live in a DeadlineHeap keyed by token; one goroutine sleeps until the
// earliest deadline and calls fire for every token that became due.
//
// fire is always called without the scheduler lock held, so it may call cancel.
type rollbackScheduler struct {
	mu        sync.Mutex
	deadlines *util.DeadlineHeap[Token]
	fire      func(Token)

	wake    chan struct{} // buffered(1): "the earliest deadline may have changed"
	done    chan struct{}
	stopped sync.WaitGroup
	closed  atomic.Bool
	firing  atomic.Bool // set while fire runs on the scheduler goroutine
}

// newRollbackScheduler creates a scheduler and starts its goroutine.
func newRollbackScheduler(fire func(Token)) *rollbackScheduler {
	s := &rollbackScheduler{
		deadlines: util.NewDeadlineHeap[Token](),
		fire:      fire,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	s.stopped.Add(1)
	go s.run()
	return s
}

// schedule starts (or restarts) the countdown for id.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *rollbackScheduler) schedule(id Token, deadline time.Time) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.deadlines.Schedule(id, deadline)
	s.mu.Unlock()
	s.notify()
}

// cancel stops the countdown for id. It reports whether a countdown was pending.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *rollbackScheduler) cancel(id Token) bool {
	s.mu.Lock()
	_, ok := s.deadlines.Remove(id)
	s.mu.Unlock()
	return ok
}

// cancelAll stops every pending countdown.
func (s *rollbackScheduler) cancelAll() {
	s.mu.Lock()
	s.deadlines.Clear()
	s.mu.Unlock()
}

// pending returns the number of running countdowns.
func (s *rollbackScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlines.Len()
}

// deadline returns the deadline of the countdown for id.
func (s *rollbackScheduler) deadline(id Token) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlines.Deadline(id)
}

// close stops the goroutine and drops all countdowns. No fire starts after close.
// If no fire is running, close waits until the goroutine has exited. A running fire
// is not waited for, so fire itself may close the scheduler.
// Calling close more than once is a no-op.
func (s *rollbackScheduler) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	if !s.firing.Load() {
		s.stopped.Wait()
	}
	s.cancelAll()
}

func (s *rollbackScheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the scheduler loop
// WARNING: this method should only be started by newRollbackScheduler!
func (s *rollbackScheduler) run() {
	defer s.stopped.Done()

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		// collect everything that is due and find the next deadline
		s.mu.Lock()
		now := time.Now()
		due := s.deadlines.PopDue(now)
		wait := idleWait
		if _, next, ok := s.deadlines.Peek(); ok {
			wait = next.Sub(now)
		}
		s.mu.Unlock()

		for _, id := range due {
			select {
			case <-s.done:
				return
			default:
			}
			s.firing.Store(true)
			s.fire(id)
			s.firing.Store(false)
		}

		// a fired rollback may have taken a while, so only sleep when nothing was due
		if len(due) > 0 {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.done:
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}
