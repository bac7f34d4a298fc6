package optimistic

import (
	"time"
)

// --------------------------------------------------------------------------
// Coordinator Options
// --------------------------------------------------------------------------

// Options configures a coordinator (and the store it creates when built with New).
type Options[T, R any] struct {
	Name           string // Used as metrics label and in log lines (default "default")
	SuccessMessage string // Sent to the Notifier after a confirmed mutation (empty = silent)
	ErrorMessage   string // Sent to the Notifier after a failed mutation (empty = silent)

	AutoRollback  bool          // Roll records back if the confirmation does not resolve in time
	RollbackDelay time.Duration // Countdown for AutoRollback

	OnSuccess  func(result R)  // Called with the confirmation result
	OnError    func(err error) // Called with the confirmation error (already reconciled)
	OnRollback func(data T)    // Called whenever the store rolls a record back (only with New)

	// Notifier receives SuccessMessage and ErrorMessage. Defaults to the package logger.
	Notifier Notifier

	// RetainFailures keeps failed creates in StatusError (instead of StatusRollback),
	// so they can be resubmitted by the retry manager.
	RetainFailures bool
	// PreserveTokens re-inserts records under their original token at their original
	// position when a remove fails. By default they come back under a new token.
	PreserveTokens bool
	// KeepFailedUpdates disables the snapshot taken before an update, so a failed update
	// keeps the speculative value (the record is still rolled back).
	KeepFailedUpdates bool
}

func (o Options[T, R]) name() string {
	if o.Name == "" {
		return "default"
	}
	return o.Name
}

func (o Options[T, R]) notifier() Notifier {
	if o.Notifier == nil {
		return logNotifier{}
	}
	return o.Notifier
}

// --------------------------------------------------------------------------
// Notifier
// --------------------------------------------------------------------------

// Level is the severity of a notification.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notifier surfaces user facing feedback about finished mutations
// (e.g. a toast in a UI or a line on a console).
type Notifier interface {
	Notify(level Level, coordinator string, message string, err error)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level Level, coordinator string, message string, err error)

func (f NotifierFunc) Notify(level Level, coordinator string, message string, err error) {
	f(level, coordinator, message, err)
}

type logNotifier struct{}

func (logNotifier) Notify(level Level, coordinator string, message string, err error) {
	if level == LevelError {
		Logger.Warningf("%s: %s: %v", coordinator, message, err)
		return
	}
	Logger.Infof("%s: %s", coordinator, message)
}
