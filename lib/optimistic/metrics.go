package optimistic

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// Verbs and outcomes used as metric labels.
const (
	VerbCreate      = "create"
	VerbUpdate      = "update"
	VerbRemove      = "remove"
	VerbBatchCreate = "batch_create"
	VerbBatchUpdate = "batch_update"
	VerbBatchDelete = "batch_delete"
	VerbRetry       = "retry"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const confirmLatencyTimer = "confirm.latency"

// Metrics holds the counters of one coordinator.
//
// The counters live in a private VictoriaMetrics set, so several coordinators (and tests)
// never collide on metric names. Confirmation latency is tracked in a go-metrics registry.
type Metrics struct {
	coordinator string
	set         *vm.Set
	rollbacks   *vm.Counter
	registry    gometrics.Registry
	latency     gometrics.Timer
}

func newMetrics(coordinator string, pending func() int) *Metrics {
	m := &Metrics{
		coordinator: coordinator,
		set:         vm.NewSet(),
		registry:    gometrics.NewRegistry(),
	}
	m.rollbacks = m.set.GetOrCreateCounter(fmt.Sprintf(`optimistic_rollbacks_total{coordinator=%q}`, coordinator))
	m.set.NewGauge(fmt.Sprintf(`optimistic_pending_records{coordinator=%q}`, coordinator), func() float64 {
		return float64(pending())
	})
	m.latency = gometrics.GetOrRegisterTimer(confirmLatencyTimer, m.registry)
	return m
}

// mutation counts a finished verb.
func (m *Metrics) mutation(verb string, err error) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`optimistic_mutations_total{coordinator=%q,verb=%q,outcome=%q}`,
		m.coordinator, verb, outcomeOf(err))).Inc()
}

// retry counts a finished retry.
func (m *Metrics) retry(err error) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`optimistic_retries_total{coordinator=%q,outcome=%q}`,
		m.coordinator, outcomeOf(err))).Inc()
}

func (m *Metrics) rollback() {
	m.rollbacks.Inc()
}

func (m *Metrics) observe(start time.Time) {
	m.latency.UpdateSince(start)
}

// Coordinator returns the name of the coordinator the metrics belong to.
func (m *Metrics) Coordinator() string {
	return m.coordinator
}

// Mutations returns how often verb finished with outcome.
func (m *Metrics) Mutations(verb, outcome string) uint64 {
	return m.set.GetOrCreateCounter(fmt.Sprintf(`optimistic_mutations_total{coordinator=%q,verb=%q,outcome=%q}`,
		m.coordinator, verb, outcome)).Get()
}

// Retries returns how many retries finished with outcome.
func (m *Metrics) Retries(outcome string) uint64 {
	return m.set.GetOrCreateCounter(fmt.Sprintf(`optimistic_retries_total{coordinator=%q,outcome=%q}`,
		m.coordinator, outcome)).Get()
}

// Rollbacks returns the number of rollbacks performed by the store.
func (m *Metrics) Rollbacks() uint64 {
	return m.rollbacks.Get()
}

// Latency returns the confirmation latency timer (durations in nanoseconds).
func (m *Metrics) Latency() gometrics.Timer {
	return m.latency
}

// WritePrometheus writes all counters in Prometheus text format to w.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

func (m *Metrics) close() {
	m.registry.UnregisterAll()
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
