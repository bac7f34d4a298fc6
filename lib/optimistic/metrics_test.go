package optimistic_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ValentinKolb/dBook/lib/optimistic"
)

func TestWritePrometheus(t *testing.T) {
	c := newCoordinator(t, nil, optimistic.Options[Item, Item]{Name: "bookings", RetainFailures: true})
	retry := optimistic.NewRetryManager(c)

	_, _, _ = c.Create(context.Background(), Item{ID: "ok"}, resolveWith(Item{}))
	failed, _, _ := c.Create(context.Background(), Item{ID: "failed"}, rejectCreate)
	_, _ = retry.RetryFailed(context.Background(), failed, rejectCreate)
	c.Store().Add(Item{ID: "pending"})

	var buf bytes.Buffer
	c.Metrics().WritePrometheus(&buf)
	out := buf.String()

	for _, line := range []string{
		`optimistic_mutations_total{coordinator="bookings",verb="create",outcome="success"} 1`,
		`optimistic_mutations_total{coordinator="bookings",verb="create",outcome="failure"} 1`,
		`optimistic_mutations_total{coordinator="bookings",verb="retry",outcome="failure"} 1`,
		`optimistic_retries_total{coordinator="bookings",outcome="failure"} 1`,
		`optimistic_rollbacks_total{coordinator="bookings"} 0`,
		`optimistic_pending_records{coordinator="bookings"} 2`,
	} {
		if !strings.Contains(out, line) {
			t.Errorf("Expected %q in:\n%s", line, out)
		}
	}
}

func TestMetricsAreIsolatedPerCoordinator(t *testing.T) {
	a := newCoordinator(t, nil, optimistic.Options[Item, Item]{Name: "same"})
	b := newCoordinator(t, nil, optimistic.Options[Item, Item]{Name: "same"})

	_, _, _ = a.Create(context.Background(), Item{}, resolveWith(Item{}))

	if got := a.Metrics().Mutations(optimistic.VerbCreate, optimistic.OutcomeSuccess); got != 1 {
		t.Errorf("Expected 1 create on a, got %d", got)
	}
	if got := b.Metrics().Mutations(optimistic.VerbCreate, optimistic.OutcomeSuccess); got != 0 {
		t.Errorf("Expected 0 creates on b, got %d", got)
	}
	if got := b.ConfirmLatency().Count(); got != 0 {
		t.Errorf("Expected no latency samples on b, got %d", got)
	}
}
