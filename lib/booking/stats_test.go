package booking

import (
	"math"
	"testing"
	"time"
)

func TestNewStats(t *testing.T) {
	if got := NewStats(nil); got != (Stats{}) {
		t.Errorf("Expected zero stats for no values, got %+v", got)
	}

	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 || s.StdDeviation != 2 {
		t.Errorf("Unexpected stats: %+v", s)
	}
	if math.Abs(s.MinMaxRatio-2.0/9.0) > 1e-9 {
		t.Errorf("Unexpected min/max ratio %f", s.MinMaxRatio)
	}
}

func TestNewUtilizationStats(t *testing.T) {
	tests := []struct {
		name  string
		hours []float64
		want  float64
	}{
		{"Even", []float64{3, 3, 3}, 1},
		{"Unused facility", []float64{4, 0}, 0},
		{"No bookings", []float64{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// {4, 0}: cv = 1 and min/max = 0
			// {0, 0}: cv = 0 and min/max defaults to 1
			if got := NewUtilizationStats(tt.hours).Balance; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Balance = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDurationHistogram(t *testing.T) {
	h := NewDurationHistogram()
	if h.Percentile(50) != 0 || h.Mean() != 0 {
		t.Errorf("Expected zero values for an empty histogram")
	}

	for _, d := range []time.Duration{time.Hour, time.Hour, time.Hour, 2 * time.Hour, 30 * time.Hour} {
		h.Add(d)
	}

	if h.Count() != 5 {
		t.Errorf("Count() = %d, want 5", h.Count())
	}
	if got := h.Mean(); got != 7*time.Hour {
		t.Errorf("Mean() = %s, want 7h", got)
	}
	if got := h.Percentile(50); got != time.Hour {
		t.Errorf("Percentile(50) = %s, want 1h", got)
	}
	if got := h.Percentile(80); got != 2*time.Hour {
		t.Errorf("Percentile(80) = %s, want 2h", got)
	}
	if got := h.Percentile(100); got != 48*time.Hour {
		t.Errorf("Percentile(100) = %s, want 48h", got)
	}
	if got := h.Percentile(101); got != 0 {
		t.Errorf("Percentile(101) = %s, want 0", got)
	}

	bounds, shares := h.Distribution()
	if len(shares) != len(bounds)+1 {
		t.Fatalf("Expected %d shares, got %d", len(bounds)+1, len(shares))
	}
	if shares[1] != 60 || shares[len(shares)-1] != 20 {
		t.Errorf("Unexpected distribution %v", shares)
	}
}
