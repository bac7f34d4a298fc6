package booking

import (
	"math"
	"sync"
	"time"
)

// ----------------------------------------------------------------------------
// Summary Statistics
// ----------------------------------------------------------------------------

// Stats summarizes a series of values.
type Stats struct {
	StdDeviation float64 `json:"stdDeviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"minMaxRatio"`
}

// NewStats computes mean, min, max and the population standard deviation of values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	var squaredDiffs float64
	for _, v := range values {
		diff := v - mean
		squaredDiffs += diff * diff
	}

	ratio := 1.0
	if hi > 0 {
		ratio = lo / hi
	}

	return Stats{
		StdDeviation: math.Sqrt(squaredDiffs / float64(len(values))),
		Min:          lo,
		Max:          hi,
		Mean:         mean,
		MinMaxRatio:  ratio,
	}
}

// UtilizationStats describes how evenly the booked hours are spread over the facilities.
type UtilizationStats struct {
	Stats
	// Balance is 1 if every facility is booked equally and approaches 0 the more the
	// bookings pile up on a few facilities.
	Balance float64 `json:"balance"`
}

// NewUtilizationStats computes the utilization statistics of the booked hours per facility.
func NewUtilizationStats(hoursPerFacility []float64) UtilizationStats {
	stats := NewStats(hoursPerFacility)

	// coefficient of variation
	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	// lower cv and higher min/max ratio mean a better balance
	return UtilizationStats{
		Stats:   stats,
		Balance: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}

// ----------------------------------------------------------------------------
// Duration Histogram
// ----------------------------------------------------------------------------

// durationBuckets are the upper bounds of the histogram buckets. The last bucket takes
// everything above the last bound.
var durationBuckets = []time.Duration{
	30 * time.Minute,
	time.Hour,
	90 * time.Minute,
	2 * time.Hour,
	3 * time.Hour,
	4 * time.Hour,
	8 * time.Hour,
	24 * time.Hour,
}

// DurationHistogram tracks the distribution of booking lengths.
//
// Thread-safe: all methods are safe for concurrent use
type DurationHistogram struct {
	mu      sync.RWMutex
	buckets []int64
	count   int64
	sum     time.Duration
}

// NewDurationHistogram creates an empty histogram.
func NewDurationHistogram() *DurationHistogram {
	return &DurationHistogram{buckets: make([]int64, len(durationBuckets)+1)}
}

// Add records one booking length.
func (h *DurationHistogram) Add(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := len(durationBuckets)
	for j, bound := range durationBuckets {
		if d <= bound {
			i = j
			break
		}
	}
	h.buckets[i]++
	h.count++
	h.sum += d
}

// Count returns the number of samples.
func (h *DurationHistogram) Count() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Mean returns the exact mean of the samples.
func (h *DurationHistogram) Mean() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / time.Duration(h.count)
}

// Percentile estimates the p-th percentile (0-100) as the upper bound of its bucket.
// Samples above the last bound are estimated as twice the last bound.
func (h *DurationHistogram) Percentile(p int) time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(p) / 100.0))
	var cumulative int64
	for i, n := range h.buckets {
		cumulative += n
		if cumulative >= target && n > 0 {
			if i < len(durationBuckets) {
				return durationBuckets[i]
			}
			break
		}
	}
	return 2 * durationBuckets[len(durationBuckets)-1]
}

// Distribution returns the bucket bounds and the share of samples (in percent) per bucket.
// The returned shares have one more entry than the bounds.
func (h *DurationHistogram) Distribution() ([]time.Duration, []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	shares := make([]float64, len(h.buckets))
	if h.count == 0 {
		return durationBuckets, shares
	}
	for i, n := range h.buckets {
		shares[i] = float64(n) * 100.0 / float64(h.count)
	}
	return durationBuckets, shares
}
