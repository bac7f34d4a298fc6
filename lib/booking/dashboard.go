package booking

import (
	"sort"
	"time"

	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
)

// Dashboard computes the numbers shown by `dbook console stats`.
type Dashboard struct {
	bookings   *Bookings
	facilities *Facilities
}

// NewDashboard creates a dashboard over both adapters.
func NewDashboard(bookings *Bookings, facilities *Facilities) *Dashboard {
	return &Dashboard{bookings: bookings, facilities: facilities}
}

// FacilityUsage is the booked time of one facility.
type FacilityUsage struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Bookings int           `json:"bookings"`
	Booked   time.Duration `json:"booked"`
	Revenue  int64         `json:"revenueCents"`
}

// LatencyStats summarizes the confirmation latency of one coordinator.
type LatencyStats struct {
	Coordinator string        `json:"coordinator"`
	Count       int64         `json:"count"`
	Mean        time.Duration `json:"mean"`
	P95         time.Duration `json:"p95"`
	Max         time.Duration `json:"max"`
	Rollbacks   uint64        `json:"rollbacks"`
}

// Snapshot is the state of the dashboard at one point in time.
type Snapshot struct {
	Bookings     int                         `json:"bookings"`
	ByStatus     map[model.BookingStatus]int `json:"byStatus"`
	Pending      int                         `json:"pending"`
	Failed       int                         `json:"failed"`
	RolledBack   int                         `json:"rolledBack"`
	RevenueCents int64                       `json:"revenueCents"`

	Facilities  []FacilityUsage  `json:"facilities"`
	Utilization UtilizationStats `json:"utilization"`

	MeanDuration   time.Duration `json:"meanDuration"`
	MedianDuration time.Duration `json:"medianDuration"`

	Latency []LatencyStats `json:"latency"`
}

// Stats computes a snapshot of the current read model. Speculative records count with
// their current data, rolled back ones only in RolledBack.
func (d *Dashboard) Stats() Snapshot {
	snap := Snapshot{ByStatus: make(map[model.BookingStatus]int)}

	usage := make(map[string]*FacilityUsage)
	for _, f := range d.facilities.List() {
		usage[f.ID] = &FacilityUsage{ID: f.ID, Name: f.Name}
	}

	durations := NewDurationHistogram()
	for _, rec := range d.bookings.Records() {
		switch {
		case rec.Status == optimistic.StatusRollback:
			snap.RolledBack++
			continue
		case rec.Status == optimistic.StatusError:
			snap.Failed++
			continue
		case rec.IsOptimistic:
			snap.Pending++
		}

		b := rec.Data
		snap.Bookings++
		snap.ByStatus[b.Status]++
		if !b.Active() {
			continue
		}
		snap.RevenueCents += b.PriceCents
		durations.Add(b.Duration())

		u, ok := usage[b.FacilityID]
		if !ok {
			u = &FacilityUsage{ID: b.FacilityID, Name: b.FacilityID}
			usage[b.FacilityID] = u
		}
		u.Bookings++
		u.Booked += b.Duration()
		u.Revenue += b.PriceCents
	}

	hours := make([]float64, 0, len(usage))
	for _, u := range usage {
		snap.Facilities = append(snap.Facilities, *u)
		hours = append(hours, u.Booked.Hours())
	}
	sort.Slice(snap.Facilities, func(i, j int) bool {
		return snap.Facilities[i].Name < snap.Facilities[j].Name
	})
	snap.Utilization = NewUtilizationStats(hours)
	snap.MeanDuration = durations.Mean()
	snap.MedianDuration = durations.Percentile(50)

	metrics := append(d.bookings.Metrics(), d.facilities.Metrics())
	for _, m := range metrics {
		timer := m.Latency()
		snap.Latency = append(snap.Latency, LatencyStats{
			Coordinator: m.Coordinator(),
			Count:       timer.Count(),
			Mean:        time.Duration(timer.Mean()),
			P95:         time.Duration(timer.Percentile(0.95)),
			Max:         time.Duration(timer.Max()),
			Rollbacks:   m.Rollbacks(),
		})
	}
	return snap
}

// Metrics returns the metrics of every coordinator of the console.
func (d *Dashboard) Metrics() []*optimistic.Metrics {
	return append(d.bookings.Metrics(), d.facilities.Metrics())
}
