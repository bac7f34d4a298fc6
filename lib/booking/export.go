package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/natefinch/atomic"
)

// ExportedBooking is a booking together with its optimistic state.
type ExportedBooking struct {
	Token        string        `json:"token"`
	Status       string        `json:"status"`
	IsOptimistic bool          `json:"isOptimistic"`
	Error        string        `json:"error,omitempty"`
	Booking      model.Booking `json:"booking"`
}

// Export is the JSON document written by WriteExport.
type Export struct {
	Tenant     string            `json:"tenant"`
	ExportedAt time.Time         `json:"exportedAt"`
	Facilities []model.Facility  `json:"facilities"`
	Bookings   []ExportedBooking `json:"bookings"`
	Stats      Snapshot          `json:"stats"`
}

// NewExport captures the current read model of both adapters.
func NewExport(tenant string, bookings *Bookings, facilities *Facilities) Export {
	exp := Export{
		Tenant:     tenant,
		ExportedAt: time.Now().UTC(),
		Facilities: facilities.List(),
		Stats:      NewDashboard(bookings, facilities).Stats(),
	}
	for _, rec := range bookings.Records() {
		exp.Bookings = append(exp.Bookings, ExportedBooking{
			Token:        rec.ID.String(),
			Status:       rec.Status.String(),
			IsOptimistic: rec.IsOptimistic,
			Error:        rec.Error,
			Booking:      rec.Data,
		})
	}
	return exp
}

// WriteExport writes exp as indented JSON to path. The file is replaced atomically, so a
// reader never sees a partial export.
func WriteExport(path string, exp Export) error {
	buf, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	buf = append(buf, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
