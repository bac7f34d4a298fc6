package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ValentinKolb/dBook/lib/booking"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
	"github.com/charmbracelet/lipgloss"
)

// --------------------------------------------------------------------------
// Styles
// --------------------------------------------------------------------------

var styles = struct {
	title   lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	danger  lipgloss.Style
	info    lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")).MarginBottom(1),
	header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c0caf5")),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")),
	success: lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Bold(true),
	warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")),
	danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true),
	info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
}

// statusStyle returns the style of an optimistic record state.
func statusStyle(status optimistic.Status) lipgloss.Style {
	switch status {
	case optimistic.StatusPending:
		return styles.warning
	case optimistic.StatusError:
		return styles.danger
	case optimistic.StatusRollback:
		return styles.muted
	default:
		return styles.success
	}
}

// --------------------------------------------------------------------------
// Tables
// --------------------------------------------------------------------------

// table renders rows as aligned columns. Widths are measured without ANSI sequences, so
// cells may be styled.
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	_, _ = fmt.Fprintln(w, line(t.headers, &styles.header))
	for _, row := range t.rows {
		_, _ = fmt.Fprintln(w, line(row, nil))
	}
}

// --------------------------------------------------------------------------
// Views
// --------------------------------------------------------------------------

func renderBookings(w io.Writer, records []optimistic.Record[model.Booking], facilities *booking.Facilities) {
	_, _ = fmt.Fprintln(w, styles.title.Render(fmt.Sprintf("Bookings (%d)", len(records))))
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, styles.muted.Render("no bookings"))
		return
	}

	t := &table{headers: []string{"ID", "FACILITY", "WHEN", "TITLE", "CUSTOMER", "PRICE", "STATUS", "STATE"}}
	for _, rec := range records {
		b := rec.Data
		id := b.ID
		if id == "" {
			id = styles.muted.Render(rec.ID.String())
		}
		facility := b.FacilityID
		if f, ok := facilities.Get(b.FacilityID); ok {
			facility = f.Name
		}
		state := statusStyle(rec.Status).Render(rec.Status.String())
		if rec.Error != "" {
			state += styles.muted.Render(" " + rec.Error)
		}
		t.add(id, facility, formatSlot(b.Start, b.End), b.Title, b.Customer, formatCents(b.PriceCents), string(b.Status), state)
	}
	t.render(w)
}

func renderFacilities(w io.Writer, facilities []model.Facility) {
	_, _ = fmt.Fprintln(w, styles.title.Render(fmt.Sprintf("Facilities (%d)", len(facilities))))
	if len(facilities) == 0 {
		_, _ = fmt.Fprintln(w, styles.muted.Render("no facilities"))
		return
	}

	t := &table{headers: []string{"ID", "NAME", "KIND", "CAPACITY", "RATE/H", "ACTIVE"}}
	for _, f := range facilities {
		active := styles.success.Render("yes")
		if !f.Active {
			active = styles.muted.Render("no")
		}
		t.add(f.ID, f.Name, f.Kind, fmt.Sprint(f.Capacity), formatCents(f.HourlyRateCents), active)
	}
	t.render(w)
}

func renderStats(w io.Writer, snap booking.Snapshot) {
	_, _ = fmt.Fprintln(w, styles.title.Render("Dashboard"))

	field := func(name, value string) {
		_, _ = fmt.Fprintf(w, "  %-18s %s\n", styles.header.Render(name), value)
	}
	field("Bookings", fmt.Sprint(snap.Bookings))
	for _, status := range []model.BookingStatus{model.BookingPending, model.BookingConfirmed, model.BookingCancelled} {
		field("  "+string(status), fmt.Sprint(snap.ByStatus[status]))
	}
	field("Pending", styles.warning.Render(fmt.Sprint(snap.Pending)))
	field("Failed", styles.danger.Render(fmt.Sprint(snap.Failed)))
	field("Rolled back", styles.muted.Render(fmt.Sprint(snap.RolledBack)))
	field("Revenue", formatCents(snap.RevenueCents))
	field("Mean duration", snap.MeanDuration.String())
	field("Median duration", snap.MedianDuration.String())
	_, _ = fmt.Fprintln(w)

	t := &table{headers: []string{"FACILITY", "BOOKINGS", "BOOKED", "REVENUE"}}
	for _, u := range snap.Facilities {
		t.add(u.Name, fmt.Sprint(u.Bookings), u.Booked.String(), formatCents(u.Revenue))
	}
	t.render(w)
	_, _ = fmt.Fprintf(w, "%s mean %.1fh, min %.1fh, max %.1fh, balance %.2f\n\n",
		styles.info.Render("utilization"), snap.Utilization.Mean, snap.Utilization.Min, snap.Utilization.Max, snap.Utilization.Balance)

	t = &table{headers: []string{"COORDINATOR", "CONFIRMATIONS", "MEAN", "P95", "MAX", "ROLLBACKS"}}
	for _, l := range snap.Latency {
		t.add(l.Coordinator, fmt.Sprint(l.Count), round(l.Mean), round(l.P95), round(l.Max), fmt.Sprint(l.Rollbacks))
	}
	t.render(w)
}

// --------------------------------------------------------------------------
// Formatting
// --------------------------------------------------------------------------

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func formatSlot(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return start.Format("Mon 2006-01-02 15:04") + "-" + end.Format("15:04")
	}
	return start.Format("2006-01-02 15:04") + " - " + end.Format("2006-01-02 15:04")
}

func round(d time.Duration) string {
	switch {
	case d == 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(100 * time.Microsecond).String()
	}
}
