package console

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ValentinKolb/dBook/cmd/util"
	"github.com/ValentinKolb/dBook/lib/booking"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/spf13/cobra"
)

var (
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists the facilities and bookings of the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderFacilities(os.Stdout, current.facilities.List())
			fmt.Println()
			renderBookings(os.Stdout, current.bookings.Records(), current.facilities)
			return nil
		},
	}
	bookCmd = &cobra.Command{
		Use:   "book [facility] [start] [duration] [title]",
		Short: "Books a facility (start as RFC3339 or 2006-01-02T15:04, duration e.g. 90m)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := parseBooking(cmd, args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}
			created, err := current.bookings.Create(cmd.Context(), b)
			if err != nil {
				return err
			}
			fmt.Printf("booked %s for %s\n", created.ID, formatCents(created.PriceCents))
			return nil
		},
	}
	cancelCmd = &cobra.Command{
		Use:   "cancel [booking-id]",
		Short: "Cancels a booking, which frees its slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := current.bookings.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("cancelled successfully")
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [booking-id...]",
		Short: "Deletes one or more bookings (several ids are deleted all-or-nothing)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if len(args) == 1 {
				err = current.bookings.Delete(cmd.Context(), args[0])
			} else {
				err = current.bookings.DeleteMany(cmd.Context(), args)
			}
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d booking(s)\n", len(args))
			return nil
		},
	}
	rescheduleCmd = &cobra.Command{
		Use:   "reschedule [shift] [booking-id...]",
		Short: "Moves bookings by shift (e.g. 1h, -30m, 168h) all-or-nothing",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shift, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("shift must be a duration: %w", err)
			}
			moved, err := current.bookings.RescheduleMany(cmd.Context(), args[1:], shift)
			if err != nil {
				return err
			}
			fmt.Printf("rescheduled %d booking(s)\n", len(moved))
			return nil
		},
	}
	seriesCmd = &cobra.Command{
		Use:   "series [facility] [start] [duration] [weeks] [title]",
		Short: "Books the same slot weekly (all weeks or none)",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("weeks must be a number: %w", err)
			}
			template, err := parseBooking(cmd, args[0], args[1], args[2], args[4])
			if err != nil {
				return err
			}
			created, err := current.bookings.CreateSeries(cmd.Context(), template, weeks)
			if err != nil {
				return err
			}
			fmt.Printf("booked a series of %d weeks\n", len(created))
			return nil
		},
	}
	promoCmd = &cobra.Command{
		Use:   "promo [code] [percent-off]",
		Short: "Creates or replaces a promotion code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("percent-off must be a number: %w", err)
			}
			p := model.Promotion{Code: args[0], PercentOff: percent}
			if err := current.api.UpsertPromotion(cmd.Context(), current.config.Tenant, p); err != nil {
				return err
			}
			fmt.Println("promotion saved")
			return nil
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export [path]",
		Short: "Writes facilities, bookings and statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp := booking.NewExport(current.config.Tenant, current.bookings, current.facilities)
			if err := booking.WriteExport(args[0], exp); err != nil {
				return err
			}
			fmt.Printf("exported %d bookings to %s\n", len(exp.Bookings), args[0])
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Shows the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prometheus, _ := cmd.Flags().GetBool("prometheus")
			if prometheus {
				for _, m := range current.dashboard.Metrics() {
					m.WritePrometheus(os.Stdout)
				}
				return nil
			}
			renderStats(os.Stdout, current.dashboard.Stats())
			return nil
		},
	}
)

func init() {
	bookCmd.Flags().String("customer", "", util.WrapString("Name of the customer"))
	bookCmd.Flags().String("promo", "", util.WrapString("Promotion code applied to the price"))
	seriesCmd.Flags().String("customer", "", util.WrapString("Name of the customer"))
	seriesCmd.Flags().String("promo", "", util.WrapString("Promotion code applied to the price"))
	statsCmd.Flags().Bool("prometheus", false, util.WrapString("Print the engine counters in Prometheus text format"))
}

// --------------------------------------------------------------------------
// Facility Commands
// --------------------------------------------------------------------------

var (
	facilityCommands = &cobra.Command{
		Use:   "facility",
		Short: "Manage facilities",
	}
	facilityAddCmd = &cobra.Command{
		Use:   "add [name] [kind] [capacity] [hourly-rate-cents]",
		Short: "Adds a facility",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("capacity must be a number: %w", err)
			}
			rate, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("hourly-rate-cents must be a number: %w", err)
			}
			id, _ := cmd.Flags().GetString("id")
			f, err := current.facilities.Create(cmd.Context(), model.Facility{
				ID:              id,
				Name:            args[0],
				Kind:            args[1],
				Capacity:        capacity,
				HourlyRateCents: rate,
				Active:          true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("added facility %s\n", f.ID)
			return nil
		},
	}
	facilityDeactivateCmd = &cobra.Command{
		Use:   "deactivate [facility-id]",
		Short: "Stops new bookings of a facility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := current.facilities.Deactivate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deactivated successfully")
			return nil
		},
	}
	facilityDeleteCmd = &cobra.Command{
		Use:   "delete [facility-id]",
		Short: "Deletes a facility without bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.facilities.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
)

func init() {
	facilityAddCmd.Flags().String("id", "", util.WrapString("Optional id of the facility (generated if empty)"))

	facilityCommands.AddCommand(facilityAddCmd)
	facilityCommands.AddCommand(facilityDeactivateCmd)
	facilityCommands.AddCommand(facilityDeleteCmd)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// startLayouts are the accepted formats of a start time. Times without zone are local.
var startLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

func parseStart(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start %q (expected RFC3339 or 2006-01-02T15:04)", s)
}

// parseBooking builds a booking from the common arguments of book and series.
func parseBooking(cmd *cobra.Command, facility, start, duration, title string) (model.Booking, error) {
	from, err := parseStart(start)
	if err != nil {
		return model.Booking{}, err
	}
	length, err := time.ParseDuration(duration)
	if err != nil {
		return model.Booking{}, fmt.Errorf("duration must be a duration (e.g. 90m): %w", err)
	}
	customer, _ := cmd.Flags().GetString("customer")
	promo, _ := cmd.Flags().GetString("promo")
	return model.Booking{
		FacilityID:    facility,
		Title:         title,
		Customer:      customer,
		Start:         from.UTC(),
		End:           from.Add(length).UTC(),
		PromotionCode: promo,
	}, nil
}
