package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dBook/cmd/util"
	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/booking"
	"github.com/ValentinKolb/dBook/lib/common"
	"github.com/ValentinKolb/dBook/lib/optimistic"
	"github.com/ValentinKolb/dBook/rpc/client"
	rpccommon "github.com/ValentinKolb/dBook/rpc/common"
	"github.com/ValentinKolb/dBook/rpc/serializer"
	"github.com/ValentinKolb/dBook/rpc/transport/http"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var Logger = logger.GetLogger("console")

// session holds everything a console command works with. It is created by setupConsole
// before every command and closed afterwards.
type session struct {
	config     *common.ConsoleConfig
	api        api.IBookingAPI
	bookings   *booking.Bookings
	facilities *booking.Facilities
	dashboard  *booking.Dashboard
}

var (
	current *session
	quiet   bool // suppresses the notifier output

	// ConsoleCommands represents the console command group
	ConsoleCommands = &cobra.Command{
		Use:   "console",
		Short: "Manage facilities and bookings with optimistic updates",
		Long: `Manage the facilities and bookings of one tenant. Every change is shown immediately
and confirmed by the data API afterwards; rejected changes are rolled back.

The configuration can be set via command line flags or environment variables.
The format of the environment variables is DBOOK_<flag> (e.g. DBOOK_FAIL_RATE=0.3)`,
		PersistentPreRunE:  setupConsole,
		PersistentPostRunE: teardownConsole,
	}
)

func init() {
	util.SetupConsoleFlags(ConsoleCommands)

	// Add subcommands
	ConsoleCommands.AddCommand(listCmd)
	ConsoleCommands.AddCommand(bookCmd)
	ConsoleCommands.AddCommand(cancelCmd)
	ConsoleCommands.AddCommand(deleteCmd)
	ConsoleCommands.AddCommand(rescheduleCmd)
	ConsoleCommands.AddCommand(seriesCmd)
	ConsoleCommands.AddCommand(promoCmd)
	ConsoleCommands.AddCommand(facilityCommands)
	ConsoleCommands.AddCommand(statsCmd)
	ConsoleCommands.AddCommand(exportCmd)
	ConsoleCommands.AddCommand(simulateCmd)
}

// setupConsole reads the configuration, connects to the data API and loads the read models
func setupConsole(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetConsoleConfig()
	if err := config.Validate(); err != nil {
		return err
	}
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}
	Logger.Debugf("configuration:%s", config.String())

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	dataAPI, err := openAPI(ctx, config)
	if err != nil {
		return err
	}

	if config.SeedFile != "" {
		seed, err := booking.LoadSeed(config.SeedFile)
		if err != nil {
			_ = dataAPI.Close()
			return err
		}
		if seed.Tenant != config.Tenant {
			Logger.Warningf("seed file is for tenant %s, console manages %s", seed.Tenant, config.Tenant)
		}
		if _, err := seed.Apply(ctx, dataAPI); err != nil {
			_ = dataAPI.Close()
			return err
		}
	}

	s := &session{
		config: config,
		api:    api.WithFaults(dataAPI, api.FaultConfig{FailRate: config.FailRate, Latency: config.Latency}),
	}
	adapterConfig := booking.Config{
		Tenant:            config.Tenant,
		AutoRollback:      config.AutoRollback,
		RollbackDelay:     config.RollbackDelay,
		RetainFailures:    config.RetainFailures,
		PreserveTokens:    config.PreserveTokens,
		KeepFailedUpdates: config.KeepFailedUpdates,
		Notifier:          optimistic.NotifierFunc(notify),
	}
	s.bookings = booking.NewBookings(s.api, adapterConfig)
	s.facilities = booking.NewFacilities(s.api, adapterConfig)
	s.dashboard = booking.NewDashboard(s.bookings, s.facilities)
	current = s

	if _, err := s.facilities.Load(ctx); err != nil {
		return errors.Join(err, s.close())
	}
	if _, err := s.bookings.Load(ctx); err != nil {
		return errors.Join(err, s.close())
	}
	return nil
}

// openAPI opens the database or connects to a dbook server, depending on the driver
func openAPI(ctx context.Context, config *common.ConsoleConfig) (api.IBookingAPI, error) {
	if config.Driver != "rpc" {
		return api.OpenSQL(ctx, config.Driver, config.DSN)
	}

	clientConfig := rpccommon.ClientConfig{
		Endpoints:     strings.Split(config.DSN, ","),
		TimeoutSecond: 30,
		RetryCount:    1,
	}
	Logger.Debugf("rpc client:%s", clientConfig.String())
	bookingAPI, err := client.NewRPCBookingAPI(clientConfig, http.NewHttpClientTransport(), serializer.NewJSONSerializer())
	if err != nil {
		return nil, err
	}
	if _, err := bookingAPI.ListFacilities(ctx, config.Tenant); err != nil {
		_ = bookingAPI.Close()
		return nil, fmt.Errorf("failed to reach dbook server at %s: %w", config.DSN, err)
	}
	return bookingAPI, nil
}

// teardownConsole closes the session opened by setupConsole
func teardownConsole(_ *cobra.Command, _ []string) error {
	if current == nil {
		return nil
	}
	err := current.close()
	current = nil
	return err
}

func (s *session) close() error {
	return errors.Join(s.bookings.Close(), s.facilities.Close(), s.api.Close())
}

// notify prints the success and error messages of the coordinators
func notify(level optimistic.Level, coordinator string, message string, err error) {
	if quiet {
		return
	}
	switch level {
	case optimistic.LevelError:
		if cause := errors.Unwrap(err); cause != nil {
			err = cause
		}
		fmt.Println(styles.danger.Render("✗ "+message) + styles.muted.Render(fmt.Sprintf(" (%s: %v)", coordinator, err)))
	default:
		fmt.Println(styles.success.Render("✓ " + message))
	}
}
