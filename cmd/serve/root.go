package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dBook/cmd/util"
	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/booking"
	libcommon "github.com/ValentinKolb/dBook/lib/common"
	"github.com/ValentinKolb/dBook/rpc/common"
	"github.com/ValentinKolb/dBook/rpc/serializer"
	"github.com/ValentinKolb/dBook/rpc/server"
	"github.com/ValentinKolb/dBook/rpc/transport/http"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("serve")

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the dBook API server",
		Long: `Start the dBook API server. It owns the database and answers the consoles that connect with --driver rpc.
The configuration can be set via command line flags or environment variables. The format of the environment variables is DBOOK_<flag> (e.g. DBOOK_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "driver"
	ServeCmd.Flags().String(key, "sqlite", cmdUtil.WrapString("Database driver (sqlite, pgx)"))

	key = "dsn"
	ServeCmd.Flags().String(key, "dbook.db", cmdUtil.WrapString("Data source name: a file path or ':memory:' for sqlite, a postgres URL for pgx"))

	key = "seed"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Optional TOML seed file applied to the database on start. Known ids are skipped"))

	key = "fail-rate"
	ServeCmd.Flags().Float64(key, 0, cmdUtil.WrapString("Probability (0-1) that the server rejects a change"))

	key = "latency"
	ServeCmd.Flags().Duration(key, 0, cmdUtil.WrapString("Latency added to every request (e.g. 500ms)"))

	key = "timeout"
	ServeCmd.Flags().Int64(key, 10, cmdUtil.WrapString("Timeout of a single request in seconds"))

	key = "endpoint"
	ServeCmd.Flags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))

	key = "serializer"
	ServeCmd.Flags().String(key, "json", cmdUtil.WrapString("serializer to use (json)"))

	key = "log-level"
	ServeCmd.Flags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Driver = viper.GetString("driver")
	serveCmdConfig.DSN = viper.GetString("dsn")
	serveCmdConfig.SeedFile = viper.GetString("seed")
	serveCmdConfig.FailRate = viper.GetFloat64("fail-rate")
	serveCmdConfig.Latency = viper.GetDuration("latency")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}
	return libcommon.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the dBook API server
func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// parse the serializer
	s, err := serializer.New(viper.GetString("serializer"))
	if err != nil {
		return err
	}

	// open the database
	openCtx, cancel := context.WithTimeout(ctx, time.Duration(serveCmdConfig.TimeoutSecond)*time.Second)
	defer cancel()
	sqlAPI, err := api.OpenSQL(openCtx, serveCmdConfig.Driver, serveCmdConfig.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlAPI.Close(); err != nil {
			Logger.Errorf("failed to close database: %v", err)
		}
	}()

	if serveCmdConfig.SeedFile != "" {
		seed, err := booking.LoadSeed(serveCmdConfig.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(openCtx, sqlAPI); err != nil {
			return fmt.Errorf("failed to apply seed: %w", err)
		}
	}

	bookingAPI := api.WithFaults(sqlAPI, api.FaultConfig{
		FailRate: serveCmdConfig.FailRate,
		Latency:  serveCmdConfig.Latency,
	})

	serv := server.NewRPCServer(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
		s,
		bookingAPI,
	)

	err = serv.Serve(ctx)
	Logger.Infof("served requests: %v", serv.Calls())
	return err
}

