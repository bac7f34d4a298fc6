package util

import (
	"strings"

	"github.com/ValentinKolb/dBook/lib/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DBOOK_TENANT)
	EnvPrefix = "dbook"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupConsoleFlags adds the console configuration flags to a command
func SetupConsoleFlags(cmd *cobra.Command) {
	key := "tenant"
	cmd.PersistentFlags().String(key, "demo", WrapString("Tenant whose facilities and bookings are managed"))

	key = "driver"
	cmd.PersistentFlags().String(key, "sqlite", WrapString("Driver of the data API: sqlite or pgx open the database directly, rpc connects to a dbook server"))

	key = "dsn"
	cmd.PersistentFlags().String(key, "dbook.db", WrapString("Data source name: a file path or ':memory:' for sqlite, a postgres URL for pgx, comma-separated server addresses for rpc"))

	key = "seed"
	cmd.PersistentFlags().String(key, "", WrapString("Optional TOML seed file applied to the database on start. Known ids are skipped"))

	key = "fail-rate"
	cmd.PersistentFlags().Float64(key, 0, WrapString("Probability (0-1) that the data API rejects a change. Used to watch rollbacks"))

	key = "latency"
	cmd.PersistentFlags().Duration(key, 0, WrapString("Latency added to every call of the data API (e.g. 500ms)"))

	key = "auto-rollback"
	cmd.PersistentFlags().Bool(key, true, WrapString("Roll back speculative changes whose confirmation takes longer than the rollback delay"))

	key = "rollback-delay"
	cmd.PersistentFlags().Duration(key, common.DefaultRollbackDelay, WrapString("Countdown of the auto rollback"))

	key = "retain-failures"
	cmd.PersistentFlags().Bool(key, false, WrapString("Keep rejected bookings in a failed state so they can be retried"))

	key = "preserve-tokens"
	cmd.PersistentFlags().Bool(key, false, WrapString("Restore bookings of a rejected delete under their original token and position"))

	key = "keep-failed-updates"
	cmd.PersistentFlags().Bool(key, false, WrapString("Keep the rejected value of a failed update instead of restoring the previous one"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig loads .env files and lets viper read DBOOK_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConsoleConfig reads the console configuration from viper
func GetConsoleConfig() *common.ConsoleConfig {
	return &common.ConsoleConfig{
		Tenant:            viper.GetString("tenant"),
		Driver:            viper.GetString("driver"),
		DSN:               viper.GetString("dsn"),
		SeedFile:          viper.GetString("seed"),
		FailRate:          viper.GetFloat64("fail-rate"),
		Latency:           viper.GetDuration("latency"),
		AutoRollback:      viper.GetBool("auto-rollback"),
		RollbackDelay:     viper.GetDuration("rollback-delay"),
		RetainFailures:    viper.GetBool("retain-failures"),
		PreserveTokens:    viper.GetBool("preserve-tokens"),
		KeepFailedUpdates: viper.GetBool("keep-failed-updates"),
		LogLevel:          viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
