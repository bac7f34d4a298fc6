package common

import (
	"fmt"
	"strings"
	"time"
)

// DefaultRollbackDelay is the auto rollback countdown used if none is configured.
const DefaultRollbackDelay = 10 * time.Second

// --------------------------------------------------------------------------
// Console configuration struct
// --------------------------------------------------------------------------

// ConsoleConfig holds all configuration parameters of the booking console.
type ConsoleConfig struct {
	// Tenant whose facilities and bookings are managed
	Tenant string

	// Data API (the remote authority)
	Driver   string // sqlite, pgx or rpc (a dbook server)
	DSN      string
	SeedFile string // optional TOML file applied on start

	// Fault injection on the data API
	FailRate float64
	Latency  time.Duration

	// Optimistic engine
	AutoRollback      bool
	RollbackDelay     time.Duration
	RetainFailures    bool
	PreserveTokens    bool
	KeepFailedUpdates bool

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration for values the console can not work with.
func (c *ConsoleConfig) Validate() error {
	if c.Tenant == "" {
		return fmt.Errorf("tenant must not be empty")
	}
	if c.Driver != "sqlite" && c.Driver != "pgx" && c.Driver != "rpc" {
		return fmt.Errorf("invalid driver %s. must be one of sqlite, pgx, rpc", c.Driver)
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("fail rate must be between 0 and 1, got %v", c.FailRate)
	}
	if c.AutoRollback && c.RollbackDelay <= 0 {
		return fmt.Errorf("rollback delay must be positive when auto rollback is enabled")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ConsoleConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Tenant")
	addField("Tenant", c.Tenant)

	addSection("Data API")
	addField("Driver", c.Driver)
	addField("DSN", redactDSN(c.DSN))
	if c.SeedFile != "" {
		addField("Seed File", c.SeedFile)
	}

	if c.FailRate > 0 || c.Latency > 0 {
		addSection("Fault Injection")
		addField("Fail Rate", fmt.Sprintf("%.0f %%", c.FailRate*100))
		addField("Latency", c.Latency.String())
	}

	addSection("Optimistic Engine")
	addField("Auto Rollback", fmt.Sprintf("%t", c.AutoRollback))
	if c.AutoRollback {
		addField("Rollback Delay", c.RollbackDelay.String())
	}
	addField("Retain Failures", fmt.Sprintf("%t", c.RetainFailures))
	addField("Preserve Tokens", fmt.Sprintf("%t", c.PreserveTokens))
	addField("Keep Failed Updates", fmt.Sprintf("%t", c.KeepFailedUpdates))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// redactDSN hides the password of a postgres style DSN (user:password@host).
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":***@" + host
}
