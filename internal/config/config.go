package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database  DatabaseConfig
	Changelog ChangelogConfig
	Logging   LoggingConfig
	Codes     Codes
	Countries map[string]CountryConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// ChangelogConfig holds the change-log transport settings. An empty broker
// list keeps the in-memory log.
type ChangelogConfig struct {
	Brokers []string
	Topic   string
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string
}

// CountryConfig maps one country to its mirrored accounting sides.
type CountryConfig struct {
	PivotAccounts      []string `mapstructure:"pivot_accounts"`
	ReceivableAccounts []string `mapstructure:"receivable_accounts"`
	AutomatedActor     string   `mapstructure:"automated_actor"`
	ReminderOffsetDays int      `mapstructure:"reminder_offset_days"`
}

// Codes carries the opaque Action/KPI/incident taxonomy. The engine never
// interprets these beyond equality; reporting owns their meaning.
type Codes struct {
	ActionNone        int64 `mapstructure:"action_none"`
	ActionClose       int64 `mapstructure:"action_close"`
	ActionClaim       int64 `mapstructure:"action_claim"`
	ActionInvestigate int64 `mapstructure:"action_investigate"`

	KPIBalanced     int64 `mapstructure:"kpi_balanced"`
	KPIPendingClaim int64 `mapstructure:"kpi_pending_claim"`
	KPIUnmatched    int64 `mapstructure:"kpi_unmatched"`

	IncidentMissingInvoice   int64 `mapstructure:"incident_missing_invoice"`
	IncidentExpiredGuarantee int64 `mapstructure:"incident_expired_guarantee"`
	IncidentAmountMismatch   int64 `mapstructure:"incident_amount_mismatch"`
}

// Country returns the configuration for a country code, case-insensitive.
func (c Config) Country(code string) (CountryConfig, bool) {
	cc, ok := c.Countries[strings.ToUpper(strings.TrimSpace(code))]
	return cc, ok
}

// Load reads configuration from file and env. Env var overrides use prefix LEDGERRECON_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerrecon", "ledgerrecon.db"))
	v.SetDefault("database.migrations_path", "internal/database/migrations")
	v.SetDefault("changelog.brokers", []string{})
	v.SetDefault("changelog.topic", "recon_changes")
	v.SetDefault("logging.level", "info")

	v.SetDefault("codes.action_none", 0)
	v.SetDefault("codes.action_close", 1)
	v.SetDefault("codes.action_claim", 2)
	v.SetDefault("codes.action_investigate", 3)
	v.SetDefault("codes.kpi_balanced", 1)
	v.SetDefault("codes.kpi_pending_claim", 2)
	v.SetDefault("codes.kpi_unmatched", 3)
	v.SetDefault("codes.incident_missing_invoice", 1)
	v.SetDefault("codes.incident_expired_guarantee", 2)
	v.SetDefault("codes.incident_amount_mismatch", 3)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEDGERRECON_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledgerrecon"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGERRECON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Countries == nil {
		c.Countries = map[string]CountryConfig{}
	}
	upper := make(map[string]CountryConfig, len(c.Countries))
	for code, cc := range c.Countries {
		upper[strings.ToUpper(strings.TrimSpace(code))] = cc
	}
	c.Countries = upper
	return c, nil
}
