package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// IntakeConfig holds the IMAP settings for the ticket intake mailbox.
// The mailbox password is not stored here; it lives in the system
// keyring under the configured username.
type IntakeConfig struct {
	// Enabled controls whether the daemon polls the intake mailbox.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Host and Port locate the IMAP server.
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`

	// Username is the mailbox login and the keyring credential key.
	Username string `mapstructure:"username" yaml:"username"`

	// Mailbox is the folder to poll (default INBOX).
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// TLS selects implicit TLS for the IMAP connection.
	TLS bool `mapstructure:"tls" yaml:"tls"`

	// ReporterID is the user recorded as reporter on intake-created
	// tickets (typically a service account).
	ReporterID int64 `mapstructure:"reporter_id" yaml:"reporter_id"`

	// PollCron is the cron expression for the intake poll job.
	PollCron string `mapstructure:"poll_cron" yaml:"poll_cron"`
}

// SweepConfig holds the schedule for the SLA breach sweep.
type SweepConfig struct {
	Cron string `mapstructure:"cron" yaml:"cron"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DBPath is the SQLite database location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// DefaultSLAID is the SLA template applied when ticket processing
	// supplies neither an explicit SLA nor a manual due date.
	DefaultSLAID int64 `mapstructure:"default_sla_id" yaml:"default_sla_id"`

	Intake IntakeConfig `mapstructure:"intake" yaml:"intake"`
	Sweep  SweepConfig  `mapstructure:"sweep" yaml:"sweep"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/opsdesk/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "opsdesk", "config.yaml")
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "opsdesk.db")
	}
	return filepath.Join(home, ".local", "share", "opsdesk", "opsdesk.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DBPath:       DefaultDBPath(),
		DefaultSLAID: 1,
		Intake: IntakeConfig{
			Mailbox:  "INBOX",
			TLS:      true,
			PollCron: "@every 2m",
		},
		Sweep: SweepConfig{
			Cron: "@every 15m",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("default_sla_id", 1)
	v.SetDefault("intake.mailbox", "INBOX")
	v.SetDefault("intake.tls", true)
	v.SetDefault("intake.poll_cron", "@every 2m")
	v.SetDefault("sweep.cron", "@every 15m")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("db_path", cfg.DBPath)
	v.Set("default_sla_id", cfg.DefaultSLAID)
	v.Set("intake", cfg.Intake)
	v.Set("sweep", cfg.Sweep)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
