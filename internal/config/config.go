package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	JWT         JWTConfig         `yaml:"jwt"`
	Email       EmailConfig       `yaml:"email"`
	Territory   TerritoryConfig   `yaml:"territory"`
	Billing     BillingConfig     `yaml:"billing"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Debt        DebtConfig        `yaml:"debt"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// JWTConfig contains operator token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// EmailConfig contains settings for escalation email alerts
type EmailConfig struct {
	SendgridAPIKey string `yaml:"sendgrid_api_key"`
	From           string `yaml:"from"`
	Enabled        bool   `yaml:"enabled"`
}

// TerritoryConfig selects the claim-store backend
type TerritoryConfig struct {
	Type string `yaml:"type"` // "mock"
}

// BillingConfig contains land pricing and limit settings.
// All amounts are in spirit stones.
type BillingConfig struct {
	BasePrice            int64   `yaml:"base_price"`
	PricePerUnit         int64   `yaml:"price_per_unit"`
	LevelDiscountFactor  float64 `yaml:"level_discount_factor"`
	CostPerUnitPerPeriod int64   `yaml:"cost_per_unit_per_period"`
	BindingFlatFee       int64   `yaml:"binding_flat_fee"`
	BaseLimit            int32   `yaml:"base_limit"`
	PerLevelBonus        int32   `yaml:"per_level_bonus"`
	PerMemberBonus       float64 `yaml:"per_member_bonus"`
	MaxLimit             int32   `yaml:"max_limit"`
}

// MaintenanceConfig contains the billing period and the display thresholds
// used for the derived maintenance status.
type MaintenanceConfig struct {
	PeriodMs              int64 `yaml:"period_ms"`
	GracePeriodDays       int   `yaml:"grace_period_days"`
	FreezePeriodDays      int   `yaml:"freeze_period_days"`
	AutoReleasePeriodDays int   `yaml:"auto_release_period_days"`
}

// Period returns the billing period as a duration
func (m MaintenanceConfig) Period() time.Duration {
	return time.Duration(m.PeriodMs) * time.Millisecond
}

// DebtConfig contains escalation thresholds measured from debt onset
type DebtConfig struct {
	WarningIntervalMs int64 `yaml:"warning_interval_ms"`
	FreezeThresholdMs int64 `yaml:"freeze_threshold_ms"`
	DeleteThresholdMs int64 `yaml:"delete_threshold_ms"`
}

// SchedulerConfig contains cron specs for scheduled jobs
type SchedulerConfig struct {
	MaintenanceCheck string `yaml:"maintenance_check"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in defaults matching the reference server behavior
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Territory.Type == "" {
		c.Territory.Type = "mock"
	}
	if c.Billing.BasePrice == 0 {
		c.Billing.BasePrice = 1000
	}
	if c.Billing.PricePerUnit == 0 {
		c.Billing.PricePerUnit = 100
	}
	if c.Billing.LevelDiscountFactor == 0 {
		c.Billing.LevelDiscountFactor = 0.5
	}
	if c.Billing.CostPerUnitPerPeriod == 0 {
		c.Billing.CostPerUnitPerPeriod = 100
	}
	if c.Billing.BindingFlatFee == 0 {
		c.Billing.BindingFlatFee = 2000
	}
	if c.Billing.BaseLimit == 0 {
		c.Billing.BaseLimit = 10
	}
	if c.Billing.PerLevelBonus == 0 {
		c.Billing.PerLevelBonus = 2
	}
	if c.Billing.PerMemberBonus == 0 {
		c.Billing.PerMemberBonus = 0.2
	}
	if c.Billing.MaxLimit == 0 {
		c.Billing.MaxLimit = 200
	}
	if c.Maintenance.PeriodMs == 0 {
		c.Maintenance.PeriodMs = 7 * 24 * 60 * 60 * 1000
	}
	if c.Maintenance.GracePeriodDays == 0 {
		c.Maintenance.GracePeriodDays = 3
	}
	if c.Maintenance.FreezePeriodDays == 0 {
		c.Maintenance.FreezePeriodDays = 7
	}
	if c.Maintenance.AutoReleasePeriodDays == 0 {
		c.Maintenance.AutoReleasePeriodDays = 14
	}
	if c.Debt.WarningIntervalMs == 0 {
		c.Debt.WarningIntervalMs = 24 * 60 * 60 * 1000
	}
	if c.Debt.FreezeThresholdMs == 0 {
		c.Debt.FreezeThresholdMs = 3 * 24 * 60 * 60 * 1000
	}
	if c.Debt.DeleteThresholdMs == 0 {
		c.Debt.DeleteThresholdMs = 7 * 24 * 60 * 60 * 1000
	}
	if c.Scheduler.MaintenanceCheck == "" {
		// Hourly, at second 0 of minute 0
		c.Scheduler.MaintenanceCheck = "0 0 * * * *"
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendgridAPIKey = val
	}
}

// Validate checks that required settings are present and thresholds ordered
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Debt.FreezeThresholdMs >= c.Debt.DeleteThresholdMs {
		return fmt.Errorf("debt freeze threshold must be below delete threshold")
	}
	if c.Debt.WarningIntervalMs <= 0 {
		return fmt.Errorf("debt warning interval must be positive")
	}
	if !(c.Maintenance.GracePeriodDays < c.Maintenance.FreezePeriodDays &&
		c.Maintenance.FreezePeriodDays < c.Maintenance.AutoReleasePeriodDays) {
		return fmt.Errorf("maintenance thresholds must be ordered: grace < freeze < auto-release")
	}
	if c.Email.Enabled && c.Email.SendgridAPIKey == "" {
		return fmt.Errorf("sendgrid api key is required when email is enabled")
	}
	return nil
}

// GetServerAddress returns the host:port address for the HTTP server
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabaseConnectionString returns the PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Database, c.Database.SSLMode)
}
