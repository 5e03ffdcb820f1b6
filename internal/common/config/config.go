// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Sticky    StickyConfig    `mapstructure:"sticky"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Funnel    FunnelConfig    `mapstructure:"funnel"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Email     EmailConfig     `mapstructure:"email"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// StickyConfig holds the payment provider connection settings.
// Username/Password are optional: when either is empty the order
// coordinator runs in simulated mode instead of calling the provider.
type StickyConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	CampaignID string `mapstructure:"campaign_id"`
	ShippingID string `mapstructure:"shipping_id"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	TestMode   bool   `mapstructure:"test_mode"`
}

// Configured reports whether real provider credentials are present.
func (s StickyConfig) Configured() bool {
	return s.Username != "" && s.Password != ""
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FunnelConfig holds funnel step behavior settings.
type FunnelConfig struct {
	SessionTTL  int    `mapstructure:"session_ttl"` // milliseconds
	CatalogPath string `mapstructure:"catalog_path"`
}

// AnalyticsConfig selects and configures the purchase-event sink.
// Backend is one of "rudder", "sns" or "" (no-op).
type AnalyticsConfig struct {
	Backend string `mapstructure:"backend"`

	Rudder struct {
		DataPlaneURL string `mapstructure:"data_plane_url"`
		WriteKey     string `mapstructure:"write_key"`
		Timeout      int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"rudder"`

	SNS struct {
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// EmailConfig holds settings for the order-confirmation mailer.
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	FromEmail string `mapstructure:"from_email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (r RedisConfig) Addr() string {
	if r.Address == "" {
		return "localhost:6379"
	}
	return r.Address
}

func (s ServerConfig) Addr() string {
	if s.Address == "" {
		return fmt.Sprintf(":%d", 8080)
	}
	return s.Address
}
