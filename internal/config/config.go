// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types and validates that required
// values are present so they can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every variable read by LoadConfig must carry.
//
// Nested struct fields are mapped with a double underscore, e.g.
// NACIONMX_DISCORD__ECONOMY_TOKEN -> discord.economy_token -> Config.Discord.EconomyToken.
const EnvPrefix = "NACIONMX_"

// ServiceName tags every log line and APM transaction.
const ServiceName = "nacionmx-bot"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Discord       DiscordConfig        `koanf:"discord" validate:"required"`
	Lock          LockConfig           `koanf:"lock" validate:"required"`
	KeepAlive     KeepAliveConfig      `koanf:"keep_alive"`
	Economy       EconomyConfig        `koanf:"economy" validate:"required"`
	Dashboard     DashboardConfig      `koanf:"dashboard"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=development production local test"`
}

// ServerConfig groups settings for the HTTP server runtime. Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
//
// URL takes precedence over the individual fields. Hosted providers such as
// Supabase hand out a full connection string, local setups usually don't.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	Host            string `koanf:"host" validate:"required_without=URL"`
	Port            int    `koanf:"port"`
	User            string `koanf:"user" validate:"required_without=URL"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required_without=URL"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"min=0"`
}

// DSN returns the connection string for pgx.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	// URL-encode the password so special characters don't break the DSN.
	encodedPassword := url.QueryEscape(c.Password)
	hostPort := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.User,
		encodedPassword,
		hostPort,
		c.Name,
		c.SSLMode,
	)
}

// RedisConfig contains Redis connection details. Address is "host:port".
//
// Redis is optional: without it cooldowns are kept in memory and background
// jobs run inline.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// DiscordConfig holds one token per bot instance and the guilds commands are
// registered in. An empty token disables that instance.
type DiscordConfig struct {
	ModerationToken string        `koanf:"moderation_token"`
	EconomyToken    string        `koanf:"economy_token"`
	GovernmentToken string        `koanf:"government_token"`
	DealershipToken string        `koanf:"dealership_token"`
	GuildIDs        []string      `koanf:"guild_ids"`
	AlertChannelID  string        `koanf:"alert_channel_id"`
	AckDeadline     time.Duration `koanf:"ack_deadline" validate:"min=1s"`
	RateLimitCount  int           `koanf:"rate_limit_count" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
}

// Tokens returns the configured tokens keyed by instance name.
func (c DiscordConfig) Tokens() map[string]string {
	return map[string]string{
		"moderation": c.ModerationToken,
		"economy":    c.EconomyToken,
		"government": c.GovernmentToken,
		"dealership": c.DealershipToken,
	}
}

// LockConfig tunes the single-instance heartbeat lock.
type LockConfig struct {
	Key               string        `koanf:"key" validate:"required"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" validate:"min=1s"`
	StaleAfter        time.Duration `koanf:"stale_after" validate:"min=1s"`
	WaitAttempts      int           `koanf:"wait_attempts" validate:"min=0"`
	WaitInterval      time.Duration `koanf:"wait_interval" validate:"min=0"`
}

// KeepAliveConfig configures the periodic pinger that keeps the hosting
// platform and the hosted database from idling.
type KeepAliveConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url" validate:"omitempty,url"`
	Interval     time.Duration `koanf:"interval" validate:"min=1s"`
	DatabasePing bool          `koanf:"database_ping"`
}

// EconomyConfig holds the tunables of the economy commands.
type EconomyConfig struct {
	TransferTaxRate float64       `koanf:"transfer_tax_rate" validate:"min=0,max=1"`
	MaxTransfer     int64         `koanf:"max_transfer" validate:"min=1"`
	SalaryCooldown  time.Duration `koanf:"salary_cooldown" validate:"min=1m"`
	Timezone        string        `koanf:"timezone" validate:"required"`
}

// DashboardConfig protects the read-only dashboard API.
type DashboardConfig struct {
	APIKey string `koanf:"api_key"`
}

// DefaultConfig returns a Config populated with every optional default.
// Values found in the environment are decoded on top of it.
func DefaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "require",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 3600,
			ConnMaxIdleTime: 300,
		},
		Discord: DiscordConfig{
			AckDeadline:     3 * time.Second,
			RateLimitCount:  5,
			RateLimitWindow: 10 * time.Second,
		},
		Lock: LockConfig{
			Key:               "main_bot_lock",
			HeartbeatInterval: 30 * time.Second,
			StaleAfter:        60 * time.Second,
			WaitAttempts:      9,
			WaitInterval:      5 * time.Second,
		},
		KeepAlive: KeepAliveConfig{
			Enabled:      true,
			Interval:     6 * 24 * time.Hour,
			DatabasePing: true,
		},
		Economy: EconomyConfig{
			TransferTaxRate: 0.05,
			MaxTransfer:     100_000_000,
			SalaryCooldown:  24 * time.Hour,
			Timezone:        "America/Mexico_City",
		},
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it
// into a Config, validates it, applies defaults and returns the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Keys that are absent from the environment keep the defaults below.
	mainConfig := DefaultConfig()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := finalize(mainConfig); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// envKey turns NACIONMX_DISCORD__ECONOMY_TOKEN into discord.economy_token.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// splitList accepts both decoded lists and a single comma separated value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func finalize(cfg *Config) error {
	cfg.Discord.GuildIDs = splitList(cfg.Discord.GuildIDs)
	cfg.Server.CORSAllowedOrigins = splitList(cfg.Server.CORSAllowedOrigins)

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	} else {
		cfg.Observability.fillDefaults()
	}

	// Service name and environment always follow the primary config so
	// logs and traces are tagged consistently.
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Economy.Timezone); err != nil {
		return fmt.Errorf("invalid economy timezone %q: %w", cfg.Economy.Timezone, err)
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}
