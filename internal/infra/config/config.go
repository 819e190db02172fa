package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the root configuration for the session service.
type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// RedisSettings configures the shared session store connection.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the lifecycle event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings governs session issuance and the cookie channel.
type SessionSettings struct {
	CookieName    string        `mapstructure:"cookie_name"`
	CookieDomain  string        `mapstructure:"cookie_domain"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	RememberMeTTL time.Duration `mapstructure:"remember_me_ttl"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TokenPrefix   string        `mapstructure:"token_prefix"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
}

// RateLimitSettings configures the login attempt gate.
type RateLimitSettings struct {
	Window           time.Duration `mapstructure:"window"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Load reads configuration from the environment with CLIENTDESK_ prefixed
// variables layered over defaults.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("CLIENTDESK")

	setDefaults(v)

	keys := []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.cookie_name",
		"session.cookie_domain",
		"session.cookie_secure",
		"session.default_ttl",
		"session.remember_me_ttl",
		"session.key_prefix",
		"session.token_prefix",
		"session.store_timeout",
		"rate_limit.window",
		"rate_limit.login_max_attempts",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "clientdesk-sessions")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "clientdesk")
	v.SetDefault("postgres.database", "clientdesk")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.topic_prefix", "clientdesk")

	v.SetDefault("session.cookie_name", "clientdesk_session")
	v.SetDefault("session.default_ttl", time.Hour)
	v.SetDefault("session.remember_me_ttl", 14*24*time.Hour)
	v.SetDefault("session.store_timeout", 3*time.Second)

	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.login_max_attempts", 10)

	v.SetDefault("telemetry.service_name", "clientdesk-sessions")
	v.SetDefault("telemetry.sampling_rate", 0.1)
}

func (c *AppConfig) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.Session.DefaultTTL < 0 || c.Session.RememberMeTTL < 0 {
		return fmt.Errorf("session TTLs must not be negative")
	}
	if c.Session.StoreTimeout <= 0 {
		return fmt.Errorf("session.store_timeout must be positive")
	}
	return nil
}
