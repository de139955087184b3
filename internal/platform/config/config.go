package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

func (e Environment) Valid() bool {
	switch e {
	case Development, Staging, Production:
		return true
	}
	return false
}

func (e Environment) IsProduction() bool {
	return e == Production
}

// AllowsDevHeaders reports whether the trusted X-User-Id/X-Org-Id headers
// may be honoured. Only an explicit development environment qualifies.
func (e Environment) AllowsDevHeaders() bool {
	return e == Development
}

type Config struct {
	Environment Environment       `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Invitations InvitationsConfig `mapstructure:"invitations"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL                  string        `mapstructure:"url"`
	MaxConnections       int           `mapstructure:"max_connections"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type InvitationsConfig struct {
	TTLHours        int           `mapstructure:"ttl_hours"`
	BaseURL         string        `mapstructure:"base_url"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Retention       time.Duration `mapstructure:"retention"`
}

func (c InvitationsConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type RateLimitConfig struct {
	AuthPerMinute     int `mapstructure:"auth_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type AuditConfig struct {
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", string(Development))
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.url", "file:brokerhub.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.connect_timeout", time.Minute)
	v.SetDefault("database.retry_initial_interval", 500*time.Millisecond)
	v.SetDefault("database.retry_max_interval", 10*time.Second)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("invitations.ttl_hours", 72)
	v.SetDefault("invitations.base_url", "http://localhost:5173/accept-invitation")
	v.SetDefault("invitations.cleanup_interval", time.Hour)
	v.SetDefault("invitations.retention", 7*24*time.Hour)
	v.SetDefault("rate_limit.auth_per_minute", 30)
	v.SetDefault("rate_limit.api_write_per_minute", 100)
	v.SetDefault("audit.kafka_topic", "brokerhub.audit")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads the YAML file at path (optional when empty) and overlays
// environment variables, e.g. JWT_SECRET or DATABASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	c.Environment = Environment(strings.ToLower(string(c.Environment)))
	if !c.Environment.Valid() {
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
	if c.Invitations.TTLHours <= 0 {
		return fmt.Errorf("invitations.ttl_hours must be positive, got %d", c.Invitations.TTLHours)
	}
	// The secret may be absent outside production; the verifier then fails
	// every bearer request with an internal error instead of refusing to boot.
	if c.Environment.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	return nil
}
