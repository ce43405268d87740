package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Settlement    SettlementConfig    `mapstructure:"settlement"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// QueueConfig locates the job and dead-letter queues. Queues can be addressed
// by URL or by name; a name is resolved to a URL at startup and wins when
// both are set.
type QueueConfig struct {
	URL            string        `mapstructure:"url"`
	Name           string        `mapstructure:"name"`
	DeadLetterURL  string        `mapstructure:"dead_letter_url"`
	DeadLetterName string        `mapstructure:"dead_letter_name"`
	WaitTime       time.Duration `mapstructure:"wait_time"`
	BatchSize      int           `mapstructure:"batch_size"`
	EmptyPollDelay time.Duration `mapstructure:"empty_poll_delay"`
	ErrorPollDelay time.Duration `mapstructure:"error_poll_delay"`
	VisibilityBase time.Duration `mapstructure:"visibility_base"`
	VisibilityMax  time.Duration `mapstructure:"visibility_max"`
}

type SettlementConfig struct {
	MaxRetries               int                              `mapstructure:"max_retries"`
	BaseDelay                time.Duration                    `mapstructure:"base_delay"`
	MaxDelay                 time.Duration                    `mapstructure:"max_delay"`
	MinDelay                 time.Duration                    `mapstructure:"min_delay"`
	ProviderFailureThreshold uint32                           `mapstructure:"provider_failure_threshold"`
	ProviderCooldown         time.Duration                    `mapstructure:"provider_cooldown"`
	ProviderProfiles         map[string]ProviderProfileConfig `mapstructure:"provider_profiles"`
}

// ProviderProfileConfig shapes the retry backoff for one provider: how fast
// the delay grows and how much uniform jitter is applied.
type ProviderProfileConfig struct {
	Multiplier float64 `mapstructure:"multiplier"`
	Jitter     float64 `mapstructure:"jitter"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SETTLEMENTS")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/settlements")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Queue.URL == "" && c.Queue.Name == "" {
		errs = append(errs, fmt.Errorf("queue.url or queue.name is required"))
	}
	if c.Queue.DeadLetterURL == "" && c.Queue.DeadLetterName == "" {
		errs = append(errs, fmt.Errorf("queue.dead_letter_url or queue.dead_letter_name is required"))
	}
	if c.Queue.BatchSize <= 0 || c.Queue.BatchSize > 10 {
		errs = append(errs, fmt.Errorf("queue.batch_size must be between 1 and 10, got %d", c.Queue.BatchSize))
	}
	if c.Settlement.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("settlement.max_retries must be positive"))
	}
	if c.Settlement.BaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("settlement.base_delay must be positive"))
	}
	if c.Settlement.MaxDelay < c.Settlement.BaseDelay {
		errs = append(errs, fmt.Errorf("settlement.max_delay must be >= settlement.base_delay"))
	}
	if c.Settlement.ProviderCooldown <= 0 {
		errs = append(errs, fmt.Errorf("settlement.provider_cooldown must be positive"))
	}
	for name, p := range c.Settlement.ProviderProfiles {
		if p.Multiplier < 1 {
			errs = append(errs, fmt.Errorf("settlement.provider_profiles.%s.multiplier must be >= 1, got %g", name, p.Multiplier))
		}
		if p.Jitter < 0 || p.Jitter >= 1 {
			errs = append(errs, fmt.Errorf("settlement.provider_profiles.%s.jitter must be in [0, 1), got %g", name, p.Jitter))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "settlements")
	v.SetDefault("database.database", "settlements")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// AWS defaults (local emulator friendly)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint", "http://localhost:4566")
	v.SetDefault("aws.access_key_id", "test")
	v.SetDefault("aws.secret_access_key", "test")

	// Queue defaults
	v.SetDefault("queue.url", "http://localhost:4566/000000000000/settlement-jobs")
	v.SetDefault("queue.name", "")
	v.SetDefault("queue.dead_letter_url", "http://localhost:4566/000000000000/settlement-dlq")
	v.SetDefault("queue.dead_letter_name", "")
	v.SetDefault("queue.wait_time", "5s")
	v.SetDefault("queue.batch_size", 5)
	v.SetDefault("queue.empty_poll_delay", "500ms")
	v.SetDefault("queue.error_poll_delay", "1500ms")
	v.SetDefault("queue.visibility_base", "30s")
	v.SetDefault("queue.visibility_max", "120s")

	// Settlement defaults
	v.SetDefault("settlement.max_retries", 3)
	v.SetDefault("settlement.base_delay", "2s")
	v.SetDefault("settlement.max_delay", "60s")
	v.SetDefault("settlement.min_delay", "100ms")
	v.SetDefault("settlement.provider_failure_threshold", 3)
	v.SetDefault("settlement.provider_cooldown", "60s")
	v.SetDefault("settlement.provider_profiles", map[string]map[string]any{
		"razorpay_mock": {"multiplier": 1.6, "jitter": 0.10},
		"cashfree_mock": {"multiplier": 1.8, "jitter": 0.15},
		"mock_provider": {"multiplier": 2.0, "jitter": 0.20},
	})

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Instance ID
	v.SetDefault("instance_id", "settlements-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
