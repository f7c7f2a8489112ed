package config

import (
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/samber/lo"
)

// Sink names accepted in DUALRATE_SINKS
const (
	SinkStdout = "stdout"
	SinkSerial = "serial"
	SinkRedis  = "redis"
)

// Status store names accepted in DUALRATE_STATUS_STORE
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// maxFastInterval keeps the slow interval, four times the fast one, within
// time.Duration
const maxFastInterval = time.Duration(math.MaxInt64 / 4)

var (
	availableSinks     = []string{SinkStdout, SinkSerial, SinkRedis}
	availableStores    = []string{StoreMemory, StoreRedis}
	availableLogLevels = []string{"debug", "info", "warn", "error"}
)

// Config holds all configuration for the worker pair binary
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Worker configuration
	Workers WorkerConfig

	// Output configuration
	Output OutputConfig

	// Redis configuration
	Redis RedisConfig

	// API configuration
	API APIConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// WorkerConfig holds worker pair configuration
type WorkerConfig struct {
	FastInterval        time.Duration `env:"DUALRATE_FAST_INTERVAL" envDefault:"100us"`
	MaxEmits            uint64        `env:"DUALRATE_MAX_EMITS" envDefault:"0"`
	PinCPUs             bool          `env:"DUALRATE_PIN_CPUS" envDefault:"false"`
	FastCPU             int           `env:"DUALRATE_FAST_CPU" envDefault:"0"`
	SlowCPU             int           `env:"DUALRATE_SLOW_CPU" envDefault:"1"`
	HealthCheckInterval time.Duration `env:"DUALRATE_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// OutputConfig holds output sink and status store configuration
type OutputConfig struct {
	Sinks        []string      `env:"DUALRATE_SINKS" envDefault:"stdout" envSeparator:","`
	SerialBuffer int           `env:"DUALRATE_SERIAL_BUFFER" envDefault:"1024"`
	StreamBuffer int           `env:"DUALRATE_STREAM_BUFFER" envDefault:"4096"`
	StreamMaxLen int64         `env:"DUALRATE_STREAM_MAXLEN" envDefault:"10000"`
	StatusStore  string        `env:"DUALRATE_STATUS_STORE" envDefault:"memory"`
	StatusTTL    time.Duration `env:"DUALRATE_STATUS_TTL" envDefault:"1h"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// APIConfig holds the optional status servers. A zero port disables a server.
type APIConfig struct {
	HTTPPort int `env:"DUALRATE_HTTP_PORT" envDefault:"0"`
	GRPCPort int `env:"DUALRATE_GRPC_PORT" envDefault:"0"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"5s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate worker config
	if c.Workers.FastInterval <= 0 {
		return fmt.Errorf("fast interval must be positive: %s", c.Workers.FastInterval)
	}
	if c.Workers.FastInterval > maxFastInterval {
		return fmt.Errorf("fast interval too large: %s (max %s)", c.Workers.FastInterval, maxFastInterval)
	}
	if c.Workers.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive: %s", c.Workers.HealthCheckInterval)
	}
	if c.Workers.PinCPUs && (c.Workers.FastCPU < 0 || c.Workers.SlowCPU < 0) {
		return fmt.Errorf("cpu ids must not be negative: fast=%d slow=%d", c.Workers.FastCPU, c.Workers.SlowCPU)
	}

	// Validate output config
	if len(c.Output.Sinks) == 0 {
		return fmt.Errorf("at least one output sink is required")
	}
	for _, sink := range c.Output.Sinks {
		if !lo.Contains(availableSinks, sink) {
			return fmt.Errorf("unsupported output sink: %s (must be stdout, serial, or redis)", sink)
		}
	}
	if dups := lo.FindDuplicates(c.Output.Sinks); len(dups) > 0 {
		return fmt.Errorf("duplicate output sink: %s", dups[0])
	}
	if c.HasSink(SinkStdout) && c.HasSink(SinkSerial) {
		return fmt.Errorf("stdout and serial sinks both write to standard output, pick one")
	}
	if c.Output.SerialBuffer < 1 {
		return fmt.Errorf("serial buffer must be at least 1")
	}
	if c.Output.StreamBuffer < 1 {
		return fmt.Errorf("stream buffer must be at least 1")
	}
	if !lo.Contains(availableStores, c.Output.StatusStore) {
		return fmt.Errorf("unsupported status store: %s (must be memory or redis)", c.Output.StatusStore)
	}

	// Validate Redis config
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate server ports
	if c.API.HTTPPort < 0 || c.API.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.API.HTTPPort)
	}
	if c.API.GRPCPort < 0 || c.API.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.API.GRPCPort)
	}

	// Validate log level
	if !lo.Contains(availableLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// HasSink reports whether the named sink is enabled
func (c *Config) HasSink(name string) bool {
	return lo.Contains(c.Output.Sinks, name)
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.HasSink(SinkRedis) || c.Output.StatusStore == StoreRedis
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.API.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.API.GRPCPort)
}
