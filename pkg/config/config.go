package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level   string `yaml:"level" default:"info"`
		Format  string `yaml:"format" default:"console"`
		Output  string `yaml:"output" default:"stdout"`
		Collect struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"stocksense.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collect"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"5s"`
		DisableCORS     bool          `yaml:"disable_cors"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	RateLimit struct {
		Burst     float64 `yaml:"burst" default:"10"`
		PerSecond float64 `yaml:"per_second" default:"1"`
	} `yaml:"rate_limit"`
	Analysis struct {
		Timeout            time.Duration `yaml:"timeout" default:"30s"`
		LockTTL            time.Duration `yaml:"lock_ttl" default:"40s"`
		StepDelay          time.Duration `yaml:"step_delay"`
		CongressPageSize   int           `yaml:"congress_page_size" default:"20"`
		ScanTTL            time.Duration `yaml:"scan_ttl" default:"1h"`
		StreamWriteTimeout time.Duration `yaml:"stream_write_timeout" default:"10s"`
	} `yaml:"analysis"`
	ML struct {
		BaseURL       string        `yaml:"base_url"`
		Path          string        `yaml:"path" default:"/recommendation"`
		Timeout       time.Duration `yaml:"timeout" default:"10s"`
		RetryAttempts int           `yaml:"retry_attempts" default:"3"`
		RetryBackoff  time.Duration `yaml:"retry_backoff" default:"200ms"`
	} `yaml:"ml"`
	Congress struct {
		BaseURL  string        `yaml:"base_url" default:"https://openapi.ainvest.com"`
		Token    string        `yaml:"token"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
		Photos   struct {
			Enabled   bool          `yaml:"enabled"`
			BaseURL   string        `yaml:"base_url" default:"https://en.wikipedia.org"`
			UserAgent string        `yaml:"user_agent" default:"StockSense/1.0"`
			Timeout   time.Duration `yaml:"timeout" default:"5s"`
			CacheTTL  time.Duration `yaml:"cache_ttl" default:"168h"`
		} `yaml:"photos"`
	} `yaml:"congress"`
	Finnhub struct {
		BaseURL string        `yaml:"base_url" default:"https://finnhub.io/api/v1"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"finnhub"`
	Redis struct {
		Host          string        `yaml:"host" default:"localhost"`
		Port          int           `yaml:"port" default:"6379"`
		Password      string        `yaml:"password"`
		DB            int           `yaml:"db"`
		PoolSize      int           `yaml:"pool_size" default:"10"`
		Prefix        string        `yaml:"prefix" default:"stocksense"`
		Layered       bool          `yaml:"layered"`
		MemorySize    int           `yaml:"memory_size" default:"1000"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"30s"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
	} `yaml:"redis"`
	Queue struct {
		Mode          string        `yaml:"mode" default:"both"`
		Workers       int           `yaml:"workers" default:"4"`
		RetryLimit    int           `yaml:"retry_limit" default:"2"`
		RetryDelay    time.Duration `yaml:"retry_delay" default:"10s"`
		MaxRetryDelay time.Duration `yaml:"max_retry_delay" default:"5m"`
		JobTimeout    time.Duration `yaml:"job_timeout" default:"2m"`
		KeyPrefix     string        `yaml:"key_prefix" default:"stocksense:queue"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		ClientID     string   `yaml:"client_id" default:"stocksense"`
		Topic        string   `yaml:"topic" default:"analysis.events"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"stocksense-history"`
			StartOffset string        `yaml:"start_offset" default:"earliest"`
			Workers     int           `yaml:"workers" default:"4"`
			BufferSize  int           `yaml:"buffer_size" default:"256"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic" default:"analysis.events.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stocksense"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	History struct {
		MemoryPerTicker int `yaml:"memory_per_ticker" default:"200"`
	} `yaml:"history"`
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("ML_BASE_URL"); v != "" {
		c.ML.BaseURL = v
	}
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := getenv("AINVEST_TOKEN"); v != "" {
		c.Congress.Token = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Host, c.Redis.Port = host, p
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ML.BaseURL == "" {
		return fmt.Errorf("ml.base_url is required")
	}
	if c.ML.RetryAttempts < 1 {
		return fmt.Errorf("ml.retry_attempts must be >= 1, got %d", c.ML.RetryAttempts)
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive")
	}
	if c.Analysis.LockTTL < c.Analysis.Timeout {
		return fmt.Errorf("analysis.lock_ttl (%s) must not be shorter than analysis.timeout (%s)", c.Analysis.LockTTL, c.Analysis.Timeout)
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required")
	}
	switch c.Queue.Mode {
	case "both", "producer", "consumer":
	default:
		return fmt.Errorf("queue.mode must be 'both', 'producer' or 'consumer', got '%s'", c.Queue.Mode)
	}
	if c.RateLimit.Burst < 0 || c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("rate_limit values cannot be negative")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required when clickhouse is enabled")
	}
	return nil
}

// RedisAddr returns host:port.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}
