package kafka

import (
	"errors"
	"time"

	applogger "StockSense/pkg/logger"
)

var errNoBrokers = errors.New("kafka: at least one broker is required")

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

type ProducerConfig struct {
	Brokers  []string
	ClientID string

	RequiredAcks int // -1 waits for all in-sync replicas
	MaxAttempts  int
	WriteTimeout time.Duration

	Compression  string // gzip, snappy, lz4, zstd or none
	BatchSize    int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		ClientID:     "stocksense",
		RequiredAcks: -1,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Compression:  "snappy",
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// WithBrokers sets the bootstrap brokers and the client id reported to them.
func WithBrokers(brokers []string, clientID string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
		if clientID != "" {
			c.ClientID = clientID
		}
	}
}

// WithDelivery sets acks, writer retries and the per-write deadline.
// Non-positive attempts and timeout keep the defaults.
func WithDelivery(acks, maxAttempts int, writeTimeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
		if writeTimeout > 0 {
			c.WriteTimeout = writeTimeout
		}
	}
}

// WithBatching sets compression, batch size and flush interval. Async writes
// return before the broker acknowledges.
func WithBatching(compression string, size int, timeout time.Duration, async bool) ProducerOption {
	return func(c *ProducerConfig) {
		if compression != "" {
			c.Compression = compression
		}
		if size > 0 {
			c.BatchSize = size
		}
		if timeout > 0 {
			c.BatchTimeout = timeout
		}
		c.Async = async
	}
}

// WithHashByKey routes messages by key so one ticker stays on one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	StartOffset string // earliest or latest, for a group without commits
	MinBytes    int
	MaxBytes    int

	WorkerCount int
	BufferSize  int

	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
	DLQTopic   string

	Logger *applogger.Logger
}

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:     "stocksense",
		StartOffset: "earliest",
		MinBytes:    1,
		MaxBytes:    10e6,
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
	}
}

// WithConsumerGroup sets the brokers, group id and start offset.
func WithConsumerGroup(brokers []string, groupID, startOffset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
		if groupID != "" {
			c.GroupID = groupID
		}
		if startOffset != "" {
			c.StartOffset = startOffset
		}
	}
}

// WithConsumerWorkers sets the handler pool size and the fetch buffer in front of it.
func WithConsumerWorkers(count, buffer int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
		if buffer > 0 {
			c.BufferSize = buffer
		}
	}
}

// WithConsumerRetry sets handler attempts and the backoff range between them.
// Messages still failing go to dlqTopic when it is set.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration, dlqTopic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		if backoffMin > 0 {
			c.BackoffMin = backoffMin
		}
		if backoffMax > 0 {
			c.BackoffMax = backoffMax
		}
		c.DLQTopic = dlqTopic
	}
}

func WithConsumerLogger(l *applogger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) { c.Logger = l }
}
