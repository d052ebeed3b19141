package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"StockSense/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// QueueMode selects which side of the queue a process runs.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
	ModeConsumerOnly
)

// ParseMode maps "producer", "consumer" or anything else (both) to a QueueMode.
func ParseMode(s string) QueueMode {
	switch s {
	case "producer":
		return ModeProducerOnly
	case "consumer":
		return ModeConsumerOnly
	default:
		return ModeProducerConsumer
	}
}

func (m QueueMode) String() string {
	switch m {
	case ModeProducerOnly:
		return "producer"
	case ModeConsumerOnly:
		return "consumer"
	default:
		return "both"
	}
}

func (m QueueMode) consumes() bool { return m != ModeProducerOnly }

const (
	popTimeout    = time.Second
	retryInterval = 2 * time.Second
)

// RedisQueue is a list-backed job queue. Failed messages wait in a sorted set
// scored by their due time and are parked in a dead letter list once the
// retry limit is reached.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	mode      QueueMode
	keyPrefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the prefix of the queue, retry and dead letter keys.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// NewRedisQueue creates a queue on an existing Redis client.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, mode QueueMode, opts ...RedisQueueOption) *RedisQueue {
	cfg := QueueConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 5 * time.Minute
	}
	if lgr == nil {
		lgr = logger.Nop()
	}

	rq := &RedisQueue{
		logger:    lgr,
		config:    &cfg,
		client:    client,
		mode:      mode,
		keyPrefix: "stocksense:queue",
		jobs:      make(map[string]Job),
	}
	for _, opt := range opts {
		opt(rq)
	}

	registerQueueMetrics()
	return rq
}

// RegisterJob binds a job to its message type. Producer-only queues do not run jobs.
func (r *RedisQueue) RegisterJob(job Job) {
	if !r.mode.consumes() {
		r.logger.Debug("job not registered in producer mode", logger.String("job", job.Name()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start pings Redis and, unless producer-only, starts the workers and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true

	if r.mode.consumes() {
		for i := 0; i < r.config.Workers; i++ {
			r.wg.Add(1)
			go r.worker(i)
		}
		r.wg.Add(1)
		go r.retryLoop()
	}

	r.logger.Info("redis queue started",
		logger.String("mode", r.mode.String()),
		logger.Int("workers", r.config.Workers),
		logger.String("prefix", r.keyPrefix))
	return nil
}

// Stop cancels in-flight jobs and waits for the workers until ctx expires.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for queue workers: %w", ctx.Err())
	}
}

// Enqueue pushes a message for msgType.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return errors.New("queue not running")
	}
	if r.mode.consumes() && !known {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	msg, err := newMessage(uuid.NewString(), msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	queueMessages.WithLabelValues(msgType, "enqueued").Inc()
	return nil
}

// PublishMessage implements QueueService.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.Enqueue(ctx, msgType, payload)
}

// Depth reports the number of pending, retrying and dead messages.
func (r *RedisQueue) Depth(ctx context.Context) (pending, retrying, dead int64, err error) {
	pipe := r.client.Pipeline()
	p := pipe.LLen(ctx, r.queueKey())
	rt := pipe.ZCard(ctx, r.retryKey())
	d := pipe.LLen(ctx, r.deadLetterKey())
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	return p.Val(), rt.Val(), d.Val(), nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, popTimeout, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || r.ctx.Err() != nil {
				continue
			}
			r.logger.Error("brpop failed", logger.Error(err))
			r.sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("drop undecodable message", logger.Error(err))
			queueMessages.WithLabelValues("unknown", "dropped").Inc()
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.deadLetter(msg, nil, errors.New("no job registered"))
		return
	}

	ctx := r.ctx
	if r.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	queueDuration.WithLabelValues(msg.Type).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		queueMessages.WithLabelValues(msg.Type, "done").Inc()
	case r.ctx.Err() != nil:
		// shutting down: put it back untouched for the next process
		r.requeue(msg)
	default:
		r.fail(msg, job, err)
	}
}

func (r *RedisQueue) fail(msg Message, job Job, err error) {
	msg.Attempts++
	msg.LastError = err.Error()

	if msg.Attempts > r.config.RetryLimit {
		r.logger.Error("job failed permanently",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err))
		r.deadLetter(msg, job, err)
		return
	}

	due := time.Now().Add(r.config.backoff(msg.Attempts))
	r.logger.Warn("job failed, retry scheduled",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", due.Format(time.RFC3339)),
		logger.Error(err))

	data, merr := json.Marshal(msg)
	if merr != nil {
		r.logger.Error("marshal retry", logger.Error(merr))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if zerr := r.client.ZAdd(ctx, r.retryKey(), redis.Z{Score: float64(due.Unix()), Member: data}).Err(); zerr != nil {
		r.logger.Error("schedule retry", logger.Error(zerr))
		return
	}
	queueMessages.WithLabelValues(msg.Type, "retried").Inc()
}

func (r *RedisQueue) deadLetter(msg Message, job Job, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if data, merr := json.Marshal(msg); merr == nil {
		if lerr := r.client.LPush(ctx, r.deadLetterKey(), data).Err(); lerr != nil {
			r.logger.Error("lpush dead letter", logger.Error(lerr))
		}
	}
	queueMessages.WithLabelValues(msg.Type, "dead").Inc()

	if h, ok := job.(DeadLetterHandler); ok {
		h.OnDeadLetter(ctx, msg.Payload, err)
	}
}

func (r *RedisQueue) requeue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.RPush(ctx, r.queueKey(), data).Err(); err != nil {
		r.logger.Error("requeue on shutdown", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			n, err := r.moveDue(r.ctx, time.Now())
			if err != nil && r.ctx.Err() == nil {
				r.logger.Error("move due retries", logger.Error(err))
			}
			if n > 0 {
				r.logger.Debug("retries moved to queue", logger.Int("count", n))
			}
		}
	}
}

// moveDue pushes retries due by now back onto the queue. ZREM decides which
// replica owns a member, so a retry is never pushed twice.
func (r *RedisQueue) moveDue(ctx context.Context, now time.Time) (int, error) {
	due, err := r.client.ZRangeByScore(ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, member := range due {
		removed, err := r.client.ZRem(ctx, r.retryKey(), member).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := r.client.LPush(ctx, r.queueKey(), member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (r *RedisQueue) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-r.ctx.Done():
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }

var (
	queueMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stocksense_queue_messages_total", Help: "Queue messages by type and outcome"},
		[]string{"type", "result"},
	)
	queueDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "stocksense_queue_job_seconds", Help: "Job handling time", Buckets: prometheus.DefBuckets},
		[]string{"type"},
	)
	queueMetricsOnce sync.Once
)

func registerQueueMetrics() {
	queueMetricsOnce.Do(func() {
		prometheus.MustRegister(queueMessages, queueDuration)
	})
}
