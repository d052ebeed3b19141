package di

import (
	"context"
	"fmt"
	"time"

	drepo "StockSense/internal/domain/repository"
	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/handler/api"
	internalrepo "StockSense/internal/repository"
	"StockSense/internal/service/finnhub"
	"StockSense/internal/services/analytics"
	"StockSense/internal/usecase"
	pkgcache "StockSense/pkg/cache"
	pkgch "StockSense/pkg/clickhouse"
	"StockSense/pkg/config"
	pkgkafka "StockSense/pkg/kafka"
	applogger "StockSense/pkg/logger"
	"StockSense/pkg/metrics"
	"StockSense/pkg/queue"
	"StockSense/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

// ProvideRedisCache connects to Redis.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, 30*time.Second),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache returns the cache used by stores and clients, optionally fronted by memory.
func ProvideCache(cfg *config.Config, rc *pkgcache.RedisCache) pkgcache.Service {
	if cfg.Redis.Layered {
		return pkgcache.NewLayeredCache(rc,
			pkgcache.WithLayeredMemorySize(cfg.Redis.MemorySize),
			pkgcache.WithLayeredMemoryTTL(cfg.Redis.MemoryTTL),
			pkgcache.WithLayeredMemoryCleanup(cfg.Redis.MemoryCleanup),
		)
	}
	return rc
}

// ProvideWeightsStore creates the per-user weights store. It reads Redis
// directly so a PUT on one replica is used by the next run on any replica.
func ProvideWeightsStore(rc *pkgcache.RedisCache) *internalrepo.CacheWeightsStore {
	return internalrepo.NewCacheWeightsStore(rc)
}

// ProvideRunStore creates the run lock, latest result and scan store.
// It must bypass the memory layer so locks are shared between replicas.
func ProvideRunStore(rc *pkgcache.RedisCache) *internalrepo.CacheRunStore {
	return internalrepo.NewCacheRunStore(rc)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithAuth(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.HistorySchema(client.Database())); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideHistoryStore stores history in ClickHouse when available, in memory otherwise.
func ProvideHistoryStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) drepo.HistoryStore {
	if ch == nil {
		l.Warn("clickhouse disabled, history is kept in memory")
		return internalrepo.NewMemoryHistory(cfg.History.MemoryPerTicker)
	}
	store := internalrepo.NewClickHouseHistory(ch.DB(), ch.Database())
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers, cfg.Kafka.ClientID),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithBatching(cfg.Kafka.Compression, cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout, cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes run events to Kafka, or straight into the
// history store when Kafka is disabled.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, history drepo.HistoryStore, l *applogger.Logger) drepo.EventPublisher {
	if producer == nil {
		return internalrepo.NewHistoryPublisher(history)
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	if cfg.Log.Collect.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collect.Interval,
			CountThreshold: cfg.Log.Collect.Threshold,
			PublishTimeout: 5 * time.Second,
			Topic:          cfg.Log.Collect.Topic,
			Publisher:      pub,
		})
	}
	return pub
}

// ProvideKafkaConsumer creates the history consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.Consumer.GroupID, cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers, cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax, cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LoggingHook(l)))
	return consumer, nil
}

// ProvideAnalysisEventsHandler writes consumed run events to the history store.
func ProvideAnalysisEventsHandler(cfg *config.Config, history drepo.HistoryStore, m drepo.Metrics, l *applogger.Logger) *usecase.AnalysisEventsHandler {
	h := usecase.NewAnalysisEventsHandler(cfg.Kafka.Topic, history, m)
	h.SetLogger(l)
	return h
}

// ProvideCongressFeed creates the AInvest feed with optional Wikipedia portraits.
func ProvideCongressFeed(cfg *config.Config, cache pkgcache.Service, l *applogger.Logger) domsvc.CongressFeed {
	var photos analytics.PhotoResolver
	if cfg.Congress.Photos.Enabled {
		photos = analytics.NewWikipediaPhotoResolver(
			cfg.Congress.Photos.BaseURL,
			cfg.Congress.Photos.UserAgent,
			cfg.Congress.Photos.Timeout,
			cache,
			cfg.Congress.Photos.CacheTTL,
		)
	}
	if cfg.Congress.Token == "" {
		l.Warn("congress token not set, congress score will be 0")
	}
	feed := analytics.NewAInvestCongressFeed(analytics.CongressConfig{
		BaseURL:  cfg.Congress.BaseURL,
		Token:    cfg.Congress.Token,
		Timeout:  cfg.Congress.Timeout,
		CacheTTL: cfg.Congress.CacheTTL,
	}, cache, photos)
	feed.SetLogger(l)
	return feed
}

// ProvideSources assembles the four score sources. Without a Finnhub key the
// sentiment sources fall back to the placeholder generator.
func ProvideSources(cfg *config.Config, congress domsvc.CongressFeed, l *applogger.Logger) usecase.Sources {
	src := usecase.Sources{
		ML: analytics.NewHTTPMLScorer(analytics.MLConfig{
			BaseURL:       cfg.ML.BaseURL,
			Path:          cfg.ML.Path,
			Timeout:       cfg.ML.Timeout,
			RetryAttempts: cfg.ML.RetryAttempts,
			RetryBackoff:  cfg.ML.RetryBackoff,
		}),
		Congress: congress,
	}

	if cfg.Finnhub.APIKey == "" {
		l.Warn("finnhub api key not set, using placeholder sentiment")
		src.News = analytics.NewPlaceholderScorer(0)
		src.Social = analytics.NewPlaceholderScorer(0)
		return src
	}
	fh := finnhub.New(cfg.Finnhub.BaseURL, cfg.Finnhub.APIKey, cfg.Finnhub.Timeout)
	src.News = analytics.NewFinnhubNewsScorer(fh)
	src.Social = analytics.NewFinnhubSocialScorer(fh)
	return src
}

// ProvideAnalysisUseCase creates the analysis use case.
func ProvideAnalysisUseCase(
	cfg *config.Config,
	src usecase.Sources,
	weights drepo.WeightsStore,
	runs drepo.RunStore,
	m drepo.Metrics,
	pub drepo.EventPublisher,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	uc := usecase.NewAnalysisUseCase(src, weights, runs, m, usecase.AnalysisConfig{
		Timeout:          cfg.Analysis.Timeout,
		LockTTL:          cfg.Analysis.LockTTL,
		StepDelay:        cfg.Analysis.StepDelay,
		CongressPageSize: cfg.Analysis.CongressPageSize,
	})
	uc.SetLogger(l)
	uc.SetPublisher(pub)
	return uc
}

// ProvideRedisQueue creates the scan job queue.
func ProvideRedisQueue(cfg *config.Config, rc *pkgcache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:       cfg.Queue.Workers,
		RetryLimit:    cfg.Queue.RetryLimit,
		RetryDelay:    cfg.Queue.RetryDelay,
		MaxRetryDelay: cfg.Queue.MaxRetryDelay,
		JobTimeout:    cfg.Queue.JobTimeout,
	}, rc.Client(), queue.ParseMode(cfg.Queue.Mode), queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
}

// ProvideScanJob creates the queue job that executes scans.
func ProvideScanJob(cfg *config.Config, analysis *usecase.AnalysisUseCase, scans drepo.ScanStore, l *applogger.Logger) *usecase.ScanJob {
	job := usecase.NewScanJob(analysis, scans, cfg.Analysis.ScanTTL)
	job.SetLogger(l)
	return job
}

// ProvideScanUseCase registers the scan job and returns the use case enqueuing it.
func ProvideScanUseCase(cfg *config.Config, scans drepo.ScanStore, q *queue.RedisQueue, job *usecase.ScanJob) *usecase.ScanUseCase {
	q.RegisterJob(job)
	return usecase.NewScanUseCase(scans, q, cfg.Analysis.ScanTTL)
}

func ProvidePreferenceUseCase(weights drepo.WeightsStore) *usecase.PreferenceUseCase {
	return usecase.NewPreferenceUseCase(weights)
}

func ProvideHistoryUseCase(history drepo.HistoryStore) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(history)
}

// ProvideHTTPHandler creates the Echo handler for all API routes.
func ProvideHTTPHandler(
	cfg *config.Config,
	analysis *usecase.AnalysisUseCase,
	scans *usecase.ScanUseCase,
	prefs *usecase.PreferenceUseCase,
	history *usecase.HistoryUseCase,
	congress domsvc.CongressFeed,
	l *applogger.Logger,
) *api.AnalysisHandler {
	return api.NewAnalysisHandler(api.Services{
		Analysis:    analysis,
		Scans:       scans,
		Preferences: prefs,
		History:     history,
		Congress:    congress,
	},
		api.WithLogger(l),
		api.WithRateLimit(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond),
		api.WithStreamWriteTimeout(cfg.Analysis.StreamWriteTimeout),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.AnalysisHandler,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	events *usecase.AnalysisEventsHandler,
	pub drepo.EventPublisher,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
	cache pkgcache.Service,
) *server.App {
	app := server.New(cfg, l, handler, q)
	if consumer != nil {
		app.SetConsumer(consumer, events)
	}

	// closed in reverse order: publisher first, cache last
	if layered, ok := cache.(*pkgcache.LayeredCache); ok {
		app.AddCloser("cache", layered)
	} else {
		app.AddCloser("cache", rc)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	app.AddCloser("event publisher", pub)
	return app
}
