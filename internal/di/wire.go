//go:build wireinject
// +build wireinject

package di

import (
	drepo "StockSense/internal/domain/repository"
	internalrepo "StockSense/internal/repository"
	"StockSense/pkg/config"
	"StockSense/pkg/metrics"
	"StockSense/pkg/server"

	"github.com/google/wire"
)

var storeSet = wire.NewSet(
	ProvideRedisCache,
	ProvideCache,
	ProvideWeightsStore,
	ProvideRunStore,
	wire.Bind(new(drepo.WeightsStore), new(*internalrepo.CacheWeightsStore)),
	wire.Bind(new(drepo.RunStore), new(*internalrepo.CacheRunStore)),
	wire.Bind(new(drepo.ScanStore), new(*internalrepo.CacheRunStore)),
)

var eventSet = wire.NewSet(
	ProvideClickHouseClient,
	ProvideHistoryStore,
	ProvideKafkaProducer,
	ProvideEventPublisher,
	ProvideKafkaConsumer,
	ProvideAnalysisEventsHandler,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(drepo.Metrics), new(*metrics.Recorder)),

		storeSet,
		eventSet,

		// Sources and use cases
		ProvideCongressFeed,
		ProvideSources,
		ProvideAnalysisUseCase,
		ProvideRedisQueue,
		ProvideScanJob,
		ProvideScanUseCase,
		ProvidePreferenceUseCase,
		ProvideHistoryUseCase,

		// Application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
