//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"BondPanel/pkg/config"
	"BondPanel/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideCache,
		ProvideLocker,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideStorage,
		ProvideWarehouse,
		ProvideReferenceSource,
		ProvideBenchmarkSource,
		ProvideSources,
		ProvidePublisher,

		// Use cases
		ProvideResultSink,
		ProvidePipelineConfig,
		ProvidePipeline,
		ProvideRunService,
		ProvideScheduler,

		ProvideApp,
	)
	return nil, nil, nil
}
