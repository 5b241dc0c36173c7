//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"StockML/pkg/config"
	"StockML/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideRecorder,
	ProvideMetrics,
	ProvideBackends,
	ProvideEventPublisher,
	ProvideArtifactStore,
)

// InitializePrepareJob wires the preparation step.
func InitializePrepareJob(ctx context.Context, cfg *config.Config) (*PrepareJob, func(), error) {
	wire.Build(
		infraSet,
		ProvideDataSource,
		ProvideExtractor,
		ProvideDataPreparer,
		wire.Struct(new(PrepareJob), "*"),
	)
	return nil, nil, nil
}

// InitializeTrainJob wires the training step.
func InitializeTrainJob(ctx context.Context, cfg *config.Config) (*TrainJob, func(), error) {
	wire.Build(
		infraSet,
		ProvideTrainer,
		ProvideModelTrainer,
		ProvideAssetEventsHandler,
		wire.Struct(new(TrainJob), "*"),
	)
	return nil, nil, nil
}

// InitializeRegistryApp wires the registry HTTP server.
func InitializeRegistryApp(ctx context.Context, cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		ProvideAssetsUseCase,
		ProvideRegistryHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
