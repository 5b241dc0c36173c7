package di

import (
	"context"
	"fmt"
	"time"

	"StockML/internal/domain/repository"
	domsvc "StockML/internal/domain/service"
	"StockML/internal/handler/api"
	internalrepo "StockML/internal/repository"
	"StockML/internal/services/features"
	"StockML/internal/services/training"
	"StockML/internal/usecase"
	pkgcache "StockML/pkg/cache"
	pkgch "StockML/pkg/clickhouse"
	"StockML/pkg/config"
	xhttp "StockML/pkg/http"
	pkgkafka "StockML/pkg/kafka"
	"StockML/pkg/logger"
	"StockML/pkg/metrics"
	"StockML/pkg/server"
)

// Backends holds the infrastructure clients a command connected to. A nil
// field means the configuration does not need that backend.
type Backends struct {
	ClickHouse *pkgch.Client
	Redis      *pkgcache.RedisCache
}

// PrepareJob is everything cmd/prepare needs.
type PrepareJob struct {
	Preparer *usecase.DataPreparer
	Metrics  *metrics.Recorder
	Log      *logger.Logger
}

// TrainJob is everything cmd/train needs.
type TrainJob struct {
	Trainer *usecase.ModelTrainer
	Events  *usecase.AssetEventsHandler
	Metrics *metrics.Recorder
	Log     *logger.Logger
}

// ProvideLogger creates the structured logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRecorder creates a Prometheus metrics recorder.
func ProvideRecorder() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetrics exposes the recorder through the domain interface.
func ProvideMetrics(r *metrics.Recorder) repository.Metrics {
	return r
}

// ProvideBackends connects the ClickHouse and Redis clients the configured
// source and registry backends need.
func ProvideBackends(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backends, func(), error) {
	b := &Backends{}
	cleanup := func() {
		if b.Redis != nil {
			if err := b.Redis.Close(); err != nil {
				log.Warn("redis close", logger.Error(err))
			}
		}
		if b.ClickHouse != nil {
			if err := b.ClickHouse.Close(); err != nil {
				log.Warn("clickhouse close", logger.Error(err))
			}
		}
	}

	if cfg.Registry.Backend == "clickhouse" || cfg.Source.Type == "clickhouse" {
		ch, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		b.ClickHouse = ch
		log.Info("clickhouse connected",
			logger.String("host", cfg.ClickHouse.Host),
			logger.String("database", cfg.ClickHouse.Database),
		)
	}

	if cfg.Registry.Backend == "redis" {
		rc, err := pkgcache.NewRedisCache(ctx,
			pkgcache.WithRedisHostPort(cfg.Redis.Host, cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis client: %w", err)
		}
		b.Redis = rc
		log.Info("redis connected", logger.String("host", cfg.Redis.Host), logger.Int("db", cfg.Redis.DB))
	}

	return b, cleanup, nil
}

// ProvideEventPublisher creates the Kafka publisher for registry events.
// It returns nil when Kafka is disabled.
func ProvideEventPublisher(cfg *config.Config, rec *metrics.Recorder, log *logger.Logger) (repository.EventPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithProducerRegisterer(rec.Registry()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			log.Warn("kafka producer close", logger.Error(err))
		}
	}
	return pub, cleanup, nil
}

// ProvideArtifactStore selects the registry backend and, when a publisher
// is configured, announces every registration.
func ProvideArtifactStore(
	ctx context.Context,
	cfg *config.Config,
	b *Backends,
	pub repository.EventPublisher,
	m repository.Metrics,
	log *logger.Logger,
) (repository.ArtifactStore, error) {
	var store repository.ArtifactStore
	switch cfg.Registry.Backend {
	case "clickhouse":
		s := internalrepo.NewCHArtifactStore(b.ClickHouse, cfg.Registry.Table)
		s.SetLogger(log)
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := b.ClickHouse.InitSchema(schemaCtx, s.Schema()); err != nil {
			return nil, fmt.Errorf("clickhouse registry schema: %w", err)
		}
		store = s
	case "redis":
		s := internalrepo.NewRedisArtifactStore(b.Redis, cfg.Registry.LockTTL)
		s.SetLogger(log)
		store = s
	default:
		s, err := internalrepo.NewLocalArtifactStore(cfg.Registry.Root)
		if err != nil {
			return nil, fmt.Errorf("local registry: %w", err)
		}
		s.SetLogger(log)
		store = s
	}

	if pub != nil {
		store = internalrepo.NewNotifyingStore(store, pub, m, log)
	}
	log.Info("artifact store ready", logger.String("backend", cfg.Registry.Backend))
	return store, nil
}

// ProvideDataSource selects where raw daily bars come from.
func ProvideDataSource(ctx context.Context, cfg *config.Config, b *Backends) (repository.DataSource, error) {
	switch cfg.Source.Type {
	case "http":
		if cfg.Source.URL == "" {
			return nil, fmt.Errorf("source.url is required for the http source")
		}
		return internalrepo.NewHTTPSource(cfg.Source.URL, cfg.Source.Timeout, cfg.Source.Backoff, cfg.Source.Attempts), nil
	case "clickhouse":
		src := internalrepo.NewCHBarSource(b.ClickHouse, cfg.Source.Table, cfg.Source.Symbol)
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := b.ClickHouse.InitSchema(schemaCtx, src.Schema()); err != nil {
			return nil, fmt.Errorf("clickhouse bars schema: %w", err)
		}
		return src, nil
	default:
		return internalrepo.NewFileSource(cfg.Source.Path), nil
	}
}

// ProvideExtractor creates the feature extractor.
func ProvideExtractor(cfg *config.Config) *features.Extractor {
	return features.NewExtractor(features.WithRolling7Window(cfg.Features.Rolling7Window))
}

// ProvideTrainer selects the in-process booster or the remote training
// service.
func ProvideTrainer(cfg *config.Config, log *logger.Logger) domsvc.Trainer {
	p := cfg.Trainer.Params
	params := training.Params{
		Rounds:          p.Rounds,
		LearningRate:    p.LearningRate,
		NumLeaves:       p.NumLeaves,
		MaxDepth:        p.MaxDepth,
		MinChildSamples: p.MinChildSamples,
		MinChildWeight:  p.MinChildWeight,
		RegAlpha:        p.RegAlpha,
		RegLambda:       p.RegLambda,
	}
	if cfg.Trainer.Backend == "http" {
		return training.NewHTTPTrainer(cfg.Trainer.ServiceURL, cfg.Trainer.Timeout, cfg.Trainer.Attempts, params)
	}
	t := training.NewNativeTrainer(params)
	t.SetLogger(log)
	return t
}

// ProvideDataPreparer creates the preparation use case.
func ProvideDataPreparer(
	cfg *config.Config,
	source repository.DataSource,
	store repository.ArtifactStore,
	extractor *features.Extractor,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.DataPreparer {
	return usecase.NewDataPreparer(source, store, extractor, m, log, usecase.PrepareConfig{
		OutputDir:   cfg.Prepare.OutputDir,
		FileName:    cfg.Prepare.FileName,
		DropColumns: cfg.Prepare.DropColumns,
		AssetName:   cfg.Prepare.AssetName,
		Description: cfg.Prepare.Description,
		Tags:        cfg.Prepare.Tags,
	})
}

// ProvideModelTrainer creates the training use case.
func ProvideModelTrainer(
	cfg *config.Config,
	store repository.ArtifactStore,
	trainer domsvc.Trainer,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.ModelTrainer {
	return usecase.NewModelTrainer(store, trainer, m, log, usecase.TrainConfig{
		InputPath:     cfg.Train.InputPath,
		DataAsset:     cfg.Train.DataAsset,
		DataFile:      cfg.Prepare.FileName,
		WorkDir:       cfg.Train.WorkDir,
		ModelFile:     cfg.Train.ModelFile,
		AssetName:     cfg.Train.AssetName,
		Description:   cfg.Train.Description,
		Target:        cfg.Train.Target,
		Exclude:       cfg.Train.Exclude,
		VersionLayout: cfg.Train.VersionLayout,
	})
}

// ProvideAssetEventsHandler retrains on new data versions.
func ProvideAssetEventsHandler(
	cfg *config.Config,
	trainer *usecase.ModelTrainer,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.AssetEventsHandler {
	return usecase.NewAssetEventsHandler(cfg.Train.DataAsset, trainer, m, log)
}

// ProvideKafkaConsumer creates the consumer for the registry topic.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: kafka.brokers is empty")
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerTopic(cfg.Kafka.Topic),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerRetry(cfg.Kafka.MaxAttempts, 200*time.Millisecond, 10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAssetsUseCase creates the registry read use case.
func ProvideAssetsUseCase(store repository.ArtifactStore) *usecase.AssetsUseCase {
	return usecase.NewAssetsUseCase(store)
}

// ProvideRegistryHandler creates the registry HTTP handler with a health
// check per connected backend.
func ProvideRegistryHandler(log *logger.Logger, assets *usecase.AssetsUseCase, b *Backends) *api.RegistryEchoHandler {
	h := api.NewRegistryEchoHandler(log, assets)
	if b.ClickHouse != nil {
		h.AddHealthCheck("clickhouse", b.ClickHouse)
	}
	if b.Redis != nil {
		h.AddHealthCheck("redis", b.Redis)
	}
	return h
}

// ProvideHTTPServer creates the Echo server exposing the recorder's registry.
func ProvideHTTPServer(cfg *config.Config, h *api.RegistryEchoHandler, rec *metrics.Recorder, log *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRegistry(rec.Registry()),
		xhttp.WithRateLimit(cfg.Server.RateBurst, cfg.Server.RatePerSec),
	)
}

// ProvideApp creates the application server.
func ProvideApp(srv *xhttp.Server, log *logger.Logger) *server.App {
	return server.New(srv, log)
}
