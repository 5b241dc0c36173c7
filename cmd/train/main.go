package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StockML/internal/di"
	"StockML/pkg/config"
	"StockML/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults only when empty)")
	trainData := flag.String("train_data", "", "prepared CSV or directory holding stock-data.csv; latest data asset when empty")
	watch := flag.Bool("watch", false, "retrain whenever a new data version is announced on Kafka")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	cfg.Log.Service = "train"
	if *trainData != "" {
		cfg.Train.InputPath = *trainData
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, cleanup, err := di.InitializeTrainJob(ctx, cfg)
	if err != nil {
		log.Fatalf("train initialization failed: %v", err)
	}
	defer cleanup()

	if *watch {
		if err := runWatch(ctx, cfg, job); err != nil {
			job.Log.Error("watch failed", logger.Error(err))
			cleanup()
			os.Exit(1)
		}
		return
	}

	v, runErr := job.Trainer.Run(ctx)
	if err := job.Metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		job.Log.Warn("metrics push failed", logger.Error(err))
	}
	if runErr != nil {
		job.Log.Error("train failed", logger.Error(runErr))
		cleanup()
		os.Exit(1)
	}
	job.Log.Info("train done", logger.String("model", v.Name), logger.String("version", v.Version), logger.String("uri", v.URI))
}

func runWatch(ctx context.Context, cfg *config.Config, job *di.TrainJob) error {
	consumer, err := di.ProvideKafkaConsumer(cfg, job.Log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	job.Log.Info("watching for new data versions",
		logger.String("topic", cfg.Kafka.Topic),
		logger.String("asset", cfg.Train.DataAsset),
	)
	return consumer.Run(ctx, job.Events.Handle)
}
