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
	inputData := flag.String("input_data", "", "raw daily CSV, overrides source settings")
	trainData := flag.String("train_data", "", "output directory for the prepared dataset")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	cfg.Log.Service = "prepare"
	if *inputData != "" {
		// a local file needs no remote backend
		cfg.Source.Type = "file"
		cfg.Source.Path = *inputData
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, cleanup, err := di.InitializePrepareJob(ctx, cfg)
	if err != nil {
		log.Fatalf("prepare initialization failed: %v", err)
	}
	defer cleanup()

	p := job.Preparer
	if *trainData != "" {
		p = p.WithOutputDir(*trainData)
	}

	v, runErr := p.Run(ctx)
	if err := job.Metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		job.Log.Warn("metrics push failed", logger.Error(err))
	}
	if runErr != nil {
		job.Log.Error("prepare failed", logger.Error(runErr))
		cleanup()
		os.Exit(1)
	}
	job.Log.Info("prepare done", logger.String("asset", v.Name), logger.String("version", v.Version), logger.String("uri", v.URI))
}
