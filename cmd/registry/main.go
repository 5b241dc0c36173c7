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
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults only when empty)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	cfg.Log.Service = "registry"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := di.InitializeRegistryApp(ctx, cfg)
	if err != nil {
		log.Fatalf("registry initialization failed: %v", err)
	}

	log.Printf("registry: backend=%s port=%d", cfg.Registry.Backend, cfg.Server.Port)

	runErr := app.Run(ctx)
	cleanup()
	if runErr != nil {
		log.Printf("registry error: %v", runErr)
		os.Exit(1)
	}
}
