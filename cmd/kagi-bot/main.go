package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kagi-bot/internal/di"
	"kagi-bot/internal/infrastructure/env"
	"kagi-bot/internal/infrastructure/userinteraction"
	"kagi-bot/internal/infrastructure/webhook"
	"kagi-bot/internal/usecase/ask"
)

func main() {
	envService := env.NewEnvService()

	container, err := di.NewContainer(di.Config{
		Ask: ask.Config{
			APIKey:    envService.MustGet(env.KeyAPIKey),
			DebugMode: envService.GetBool(env.KeyDebugMode, false),
		},
	})
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hostMode := envService.GetWithDefault(env.KeyHostMode, "console")
	container.Logger.Info("Host started", "mode", hostMode)

	switch hostMode {
	case "console":
		host := userinteraction.NewConsoleHost(container.Commands, container.Logger, envService.Get(env.KeyConsoleUser))
		err = host.Run(ctx)
	case "http":
		cfg := webhook.DefaultConfig()
		cfg.Addr = envService.GetWithDefault(env.KeyHTTPAddr, cfg.Addr)
		err = webhook.NewServer(cfg, container.Commands, container.Logger).ListenAndServe(ctx)
	default:
		container.Logger.Error("Unknown host mode", "mode", hostMode)
		container.Close()
		os.Exit(2)
	}

	if err != nil {
		container.Logger.Error("Host stopped with error", "error", err)
		container.Close()
		os.Exit(1)
	}

	container.Logger.Info("Host stopped")
}
