// Package main provides the tickstream daemon entry point.
//
// Startup sequence: Config -> Logging -> Source -> Server -> Listen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tickstream/config"
	"tickstream/logging"
	"tickstream/server"
	"tickstream/worldsource"
)

func main() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: configuration initialization failed: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(config.Config.Logging.LogDir, logging.INFO); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	if err := logging.SetLevelFromString(config.Config.Logging.Level); err != nil {
		logging.Warn("invalid log level, keeping default", map[string]interface{}{"level": config.Config.Logging.Level})
	}

	visConfig, err := config.LoadVisualizationConfig(config.Config.Source.VisualizationFile)
	if err != nil {
		logging.Fatal("failed to load visualization config", map[string]interface{}{"error": err.Error()})
	}

	source := worldsource.NewMockSource(worldsource.MockSourceConfig{
		EntityCount:         config.Config.Source.EntityCount,
		TickInterval:        config.Config.Source.TickInterval,
		VisualizationConfig: visConfig,
		MaxHistoryTicks:     config.Config.History.MaxTicks,
		CheckpointInterval:  config.Config.History.CheckpointInterval,
		SubscriberCapacity:  config.Config.Source.SubscriberCapacity,
	})

	srv := server.New(source, "tickstream", config.GetVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Connect(ctx); err != nil {
		logging.Fatal("failed to connect world source", map[string]interface{}{"error": err.Error()})
	}
	defer srv.Disconnect()

	logging.Info("tickstream server starting", map[string]interface{}{
		"version": config.GetVersion(),
		"address": config.GetAddress(),
	})

	go func() {
		<-ctx.Done()
		logging.Info("shutdown signal received", nil)
		srv.Disconnect()
		os.Exit(0)
	}()

	if err := srv.Listen(config.GetAddress()); err != nil {
		logging.Fatal("server failed to start", map[string]interface{}{
			"address": config.GetAddress(),
			"error":   err.Error(),
		})
	}
}
