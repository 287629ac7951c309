package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/shop-simulator/internal/audit"
	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/log"
	"github.com/tuanvumaihuynh/shop-simulator/internal/storage/mq"
	"github.com/tuanvumaihuynh/shop-simulator/internal/telemetry"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running audit application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log   config.Log
		Kafka config.Kafka
		Otel  config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if !cfg.Kafka.Enabled() {
		return errors.New("KAFKA_ADDRESSES is required")
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}
	defer kafkaConsumer.Close()

	interruptChan := cmdutil.InterruptChan()

	svc := audit.New(logger, kafkaConsumer)
	cleanup, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running audit service: %w", err)
	}
	logger.InfoContext(ctx, "audit service started")

	<-interruptChan

	logger.InfoContext(ctx, "audit service is shutting down")
	cleanup()

	logger.InfoContext(ctx, "audit service is stopped")

	return nil
}
