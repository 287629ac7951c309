package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/event"
	"github.com/tuanvumaihuynh/shop-simulator/internal/http"
	"github.com/tuanvumaihuynh/shop-simulator/internal/inventory"
	"github.com/tuanvumaihuynh/shop-simulator/internal/journal"
	"github.com/tuanvumaihuynh/shop-simulator/internal/log"
	"github.com/tuanvumaihuynh/shop-simulator/internal/metric"
	"github.com/tuanvumaihuynh/shop-simulator/internal/relay"
	"github.com/tuanvumaihuynh/shop-simulator/internal/service"
	"github.com/tuanvumaihuynh/shop-simulator/internal/simulation"
	"github.com/tuanvumaihuynh/shop-simulator/internal/storage/mq"
	"github.com/tuanvumaihuynh/shop-simulator/internal/telemetry"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/cmdutil"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log        config.Log
		HTTP       config.HTTP
		Relay      config.Relay
		Kafka      config.Kafka
		Otel       config.Otel
		Simulation config.Simulation
		Journal    config.Journal
		Catalog    config.Catalog
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
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

	v, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}

	catalog, err := inventory.Load(cfg.Catalog, v)
	if err != nil {
		return fmt.Errorf("error loading catalog: %w", err)
	}

	journalWriter, err := journal.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("error opening journal: %w", err)
	}
	defer func() {
		if err := journalWriter.Close(); err != nil {
			logger.ErrorContext(ctx, "error closing journal", slog.Any("error", err))
		}
	}()

	metrics := metric.New(prometheus.DefaultRegisterer)
	metrics.CashBalance.Set(catalog.Balance().InexactFloat64())

	bus := event.NewBus(logger)
	bus.Subscribe(event.TopicCatalogChanged, event.LogCatalogChanges(logger))

	var relaySvc *relay.Service
	if cfg.Kafka.Enabled() {
		kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
		if err != nil {
			return fmt.Errorf("error creating kafka producer: %w", err)
		}
		defer kafkaProducer.Close()

		relaySvc = relay.NewService(cfg.Relay, logger, kafkaProducer, metrics)
		for _, topic := range event.MutationTopics {
			bus.Subscribe(topic, relaySvc.Enqueue)
		}
	} else {
		logger.InfoContext(ctx, "kafka addresses not configured, relay service disabled")
	}

	simulationSvc := simulation.NewService(cfg.Simulation, logger, catalog, journalWriter, bus, metrics)
	shopService := service.NewShopService(catalog, simulationSvc)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	// Runs must be accepted before the first trigger can arrive over HTTP.
	cleanupSimulation := simulationSvc.Run(ctx)
	logger.InfoContext(ctx, "simulation service started")

	var cleanupRelay relay.CleanupFunc
	if relaySvc != nil {
		cleanupRelay = relaySvc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")
	}

	wg.Go(func() {
		svc := http.New(cfg.HTTP, logger, metrics, prometheus.DefaultGatherer, shopService, bus)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	// The relay drains only after the simulator has stopped producing records.
	wg.Go(func() {
		<-interruptChan

		logger.InfoContext(ctx, "simulation service is shutting down")
		cleanupSimulation()
		logger.InfoContext(ctx, "simulation service is stopped")

		if cleanupRelay != nil {
			logger.InfoContext(ctx, "relay service is shutting down")
			cleanupRelay()
			logger.InfoContext(ctx, "relay service is stopped", slog.Int("pending", relaySvc.Pending()))
		}
	})

	wg.Wait()

	return nil
}
