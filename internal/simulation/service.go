package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/shop-simulator/internal/apperr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/inventory"
	"github.com/tuanvumaihuynh/shop-simulator/internal/metric"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

var tracer = otel.Tracer("internal/simulation")

const (
	// maxIterations bounds the loop of a single run: 1 to maxIterations inclusive.
	maxIterations = 4

	minReplenishUnits  = 10
	replenishUnitsSpan = 10
)

// Journal persists committed mutation records.
type Journal interface {
	Append(ctx context.Context, rec model.Record) error
}

// Publisher announces committed mutation records to subscribers.
type Publisher interface {
	PublishMutation(ctx context.Context, rec model.Record)
}

type Option func(*Service)

// WithRandSource overrides the generator source chosen from the config seed.
func WithRandSource(src RandSource) Option {
	return func(s *Service) { s.rand = src }
}

// WithSleep overrides the delay between iterations.
func WithSleep(fn SleepFunc) Option {
	return func(s *Service) { s.sleep = fn }
}

type Service struct {
	cfg       config.Simulation
	logger    *slog.Logger
	catalog   *inventory.Catalog
	journal   Journal
	publisher Publisher
	metrics   *metric.Metrics

	rand   RandSource
	sleep  SleepFunc
	runSeq atomic.Uint64

	mu       sync.Mutex
	ctx      context.Context
	stopping bool
	wg       sync.WaitGroup
}

func NewService(
	cfg config.Simulation,
	logger *slog.Logger,
	catalog *inventory.Catalog,
	journal Journal,
	publisher Publisher,
	metrics *metric.Metrics,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:       cfg,
		logger:    logger.With(slog.String("service", "simulation")),
		catalog:   catalog,
		journal:   journal,
		publisher: publisher,
		metrics:   metrics,
		rand:      RandomSource(),
		sleep:     Sleep,
	}
	if cfg.Seed != 0 {
		s.rand = SeededSource(cfg.Seed)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CleanupFunc func()

// Run makes the service accept background runs. The returned cleanup stops
// accepting runs and waits for in-flight ones, cancelling them if they are
// still sleeping after the grace period.
func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.ctx = ctx
	s.stopping = false
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.stopping = true
		s.mu.Unlock()

		stoppedChan := make(chan struct{})
		go func() {
			defer close(stoppedChan)
			s.wg.Wait()
		}()

		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-stoppedChan
		}
		cancel()
	}
}

// StartCustomerRun starts RunCustomerSimulation in the background ("open for customers").
func (s *Service) StartCustomerRun() (model.Run, error) {
	return s.start(model.RunKindCustomers, s.runCustomers)
}

// StartReplenishmentRun starts RunReplenishmentSimulation in the background ("re-accounting").
func (s *Service) StartReplenishmentRun() (model.Run, error) {
	return s.start(model.RunKindReaccounting, s.runReplenishment)
}

// Wait blocks until every background run has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

type runFunc func(ctx context.Context, logger *slog.Logger, rng Rand) error

func (s *Service) start(kind model.RunKind, fn runFunc) (model.Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Run{}, fmt.Errorf("generate uuid v7: %w", err)
	}
	run := model.Run{ID: id, Kind: kind, StartedAt: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil || s.stopping {
		return model.Run{}, apperr.SimulatorStoppedErr
	}

	ctx := s.ctx
	rng := s.rand(s.runSeq.Add(1))
	logger := s.logger.With(
		slog.String("run_id", run.ID.String()),
		slog.String("kind", string(kind)),
	)

	s.metrics.RunsStarted.WithLabelValues(string(kind)).Inc()
	s.metrics.RunsInflight.Inc()

	s.wg.Go(func() {
		defer s.metrics.RunsInflight.Dec()

		ctx, span := tracer.Start(ctx, "simulation."+string(kind), trace.WithAttributes(
			attribute.String("run_id", run.ID.String()),
		))
		defer span.End()

		logger.InfoContext(ctx, "simulation run started")
		if err := fn(ctx, logger, rng); err != nil {
			span.SetStatus(codes.Error, err.Error())
			logger.WarnContext(ctx, "simulation run interrupted", slog.Any("error", err))
			return
		}
		logger.InfoContext(ctx, "simulation run finished")
	})

	return run, nil
}

// RunCustomerSimulation simulates one to four customer visits. Each visit
// buys a random quantity of a random product; a visit that would empty the
// product's stock buys nothing.
func (s *Service) RunCustomerSimulation(ctx context.Context) error {
	return s.runCustomers(ctx, s.logger, s.rand(s.runSeq.Add(1)))
}

// RunReplenishmentSimulation simulates one to four restock orders of 10 to 19
// units of a random product; an order the cash balance cannot cover is skipped.
func (s *Service) RunReplenishmentSimulation(ctx context.Context) error {
	return s.runReplenishment(ctx, s.logger, s.rand(s.runSeq.Add(1)))
}

func (s *Service) runCustomers(ctx context.Context, logger *slog.Logger, rng Rand) error {
	iterations := 1 + rng.IntN(maxIterations)
	for range iterations {
		s.purchase(ctx, logger, rng)

		if err := s.sleep(ctx, s.delay(rng)); err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
	}
	return nil
}

func (s *Service) runReplenishment(ctx context.Context, logger *slog.Logger, rng Rand) error {
	iterations := 1 + rng.IntN(maxIterations)
	for range iterations {
		s.replenish(ctx, logger, rng)

		if err := s.sleep(ctx, s.delay(rng)); err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
	}
	return nil
}

func (s *Service) purchase(ctx context.Context, logger *slog.Logger, rng Rand) {
	var rec model.CustomerAction
	err := s.catalog.WithTx(func(tx *inventory.Tx) error {
		if tx.Len() == 0 {
			return apperr.EmptyCatalogErr
		}

		i := rng.IntN(tx.Len())
		p, err := tx.Product(i)
		if err != nil {
			return err
		}
		if p.UnitsInStock < 1 {
			return apperr.OutOfStockErr
		}

		qty := 1 + rng.IntN(p.UnitsInStock)
		if rec, err = tx.Sell(i, qty); err != nil {
			return err
		}
		s.observeBalance(tx)
		return nil
	})
	if err != nil {
		s.reject(ctx, logger, model.RecordKindCustomer, err)
		return
	}

	s.commit(ctx, logger, rec)
}

func (s *Service) replenish(ctx context.Context, logger *slog.Logger, rng Rand) {
	var rec model.ReplenishmentAction
	err := s.catalog.WithTx(func(tx *inventory.Tx) error {
		if tx.Len() == 0 {
			return apperr.EmptyCatalogErr
		}

		i := rng.IntN(tx.Len())
		qty := minReplenishUnits + rng.IntN(replenishUnitsSpan)

		var err error
		if rec, err = tx.Restock(i, qty); err != nil {
			return err
		}
		s.observeBalance(tx)
		return nil
	})
	if err != nil {
		s.reject(ctx, logger, model.RecordKindReplenishment, err)
		return
	}

	s.commit(ctx, logger, rec)
}

func (s *Service) reject(ctx context.Context, logger *slog.Logger, kind model.RecordKind, err error) {
	if isRejection(err) {
		s.metrics.Mutations.WithLabelValues(string(kind), "rejected").Inc()
		logger.DebugContext(ctx, "mutation rejected", slog.String("record_kind", string(kind)), slog.Any("reason", err))
		return
	}

	s.metrics.Mutations.WithLabelValues(string(kind), "failed").Inc()
	logger.ErrorContext(ctx, "error applying mutation", slog.String("record_kind", string(kind)), slog.Any("error", err))
}

// commit reports a record the catalog has already applied. A journal
// failure is logged and does not stop the run.
func (s *Service) commit(ctx context.Context, logger *slog.Logger, rec model.Record) {
	s.metrics.Mutations.WithLabelValues(string(rec.Kind()), "committed").Inc()

	if err := s.journal.Append(ctx, rec); err != nil {
		s.metrics.JournalErrors.Inc()
		logger.ErrorContext(ctx, "error appending record to journal",
			slog.String("record_kind", string(rec.Kind())),
			slog.Uint64("sequence", rec.Seq()),
			slog.Any("error", err),
		)
	}

	s.publisher.PublishMutation(ctx, rec)
}

// observeBalance publishes the balance while the catalog lock is held, so
// concurrent commits update the gauge in commit order.
func (s *Service) observeBalance(tx *inventory.Tx) {
	s.metrics.CashBalance.Set(tx.Balance().InexactFloat64())
}

func (s *Service) delay(rng Rand) time.Duration {
	span := s.cfg.MaxDelay - s.cfg.MinDelay
	if span <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + time.Duration(rng.Int64N(int64(span)))
}

func isRejection(err error) bool {
	return errors.Is(err, apperr.InsufficientStockErr) ||
		errors.Is(err, apperr.InsufficientFundsErr) ||
		errors.Is(err, apperr.OutOfStockErr)
}
