package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/metric"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
	"github.com/tuanvumaihuynh/shop-simulator/internal/storage/mq"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/outbox"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/ptr"
)

// HeaderRecordKind carries model.RecordKind on relayed messages.
const HeaderRecordKind = "record-kind"

// Service relays committed mutation records from the outbox queue to the broker.
type Service struct {
	cfg        config.Relay
	logger     *slog.Logger
	queue      *Queue
	mqProducer mq.Producer
	metrics    *metric.Metrics

	stopChan chan struct{}
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	mqProducer mq.Producer,
	metrics *metric.Metrics,
) *Service {
	return &Service{
		cfg:        cfg,
		logger:     logger.With(slog.String("service", "relay")),
		queue:      NewQueue(int(cfg.QueueSize)),
		mqProducer: mqProducer,
		metrics:    metrics,
		stopChan:   make(chan struct{}),
	}
}

// Enqueue is an event handler that stores a mutation record in the outbox.
func (s *Service) Enqueue(ctx context.Context, topic string, payload any) error {
	rec, ok := payload.(model.Record)
	if !ok {
		return fmt.Errorf("unexpected payload %T on topic %s", payload, topic)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", rec.Kind(), err)
	}

	headers := outbox.BuildHeaders(ctx)
	headers[HeaderRecordKind] = string(rec.Kind())

	if dropped := s.queue.Push(mq.ProduceMsg{
		Topic:        topic,
		Headers:      headers,
		Payload:      body,
		PartitionKey: ptr.New(rec.Key()),
	}); dropped > 0 {
		s.metrics.RelayedMsgs.WithLabelValues("dropped").Add(float64(dropped))
		s.logger.WarnContext(ctx, "outbox full, dropped oldest messages", slog.Int("count", dropped))
	}

	return nil
}

// Pending returns the number of messages waiting to be relayed.
func (s *Service) Pending() int {
	return s.queue.Len()
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-stoppedChan
		}
		cancel()
	}
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			// Last attempt so records committed just before shutdown are not lost.
			for s.queue.Len() > 0 && ctx.Err() == nil {
				if relayed := s.Flush(ctx); relayed == 0 {
					break
				}
			}
			return
		case <-time.After(s.cfg.Interval):
			s.Flush(ctx)
		}
	}
}

// Flush relays one batch and returns how many messages were delivered.
// Messages that fail are put back at the front of the queue.
func (s *Service) Flush(ctx context.Context) int {
	batch := s.queue.Take(int(s.cfg.BatchSize))
	if len(batch) == 0 {
		return 0
	}

	s.logger.DebugContext(ctx, "relaying outbox msgs", slog.Int("count", len(batch)))

	var (
		wg     sync.WaitGroup
		errs   = make([]error, len(batch))
		failed []mq.ProduceMsg
	)

	for i, msg := range batch {
		wg.Go(func() {
			msgCtx := outbox.ExtractContextFromHeaders(ctx, msg.Headers)
			if err := s.mqProducer.Produce(msgCtx, msg); err != nil {
				s.logger.ErrorContext(msgCtx,
					"error producing message",
					slog.String("topic", msg.Topic),
					slog.Any("error", err),
				)
				errs[i] = err
			}
		})
	}

	wg.Wait()

	// Keep batch order so a product's records stay ordered on retry.
	for i, err := range errs {
		if err != nil {
			failed = append(failed, batch[i])
		}
	}

	delivered := len(batch) - len(failed)
	s.metrics.RelayedMsgs.WithLabelValues("delivered").Add(float64(delivered))

	if len(failed) > 0 {
		s.metrics.RelayedMsgs.WithLabelValues("failed").Add(float64(len(failed)))
		if dropped := s.queue.Requeue(failed); dropped > 0 {
			s.metrics.RelayedMsgs.WithLabelValues("dropped").Add(float64(dropped))
		}
	}

	return delivered
}
