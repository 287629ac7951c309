package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tuanvumaihuynh/shop-simulator/internal/event"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
	"github.com/tuanvumaihuynh/shop-simulator/internal/storage/mq"
)

// Service logs every mutation record relayed to the broker.
type Service struct {
	logger     *slog.Logger
	mqConsumer mq.Consumer

	handled atomic.Uint64
}

// New creates a new audit service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
) *Service {
	return &Service{
		logger:     logger.With(slog.String("service", "audit")),
		mqConsumer: mqConsumer,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := s.mqConsumer.RegisterHandler(event.TopicCustomerPurchased, s.handleCustomerPurchased); err != nil {
		return nil, fmt.Errorf("register customer purchased handler: %w", err)
	}

	if err := s.mqConsumer.RegisterHandler(event.TopicStockReplenished, s.handleStockReplenished); err != nil {
		return nil, fmt.Errorf("register stock replenished handler: %w", err)
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
		s.logger.InfoContext(ctx, "audit summary", slog.Uint64("handled", s.Handled()))
	}

	return cleanup, nil
}

// Handled returns the number of records logged so far.
func (s *Service) Handled() uint64 {
	return s.handled.Load()
}

func (s *Service) handleCustomerPurchased(ctx context.Context, topic string, _ map[string]string, payload []byte) error {
	var rec model.CustomerAction
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("unmarshal customer action: %w", err)
	}

	s.handled.Add(1)
	s.logger.InfoContext(ctx, "customer purchase",
		slog.String("topic", topic),
		slog.Uint64("sequence", rec.Sequence),
		slog.String("product", rec.ProductName),
		slog.Int("units_purchased", rec.UnitsPurchased),
		slog.Int("units_in_stock", rec.UnitsInStock),
		slog.String("amount_paid", rec.AmountPaid.String()),
		slog.String("cash_balance", rec.CashBalance.String()),
	)
	return nil
}

func (s *Service) handleStockReplenished(ctx context.Context, topic string, _ map[string]string, payload []byte) error {
	var rec model.ReplenishmentAction
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("unmarshal replenishment action: %w", err)
	}

	s.handled.Add(1)
	s.logger.InfoContext(ctx, "stock replenishment",
		slog.String("topic", topic),
		slog.Uint64("sequence", rec.Sequence),
		slog.String("product", rec.ProductName),
		slog.Int("units_replenished", rec.UnitsReplenished),
		slog.Int("units_in_stock", rec.UnitsInStock),
		slog.String("amount_paid", rec.AmountPaid.String()),
		slog.String("cash_balance", rec.CashBalance.String()),
	)
	return nil
}
