package event

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

const (
	TopicCatalogChanged    = "catalog.changed"
	TopicCustomerPurchased = "inventory.customer_purchased"
	TopicStockReplenished  = "inventory.stock_replenished"
)

// MutationTopics are the topics carrying committed mutation records.
var MutationTopics = []string{TopicCustomerPurchased, TopicStockReplenished}

// CatalogChangedEvent is published after every committed mutation, whatever its kind.
type CatalogChangedEvent struct {
	Sequence     uint64           `json:"sequence"`
	Kind         model.RecordKind `json:"kind"`
	ProductName  string           `json:"product_name"`
	UnitsInStock int              `json:"units_in_stock"`
	CashBalance  decimal.Decimal  `json:"cash_balance"`
}

// TopicFor returns the mutation topic a record is published on.
func TopicFor(rec model.Record) string {
	if rec.Kind() == model.RecordKindReplenishment {
		return TopicStockReplenished
	}
	return TopicCustomerPurchased
}

// NewCatalogChangedEvent summarises a record for catalog subscribers.
func NewCatalogChangedEvent(rec model.Record) CatalogChangedEvent {
	ev := CatalogChangedEvent{
		Sequence:    rec.Seq(),
		Kind:        rec.Kind(),
		ProductName: rec.Key(),
	}

	switch r := rec.(type) {
	case model.CustomerAction:
		ev.UnitsInStock = r.UnitsInStock
		ev.CashBalance = r.CashBalance
	case model.ReplenishmentAction:
		ev.UnitsInStock = r.UnitsInStock
		ev.CashBalance = r.CashBalance
	}

	return ev
}

// PublishMutation announces a committed record on its mutation topic and on
// TopicCatalogChanged.
func (b *Bus) PublishMutation(ctx context.Context, rec model.Record) {
	b.Publish(ctx, TopicFor(rec), rec)
	b.Publish(ctx, TopicCatalogChanged, NewCatalogChangedEvent(rec))
}

// LogCatalogChanges returns a handler that logs every catalog change.
func LogCatalogChanges(logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, topic string, payload any) error {
		logger.InfoContext(ctx, "catalog changed", slog.String("topic", topic), slog.Any("event", payload))
		return nil
	}
}
