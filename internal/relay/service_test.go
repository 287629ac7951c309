package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/event"
	"github.com/tuanvumaihuynh/shop-simulator/internal/metric"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
	"github.com/tuanvumaihuynh/shop-simulator/internal/relay"
	"github.com/tuanvumaihuynh/shop-simulator/internal/storage/mq"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/correlationid"
)

type fakeProducer struct {
	mu   sync.Mutex
	sent []mq.ProduceMsg
	fail func(mq.ProduceMsg) bool
}

func (p *fakeProducer) Produce(_ context.Context, msg mq.ProduceMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil && p.fail(msg) {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakeProducer) messages() []mq.ProduceMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mq.ProduceMsg(nil), p.sent...)
}

func newService(cfg config.Relay, producer mq.Producer) (*relay.Service, *metric.Metrics) {
	m := metric.New(prometheus.NewRegistry())
	return relay.NewService(cfg, slog.New(slog.DiscardHandler), producer, m), m
}

func purchase(seq uint64, name string) model.CustomerAction {
	return model.CustomerAction{
		Sequence:       seq,
		ProductName:    name,
		UnitsPurchased: 1,
		UnitsInStock:   9,
		AmountPaid:     decimal.NewFromInt(20),
		CashBalance:    decimal.NewFromInt(20),
	}
}

func TestEnqueue(t *testing.T) {
	ctx := correlationid.NewContext(context.Background(), "corr-1")

	t.Run("Should encode the record with headers and partition key", func(t *testing.T) {
		producer := &fakeProducer{}
		svc, _ := newService(config.Relay{BatchSize: 10, QueueSize: 10}, producer)

		require.NoError(t, svc.Enqueue(ctx, event.TopicCustomerPurchased, purchase(1, "Product A")))
		assert.Equal(t, 1, svc.Pending())

		assert.Equal(t, 1, svc.Flush(ctx))
		msgs := producer.messages()
		require.Len(t, msgs, 1)

		msg := msgs[0]
		assert.Equal(t, event.TopicCustomerPurchased, msg.Topic)
		assert.Equal(t, "Product A", *msg.PartitionKey)
		assert.Equal(t, "customer", msg.Headers[relay.HeaderRecordKind])
		assert.Equal(t, "corr-1", msg.Headers[correlationid.Header])

		var got map[string]any
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "Product A", got["product_name"])
		assert.Equal(t, "20", got["amount_paid"])
	})

	t.Run("Should reject payloads that are not records", func(t *testing.T) {
		svc, _ := newService(config.Relay{BatchSize: 10, QueueSize: 10}, &fakeProducer{})

		require.Error(t, svc.Enqueue(ctx, event.TopicCatalogChanged, event.CatalogChangedEvent{}))
		assert.Zero(t, svc.Pending())
	})

	t.Run("Should drop the oldest messages when the outbox is full", func(t *testing.T) {
		producer := &fakeProducer{}
		svc, m := newService(config.Relay{BatchSize: 10, QueueSize: 2}, producer)

		for i := range 3 {
			require.NoError(t, svc.Enqueue(ctx, event.TopicCustomerPurchased, purchase(uint64(i+1), "A")))
		}
		assert.Equal(t, 2, svc.Pending())
		assert.InDelta(t, 1, testutil.ToFloat64(m.RelayedMsgs.WithLabelValues("dropped")), 0)

		svc.Flush(ctx)
		var seqs []float64
		for _, msg := range producer.messages() {
			var got map[string]any
			require.NoError(t, json.Unmarshal(msg.Payload, &got))
			seqs = append(seqs, got["sequence"].(float64))
		}
		assert.ElementsMatch(t, []float64{2, 3}, seqs)
	})
}

func TestFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("Should respect the batch size", func(t *testing.T) {
		producer := &fakeProducer{}
		svc, _ := newService(config.Relay{BatchSize: 2, QueueSize: 10}, producer)
		for i := range 5 {
			require.NoError(t, svc.Enqueue(ctx, event.TopicCustomerPurchased, purchase(uint64(i+1), "A")))
		}

		assert.Equal(t, 2, svc.Flush(ctx))
		assert.Equal(t, 3, svc.Pending())
	})

	t.Run("Should requeue failed messages", func(t *testing.T) {
		producer := &fakeProducer{fail: func(msg mq.ProduceMsg) bool { return *msg.PartitionKey == "B" }}
		svc, m := newService(config.Relay{BatchSize: 10, QueueSize: 10}, producer)

		require.NoError(t, svc.Enqueue(ctx, event.TopicCustomerPurchased, purchase(1, "A")))
		require.NoError(t, svc.Enqueue(ctx, event.TopicCustomerPurchased, purchase(2, "B")))

		assert.Equal(t, 1, svc.Flush(ctx))
		assert.Equal(t, 1, svc.Pending())
		assert.InDelta(t, 1, testutil.ToFloat64(m.RelayedMsgs.WithLabelValues("failed")), 0)

		producer.mu.Lock()
		producer.fail = nil
		producer.mu.Unlock()

		assert.Equal(t, 1, svc.Flush(ctx))
		assert.Zero(t, svc.Pending())
		assert.Len(t, producer.messages(), 2)
	})

	t.Run("Should return zero on an empty outbox", func(t *testing.T) {
		svc, _ := newService(config.Relay{BatchSize: 10, QueueSize: 10}, &fakeProducer{})
		assert.Zero(t, svc.Flush(ctx))
	})
}

func TestRunDrainsOnCleanup(t *testing.T) {
	producer := &fakeProducer{}
	svc, _ := newService(config.Relay{BatchSize: 1, QueueSize: 10, Interval: time.Hour}, producer)

	cleanup := svc.Run(context.Background())
	for i := range 3 {
		require.NoError(t, svc.Enqueue(context.Background(), event.TopicStockReplenished, model.ReplenishmentAction{Sequence: uint64(i + 1), ProductName: "A"}))
	}
	cleanup()

	assert.Len(t, producer.messages(), 3)
	assert.Zero(t, svc.Pending())
}
