package journal_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/journal"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

func openJournal(t *testing.T) (*journal.Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.xml")
	w, err := journal.Open(config.Journal{Path: path, Sync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func customerAction(seq uint64) model.CustomerAction {
	return model.CustomerAction{
		Sequence:       seq,
		ProductName:    "Product A",
		UnitsPurchased: 10,
		UnitsInStock:   40,
		AmountPaid:     decimal.NewFromInt(200),
		CashBalance:    decimal.RequireFromString("200.50"),
	}
}

func TestEncode(t *testing.T) {
	buf, err := journal.Encode(customerAction(1))
	require.NoError(t, err)

	want := strings.Join([]string{
		"<CustomerAction>",
		"  <Sequence>1</Sequence>",
		"  <ProductName>Product A</ProductName>",
		"  <UnitsPurchased>10</UnitsPurchased>",
		"  <UnitsInStock>40</UnitsInStock>",
		"  <AmountPaid>200</AmountPaid>",
		"  <CashBalance>200.5</CashBalance>",
		"</CustomerAction>",
	}, "\n") + "\n"
	assert.Equal(t, want, string(buf))
}

func TestEncodeReplenishment(t *testing.T) {
	buf, err := journal.Encode(model.ReplenishmentAction{
		Sequence:         2,
		ProductName:      "Product A",
		UnitsReplenished: 10,
		UnitsInStock:     50,
		AmountPaid:       decimal.RequireFromString("100.0"),
		CashBalance:      decimal.RequireFromString("100.50"),
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"<ReplenishmentAction>",
		"  <Sequence>2</Sequence>",
		"  <ProductName>Product A</ProductName>",
		"  <UnitsReplenished>10</UnitsReplenished>",
		"  <UnitsInStock>50</UnitsInStock>",
		"  <AmountPaid>100</AmountPaid>",
		"  <CashBalance>100.5</CashBalance>",
		"</ReplenishmentAction>",
	}, "\n") + "\n"
	assert.Equal(t, want, string(buf))
}

func TestWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("Should append records that decode back in order", func(t *testing.T) {
		w, path := openJournal(t)

		replenish := model.ReplenishmentAction{
			Sequence:         2,
			ProductName:      "Product B",
			UnitsReplenished: 12,
			UnitsInStock:     42,
			AmountPaid:       decimal.NewFromInt(180),
			CashBalance:      decimal.RequireFromString("20.5"),
		}

		require.NoError(t, w.Append(ctx, customerAction(1)))
		require.NoError(t, w.Append(ctx, replenish))

		records, err := journal.ReadFile(path)
		require.NoError(t, err)
		require.Len(t, records, 2)

		got, ok := records[0].(model.CustomerAction)
		require.True(t, ok)
		assert.Equal(t, "Product A", got.ProductName)
		assert.Equal(t, 40, got.UnitsInStock)
		assert.True(t, decimal.RequireFromString("200.5").Equal(got.CashBalance))

		gotR, ok := records[1].(model.ReplenishmentAction)
		require.True(t, ok)
		assert.Equal(t, 12, gotR.UnitsReplenished)
		assert.Equal(t, uint64(2), gotR.Seq())
	})

	t.Run("Should keep concurrent appends whole", func(t *testing.T) {
		w, path := openJournal(t)

		var wg sync.WaitGroup
		for i := range 200 {
			wg.Go(func() {
				assert.NoError(t, w.Append(ctx, customerAction(uint64(i+1))))
			})
		}
		wg.Wait()

		records, err := journal.ReadFile(path)
		require.NoError(t, err)
		require.Len(t, records, 200)

		seen := make(map[uint64]bool, len(records))
		for _, rec := range records {
			seen[rec.Seq()] = true
		}
		assert.Len(t, seen, 200)
	})

	t.Run("Should append to an existing file", func(t *testing.T) {
		w, path := openJournal(t)
		require.NoError(t, w.Append(ctx, customerAction(1)))
		require.NoError(t, w.Close())

		w2, err := journal.Open(config.Journal{Path: path})
		require.NoError(t, err)
		require.NoError(t, w2.Append(ctx, customerAction(2)))
		require.NoError(t, w2.Close())

		records, err := journal.ReadFile(path)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Should fail after close", func(t *testing.T) {
		w, _ := openJournal(t)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		err := w.Append(ctx, customerAction(1))
		require.ErrorIs(t, err, journal.ErrClosed)
	})

	t.Run("Should fail to open inside a missing directory", func(t *testing.T) {
		_, err := journal.Open(config.Journal{Path: filepath.Join(t.TempDir(), "missing", "log.xml")})
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDecodeRejectsUnknownElements(t *testing.T) {
	_, err := journal.Decode(strings.NewReader("<Refund><Sequence>1</Sequence></Refund>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%q", "Refund"))
}
