package inventory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/shop-simulator/internal/apperr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

// Catalog owns the product list and the cash balance. All reads and writes
// go through its lock, so a check and the mutation it guards are atomic.
type Catalog struct {
	mu       sync.Mutex
	products []model.Product
	balance  decimal.Decimal
	seq      uint64
}

// NewCatalog copies products into a new catalog opened with the given balance.
func NewCatalog(products []model.Product, openingBalance decimal.Decimal) *Catalog {
	return &Catalog{
		products: slices.Clone(products),
		balance:  openingBalance,
	}
}

// WithTx runs txFunc while holding the catalog lock. The Tx must not escape txFunc.
func (c *Catalog) WithTx(txFunc func(tx *Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return txFunc(&Tx{c: c})
}

// Products returns a snapshot of every product.
func (c *Catalog) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.products)
}

func (c *Catalog) Balance() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.balance
}

// Sell applies a customer purchase of qty units of the product at index i.
func (c *Catalog) Sell(i, qty int) (model.CustomerAction, error) {
	var rec model.CustomerAction
	err := c.WithTx(func(tx *Tx) error {
		var err error
		rec, err = tx.Sell(i, qty)
		return err
	})
	return rec, err
}

// Restock applies a replenishment of qty units of the product at index i.
func (c *Catalog) Restock(i, qty int) (model.ReplenishmentAction, error) {
	var rec model.ReplenishmentAction
	err := c.WithTx(func(tx *Tx) error {
		var err error
		rec, err = tx.Restock(i, qty)
		return err
	})
	return rec, err
}

// Tx is a view of the catalog valid for the duration of one WithTx call.
type Tx struct {
	c *Catalog
}

func (tx *Tx) Len() int {
	return len(tx.c.products)
}

func (tx *Tx) Product(i int) (model.Product, error) {
	if i < 0 || i >= len(tx.c.products) {
		return model.Product{}, apperr.ProductNotFoundErr
	}
	return tx.c.products[i], nil
}

func (tx *Tx) Balance() decimal.Decimal {
	return tx.c.balance
}

// Sell decrements stock and credits the balance. The purchase is rejected
// unless at least one unit remains in stock afterwards.
func (tx *Tx) Sell(i, qty int) (model.CustomerAction, error) {
	if qty <= 0 {
		return model.CustomerAction{}, apperr.InvalidQuantityErr
	}

	p, err := tx.Product(i)
	if err != nil {
		return model.CustomerAction{}, fmt.Errorf("sell: %w", err)
	}

	if p.UnitsInStock-qty <= 0 {
		return model.CustomerAction{}, apperr.InsufficientStockErr
	}

	amount := p.SellingPrice.Mul(decimal.NewFromInt(int64(qty)))

	tx.c.products[i].UnitsInStock -= qty
	tx.c.balance = tx.c.balance.Add(amount)
	tx.c.seq++

	return model.CustomerAction{
		Sequence:       tx.c.seq,
		ProductName:    p.Name,
		UnitsPurchased: qty,
		UnitsInStock:   tx.c.products[i].UnitsInStock,
		AmountPaid:     amount,
		CashBalance:    tx.c.balance,
	}, nil
}

// Restock increments stock and debits the balance. The replenishment is
// rejected unless the balance stays strictly positive afterwards.
func (tx *Tx) Restock(i, qty int) (model.ReplenishmentAction, error) {
	if qty <= 0 {
		return model.ReplenishmentAction{}, apperr.InvalidQuantityErr
	}

	p, err := tx.Product(i)
	if err != nil {
		return model.ReplenishmentAction{}, fmt.Errorf("restock: %w", err)
	}

	cost := p.PurchasePrice.Mul(decimal.NewFromInt(int64(qty)))
	if !tx.c.balance.Sub(cost).IsPositive() {
		return model.ReplenishmentAction{}, apperr.InsufficientFundsErr
	}

	tx.c.products[i].UnitsInStock += qty
	tx.c.balance = tx.c.balance.Sub(cost)
	tx.c.seq++

	return model.ReplenishmentAction{
		Sequence:         tx.c.seq,
		ProductName:      p.Name,
		UnitsReplenished: qty,
		UnitsInStock:     tx.c.products[i].UnitsInStock,
		AmountPaid:       cost,
		CashBalance:      tx.c.balance,
	}, nil
}
