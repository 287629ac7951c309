package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/shop-simulator/internal/apperr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/inventory"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

// Simulator starts background simulation runs.
type Simulator interface {
	StartCustomerRun() (model.Run, error)
	StartReplenishmentRun() (model.Run, error)
}

type ShopService interface {
	// OpenForCustomers starts a customer purchase run.
	OpenForCustomers(ctx context.Context) (model.Run, error)
	// Reaccount starts a stock replenishment run.
	Reaccount(ctx context.Context) (model.Run, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, name string) (model.Product, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type shopService struct {
	catalog   *inventory.Catalog
	simulator Simulator
}

func NewShopService(catalog *inventory.Catalog, simulator Simulator) ShopService {
	return &shopService{
		catalog:   catalog,
		simulator: simulator,
	}
}

func (s *shopService) OpenForCustomers(_ context.Context) (model.Run, error) {
	run, err := s.simulator.StartCustomerRun()
	if err != nil {
		return model.Run{}, fmt.Errorf("start customer run: %w", err)
	}
	return run, nil
}

func (s *shopService) Reaccount(_ context.Context) (model.Run, error) {
	run, err := s.simulator.StartReplenishmentRun()
	if err != nil {
		return model.Run{}, fmt.Errorf("start replenishment run: %w", err)
	}
	return run, nil
}

func (s *shopService) ListProducts(_ context.Context) ([]model.Product, error) {
	return s.catalog.Products(), nil
}

func (s *shopService) GetProduct(_ context.Context, name string) (model.Product, error) {
	for _, p := range s.catalog.Products() {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Product{}, apperr.ProductNotFoundErr
}

func (s *shopService) Balance(_ context.Context) (decimal.Decimal, error) {
	return s.catalog.Balance(), nil
}
