package inventory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
	"github.com/tuanvumaihuynh/shop-simulator/pkg/validator"
)

// DefaultProducts is the catalog the shop opens with when no seed file is configured.
func DefaultProducts() []model.Product {
	return []model.Product{
		{Name: "Product A", UnitsInStock: 50, PurchasePrice: decimal.NewFromInt(10), SellingPrice: decimal.NewFromInt(20)},
		{Name: "Product B", UnitsInStock: 30, PurchasePrice: decimal.NewFromInt(15), SellingPrice: decimal.NewFromInt(30)},
		{Name: "Product C", UnitsInStock: 20, PurchasePrice: decimal.NewFromInt(20), SellingPrice: decimal.NewFromInt(40)},
	}
}

// Seed is the on-disk shape of a catalog seed file.
type Seed struct {
	Products []model.Product `json:"products" validate:"required,min=1,unique=Name,dive"`
}

// Load builds the catalog described by cfg, validating the products first.
func Load(cfg config.Catalog, v validator.Validator) (*Catalog, error) {
	balance, err := decimal.NewFromString(cfg.OpeningBalance)
	if err != nil {
		return nil, fmt.Errorf("parse opening balance: %w", err)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("opening balance must not be negative: %s", balance)
	}

	seed := Seed{Products: DefaultProducts()}
	if cfg.SeedFile != "" {
		seed, err = ReadSeed(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("read seed: %w", err)
		}
	}

	if err := v.Validate(seed); err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}

	return NewCatalog(seed.Products, balance), nil
}

func ReadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("unmarshal seed: %w", err)
	}

	return seed, nil
}
