package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

type RunResponse struct {
	RunID     uuid.UUID     `json:"run_id"`
	Kind      model.RunKind `json:"kind"`
	StartedAt time.Time     `json:"started_at"`
}

type ProductResponse struct {
	Name          string          `json:"name"`
	UnitsInStock  int             `json:"units_in_stock"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
}

type BalanceResponse struct {
	CashBalance decimal.Decimal `json:"cash_balance"`
}

func toRunResponse(run model.Run) RunResponse {
	return RunResponse{
		RunID:     run.ID,
		Kind:      run.Kind,
		StartedAt: run.StartedAt,
	}
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		Name:          p.Name,
		UnitsInStock:  p.UnitsInStock,
		PurchasePrice: p.PurchasePrice,
		SellingPrice:  p.SellingPrice,
	}
}
