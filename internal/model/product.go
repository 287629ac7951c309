package model

import "github.com/shopspring/decimal"

type Product struct {
	Name          string          `json:"name" validate:"required,max=128,alphanumspace"`
	UnitsInStock  int             `json:"units_in_stock" validate:"gte=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gt=0"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"gt=0"`
}
