package model

import (
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// RecordKind identifies the mutation a record describes.
type RecordKind string

const (
	RecordKindCustomer      RecordKind = "customer"
	RecordKindReplenishment RecordKind = "replenishment"
)

// Record is one committed catalog mutation.
type Record interface {
	Kind() RecordKind
	// Key is the name of the product the mutation touched.
	Key() string
	Seq() uint64
}

var (
	_ Record = CustomerAction{}
	_ Record = ReplenishmentAction{}
)

// CustomerAction is written after a customer purchase is committed.
type CustomerAction struct {
	XMLName        xml.Name        `xml:"CustomerAction" json:"-"`
	Sequence       uint64          `xml:"Sequence" json:"sequence"`
	ProductName    string          `xml:"ProductName" json:"product_name"`
	UnitsPurchased int             `xml:"UnitsPurchased" json:"units_purchased"`
	UnitsInStock   int             `xml:"UnitsInStock" json:"units_in_stock"`
	AmountPaid     decimal.Decimal `xml:"AmountPaid" json:"amount_paid"`
	CashBalance    decimal.Decimal `xml:"CashBalance" json:"cash_balance"`
}

func (a CustomerAction) Kind() RecordKind { return RecordKindCustomer }
func (a CustomerAction) Key() string      { return a.ProductName }
func (a CustomerAction) Seq() uint64      { return a.Sequence }

// ReplenishmentAction is written after stock replenishment is committed.
type ReplenishmentAction struct {
	XMLName          xml.Name        `xml:"ReplenishmentAction" json:"-"`
	Sequence         uint64          `xml:"Sequence" json:"sequence"`
	ProductName      string          `xml:"ProductName" json:"product_name"`
	UnitsReplenished int             `xml:"UnitsReplenished" json:"units_replenished"`
	UnitsInStock     int             `xml:"UnitsInStock" json:"units_in_stock"`
	AmountPaid       decimal.Decimal `xml:"AmountPaid" json:"amount_paid"`
	CashBalance      decimal.Decimal `xml:"CashBalance" json:"cash_balance"`
}

func (a ReplenishmentAction) Kind() RecordKind { return RecordKindReplenishment }
func (a ReplenishmentAction) Key() string      { return a.ProductName }
func (a ReplenishmentAction) Seq() uint64      { return a.Sequence }
