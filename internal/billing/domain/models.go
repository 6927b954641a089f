// Package domain holds the financial core shared by invoices, estimates,
// and orders: line items, derived totals, and document numbering.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DocumentKind discriminates rows in the shared line_items table.
type DocumentKind string

const (
	DocumentKindInvoice  DocumentKind = "invoice"
	DocumentKindEstimate DocumentKind = "estimate"
	DocumentKindOrder    DocumentKind = "order"
)

// LineItem is a single product/quantity/price entry within a billing
// document. Amount is derived and recomputed on every mutation; it is never
// accepted from clients.
type LineItem struct {
	ID           snowflake.ID     `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID     `gorm:"not null;index" json:"-"`
	DocumentKind DocumentKind     `gorm:"type:text;not null;index:idx_line_items_document,priority:1" json:"-"`
	DocumentID   snowflake.ID     `gorm:"not null;index:idx_line_items_document,priority:2" json:"-"`
	ProductID    snowflake.ID     `gorm:"not null" json:"product_id"`
	ProductName  string           `gorm:"type:text;not null" json:"product_name"`
	Quantity     int64            `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TaxRate      *decimal.Decimal `gorm:"type:decimal(7,4)" json:"tax_rate,omitempty"`
	Amount       decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"amount"`
	CreatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "line_items" }

// Recompute restores the Amount = Quantity * UnitPrice invariant.
func (li *LineItem) Recompute() {
	li.Amount = li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

// LineItemInput is the client-supplied slice of a line, shared by every
// document kind. UnitPrice and TaxRate may be omitted to snapshot the
// product's catalog values; Amount is never accepted from clients.
type LineItemInput struct {
	ProductID string           `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
}

var (
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidTaxRate     = errors.New("invalid_tax_rate")
	ErrInvalidProduct     = errors.New("invalid_product")
	ErrInvalidProductName = errors.New("invalid_product_name")
)

// Validate rejects line items the UI historically allowed through: zero or
// negative quantities, negative prices, and out-of-range tax rates.
func (li LineItem) Validate() error {
	if li.ProductID == 0 {
		return ErrInvalidProduct
	}
	if li.ProductName == "" {
		return ErrInvalidProductName
	}
	if li.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if li.UnitPrice.IsNegative() {
		return ErrInvalidUnitPrice
	}
	if li.TaxRate != nil {
		if li.TaxRate.IsNegative() || li.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
			return ErrInvalidTaxRate
		}
	}
	return nil
}
