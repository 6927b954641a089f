package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle, from placement through fulfilment.
type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusConfirmed        OrderStatus = "confirmed"
	StatusEstimateSent     OrderStatus = "estimate_sent"
	StatusEstimateAccepted OrderStatus = "estimate_accepted"
	StatusEstimateRejected OrderStatus = "estimate_rejected"
	StatusPaid             OrderStatus = "paid"
	StatusProcessing       OrderStatus = "processing"
	StatusDispatched       OrderStatus = "dispatched"
	StatusShipped          OrderStatus = "shipped"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelled        OrderStatus = "cancelled"
)

// IsValid reports membership in the order status enumeration.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusEstimateSent, StatusEstimateAccepted,
		StatusEstimateRejected, StatusPaid, StatusProcessing, StatusDispatched,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo is the explicit transition table. The estimate leg between
// confirmation and payment is optional; cancellation is reachable from every
// non-terminal state. The UI this replaces allowed arbitrary jumps.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if !target.IsValid() || s == target {
		return false
	}
	if target == StatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case StatusPending:
		return target == StatusConfirmed
	case StatusConfirmed:
		return target == StatusEstimateSent || target == StatusPaid
	case StatusEstimateSent:
		return target == StatusEstimateAccepted || target == StatusEstimateRejected
	case StatusEstimateAccepted:
		return target == StatusPaid
	case StatusEstimateRejected:
		return false
	case StatusPaid:
		return target == StatusProcessing
	case StatusProcessing:
		return target == StatusDispatched
	case StatusDispatched:
		return target == StatusShipped
	case StatusShipped:
		return target == StatusDelivered
	}
	return false
}

// Order is a fulfilment document sharing the billing shape with invoices and
// estimates.
type Order struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	OrgID           snowflake.ID    `gorm:"not null;index"`
	Number          string          `gorm:"type:text;not null"`
	CustomerID      snowflake.ID    `gorm:"not null;index"`
	CustomerName    string          `gorm:"type:text;not null"`
	CustomerEmail   string          `gorm:"type:text"`
	CustomerAddress string          `gorm:"type:text"`
	PlacedAt        time.Time       `gorm:"not null"`
	Status          OrderStatus     `gorm:"type:text;not null;default:'pending'"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:text;not null"`
	Notes           string          `gorm:"type:text"`
	Version         int64           `gorm:"not null;default:1"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }
