package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the invoice lifecycle.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "draft"
	StatusSent          InvoiceStatus = "sent"
	StatusPending       InvoiceStatus = "pending"
	StatusPaid          InvoiceStatus = "paid"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusOverdue       InvoiceStatus = "overdue"
)

// IsValid reports membership in the invoice status enumeration.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPending, StatusPaid, StatusPartiallyPaid, StatusOverdue:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s InvoiceStatus) IsTerminal() bool { return s == StatusPaid }

// CanTransitionTo is the explicit transition table. The UI this replaces let
// any status jump to any other; invalid jumps are now rejected.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	if !target.IsValid() || s == target {
		return false
	}
	switch s {
	case StatusDraft:
		return target == StatusSent || target == StatusPending
	case StatusSent:
		return target == StatusPending
	case StatusPending:
		return target == StatusPaid || target == StatusPartiallyPaid || target == StatusOverdue
	case StatusPartiallyPaid:
		return target == StatusPaid || target == StatusOverdue
	case StatusOverdue:
		return target == StatusPaid || target == StatusPartiallyPaid
	}
	return false
}

// Invoice aggregates customer snapshot, dates, status, and derived totals.
// Subtotal, Tax, and Total are always recomputed from the item list before a
// write; Version backs compare-and-swap updates.
type Invoice struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	OrgID            snowflake.ID    `gorm:"not null;index"`
	Number           string          `gorm:"type:text;not null"`
	CustomerID       snowflake.ID    `gorm:"not null;index"`
	CustomerName     string          `gorm:"type:text;not null"`
	CustomerEmail    string          `gorm:"type:text"`
	CustomerAddress  string          `gorm:"type:text"`
	IssuedAt         time.Time       `gorm:"not null"`
	DueAt            time.Time       `gorm:"not null"`
	Status           InvoiceStatus   `gorm:"type:text;not null;default:'draft'"`
	TaxRate          decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:text;not null"`
	Notes            string          `gorm:"type:text"`
	SourceEstimateID *snowflake.ID   `gorm:"index"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
