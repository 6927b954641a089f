package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EstimateStatus is the estimate lifecycle.
type EstimateStatus string

const (
	StatusDraft    EstimateStatus = "draft"
	StatusSent     EstimateStatus = "sent"
	StatusAccepted EstimateStatus = "accepted"
	StatusRejected EstimateStatus = "rejected"
	StatusExpired  EstimateStatus = "expired"
)

// IsValid reports membership in the estimate status enumeration.
func (s EstimateStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed. Accepted,
// rejected, and expired estimates are all final.
func (s EstimateStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusExpired
}

// CanTransitionTo is the explicit transition table: draft goes out for
// review, and a sent estimate resolves one way.
func (s EstimateStatus) CanTransitionTo(target EstimateStatus) bool {
	if !target.IsValid() || s == target {
		return false
	}
	switch s {
	case StatusDraft:
		return target == StatusSent
	case StatusSent:
		return target == StatusAccepted || target == StatusRejected || target == StatusExpired
	}
	return false
}

// Estimate mirrors the invoice shape with a validity window instead of a due
// date. ConvertedInvoiceID links to the invoice a conversion produced.
type Estimate struct {
	ID                 snowflake.ID    `gorm:"primaryKey"`
	OrgID              snowflake.ID    `gorm:"not null;index"`
	Number             string          `gorm:"type:text;not null"`
	CustomerID         snowflake.ID    `gorm:"not null;index"`
	CustomerName       string          `gorm:"type:text;not null"`
	CustomerEmail      string          `gorm:"type:text"`
	CustomerAddress    string          `gorm:"type:text"`
	IssuedAt           time.Time       `gorm:"not null"`
	ValidUntil         time.Time       `gorm:"not null"`
	Status             EstimateStatus  `gorm:"type:text;not null;default:'draft'"`
	TaxRate            decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency           string          `gorm:"type:text;not null"`
	Notes              string          `gorm:"type:text"`
	ConvertedInvoiceID *snowflake.ID   `gorm:"index"`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Estimate) TableName() string { return "estimates" }
