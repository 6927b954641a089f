package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Organization is the tenant. Every billing document, catalog entry, and API
// key belongs to exactly one organization.
type Organization struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	Name             string          `gorm:"type:text;not null"`
	Currency         string          `gorm:"type:text;not null;default:'USD'"`
	LogoURL          string          `gorm:"type:text"`
	PrimaryColor     string          `gorm:"type:text;not null;default:'#1f2937'"`
	DefaultTaxRate   decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	PaymentTermsDays int             `gorm:"not null;default:0"`
	AutoMarkOverdue  bool            `gorm:"not null;default:true"`
	AutoExpire       bool            `gorm:"not null;default:true"`
	PlanID           *snowflake.ID   `gorm:"index"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// TaxConfig is the slice of tenant settings the billing services consume.
// Services take it as an input instead of re-deriving tenant state.
type TaxConfig struct {
	DefaultTaxRate   decimal.Decimal
	Currency         string
	PaymentTermsDays int
}
