package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is a tenant-scoped catalog entry. TaxRate, when set, overrides the
// organization's default rate for lines referencing this product.
type Product struct {
	ID          snowflake.ID     `gorm:"primaryKey"`
	OrgID       snowflake.ID     `gorm:"not null;index"`
	Name        string           `gorm:"type:text;not null"`
	Description string           `gorm:"type:text"`
	UnitPrice   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	TaxRate     *decimal.Decimal `gorm:"type:decimal(7,4)"`
	Active      bool             `gorm:"not null;default:true"`
	CreatedAt   time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
