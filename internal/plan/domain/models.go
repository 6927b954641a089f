package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Plan is a subscription tier. A zero limit means unlimited.
type Plan struct {
	ID                   snowflake.ID    `gorm:"primaryKey"`
	Code                 string          `gorm:"type:text;not null;uniqueIndex"`
	Name                 string          `gorm:"type:text;not null"`
	MonthlyDocumentLimit int64           `gorm:"not null;default:0"`
	CustomerLimit        int64           `gorm:"not null;default:0"`
	MonthlyPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Currency             string          `gorm:"type:text;not null;default:'USD'"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// Codes of the built-in catalog seeded at startup.
const (
	CodeFree     = "free"
	CodeStarter  = "starter"
	CodeBusiness = "business"
)
