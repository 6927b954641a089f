package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// StatusBucket aggregates documents sharing a status.
type StatusBucket struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// Summary is the tenant-wide dashboard snapshot.
type Summary struct {
	Invoices  []StatusBucket `json:"invoices"`
	Estimates []StatusBucket `json:"estimates"`
	Orders    []StatusBucket `json:"orders"`

	// Outstanding is the sum of invoice totals not yet fully paid.
	Outstanding decimal.Decimal `json:"outstanding"`
	// Overdue is the portion of Outstanding past its due date.
	Overdue  decimal.Decimal `json:"overdue"`
	Currency string          `json:"currency"`

	GeneratedAt time.Time `json:"generated_at"`
}

type Service interface {
	Summarize(ctx context.Context) (*Summary, error)
}

var ErrInvalidOrganization = errors.New("invalid_organization")
