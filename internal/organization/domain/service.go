package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type UpdateRequest struct {
	Name             *string          `json:"name"`
	Currency         *string          `json:"currency"`
	LogoURL          *string          `json:"logo_url"`
	PrimaryColor     *string          `json:"primary_color"`
	DefaultTaxRate   *decimal.Decimal `json:"default_tax_rate"`
	PaymentTermsDays *int             `json:"payment_terms_days"`
	AutoMarkOverdue  *bool            `json:"auto_mark_overdue"`
	AutoExpire       *bool            `json:"auto_expire"`
}

type Response struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	LogoURL          string          `json:"logo_url,omitempty"`
	PrimaryColor     string          `json:"primary_color"`
	DefaultTaxRate   decimal.Decimal `json:"default_tax_rate"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	AutoMarkOverdue  bool            `json:"auto_mark_overdue"`
	AutoExpire       bool            `json:"auto_expire"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	// TaxConfigFor returns the settings billing computations need. Cached.
	TaxConfigFor(ctx context.Context, orgID snowflake.ID) (TaxConfig, error)
}

func ParseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidColor        = errors.New("invalid_color")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidTerms        = errors.New("invalid_payment_terms")
	ErrNotFound            = errors.New("organization_not_found")
)
