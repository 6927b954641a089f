package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/invozo/invozo/internal/billing/domain"
	"github.com/invozo/invozo/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// LineItemInput aliases the shared billing input type.
type LineItemInput = billingdomain.LineItemInput

type CreateRequest struct {
	CustomerID string          `json:"customer_id"`
	PlacedAt   *time.Time      `json:"placed_at"`
	Notes      string          `json:"notes"`
	Items      []LineItemInput `json:"items"`
}

type UpdateRequest struct {
	ID      string          `json:"-"`
	Version int64           `json:"version"`
	Notes   *string         `json:"notes"`
	Items   []LineItemInput `json:"items"`
}

type SetStatusRequest struct {
	ID      string      `json:"-"`
	Version int64       `json:"version"`
	Status  OrderStatus `json:"status"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	CustomerID string `form:"customer_id"`
}

type Response struct {
	ID              string                   `json:"id"`
	Number          string                   `json:"number"`
	CustomerID      string                   `json:"customer_id"`
	CustomerName    string                   `json:"customer_name"`
	CustomerEmail   string                   `json:"customer_email,omitempty"`
	CustomerAddress string                   `json:"customer_address,omitempty"`
	PlacedAt        time.Time                `json:"placed_at"`
	Status          OrderStatus              `json:"status"`
	TaxRate         decimal.Decimal          `json:"tax_rate"`
	Subtotal        decimal.Decimal          `json:"subtotal"`
	Tax             decimal.Decimal          `json:"tax"`
	Total           decimal.Decimal          `json:"total"`
	Currency        string                   `json:"currency"`
	Notes           string                   `json:"notes,omitempty"`
	Version         int64                    `json:"version"`
	Items           []billingdomain.LineItem `json:"items"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Orders []Response `json:"orders"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

func ParseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrVersionConflict     = errors.New("version_conflict")
	ErrNotFound            = errors.New("order_not_found")
)
