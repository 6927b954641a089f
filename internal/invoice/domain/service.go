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
	IssuedAt   *time.Time      `json:"issued_at"`
	DueAt      *time.Time      `json:"due_at"`
	Notes      string          `json:"notes"`
	Items      []LineItemInput `json:"items"`
}

// UpdateRequest replaces the item list wholesale; Version must match the
// stored row or the update is rejected.
type UpdateRequest struct {
	ID      string          `json:"-"`
	Version int64           `json:"version"`
	DueAt   *time.Time      `json:"due_at"`
	Notes   *string         `json:"notes"`
	Items   []LineItemInput `json:"items"`
}

type SetStatusRequest struct {
	ID      string        `json:"-"`
	Version int64         `json:"version"`
	Status  InvoiceStatus `json:"status"`
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
	IssuedAt        time.Time                `json:"issued_at"`
	DueAt           time.Time                `json:"due_at"`
	Status          InvoiceStatus            `json:"status"`
	TaxRate         decimal.Decimal          `json:"tax_rate"`
	Subtotal        decimal.Decimal          `json:"subtotal"`
	Tax             decimal.Decimal          `json:"tax"`
	Total           decimal.Decimal          `json:"total"`
	Currency        string                   `json:"currency"`
	Notes           string                   `json:"notes,omitempty"`
	SourceEstimate  string                   `json:"source_estimate_id,omitempty"`
	Version         int64                    `json:"version"`
	Items           []billingdomain.LineItem `json:"items"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Response `json:"invoices"`
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
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrVersionConflict     = errors.New("version_conflict")
	ErrNotFound            = errors.New("invoice_not_found")
)
