package domain

import (
	"context"
	"errors"
	"fmt"
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
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes"`
	Items      []LineItemInput `json:"items"`
}

type UpdateRequest struct {
	ID         string          `json:"-"`
	Version    int64           `json:"version"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      *string         `json:"notes"`
	Items      []LineItemInput `json:"items"`
}

type SetStatusRequest struct {
	ID      string         `json:"-"`
	Version int64          `json:"version"`
	Status  EstimateStatus `json:"status"`
}

// ConvertRequest turns an estimate into a fresh invoice; Version guards
// against converting a copy someone else just changed.
type ConvertRequest struct {
	ID      string `json:"-"`
	Version int64  `json:"version"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	CustomerID string `form:"customer_id"`
}

type Response struct {
	ID               string                   `json:"id"`
	Number           string                   `json:"number"`
	CustomerID       string                   `json:"customer_id"`
	CustomerName     string                   `json:"customer_name"`
	CustomerEmail    string                   `json:"customer_email,omitempty"`
	CustomerAddress  string                   `json:"customer_address,omitempty"`
	IssuedAt         time.Time                `json:"issued_at"`
	ValidUntil       time.Time                `json:"valid_until"`
	Status           EstimateStatus           `json:"status"`
	TaxRate          decimal.Decimal          `json:"tax_rate"`
	Subtotal         decimal.Decimal          `json:"subtotal"`
	Tax              decimal.Decimal          `json:"tax"`
	Total            decimal.Decimal          `json:"total"`
	Currency         string                   `json:"currency"`
	Notes            string                   `json:"notes,omitempty"`
	ConvertedInvoice string                   `json:"converted_invoice_id,omitempty"`
	Version          int64                    `json:"version"`
	Items            []billingdomain.LineItem `json:"items"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Estimates []Response `json:"estimates"`
}

// ConvertResult reports both sides of a completed conversion.
type ConvertResult struct {
	Estimate  Response `json:"estimate"`
	InvoiceID string   `json:"invoice_id"`
	InvoiceNo string   `json:"invoice_number"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	ConvertToInvoice(ctx context.Context, req ConvertRequest) (*ConvertResult, error)
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
	ErrInvalidValidUntil   = errors.New("invalid_valid_until")
	ErrVersionConflict     = errors.New("version_conflict")
	ErrNotFound            = errors.New("estimate_not_found")
	ErrAlreadyConverted    = errors.New("estimate_already_converted")
	ErrNotConvertible      = errors.New("estimate_not_convertible")
)

// ConversionError wraps a failure inside the estimate-to-invoice
// transaction; both writes roll back together, so callers can retry.
type ConversionError struct {
	EstimateID string
	Step       string
	Err        error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert estimate %s: %s: %v", e.EstimateID, e.Step, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
