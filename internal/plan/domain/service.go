package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Response struct {
	ID                   string `json:"id"`
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	MonthlyDocumentLimit int64  `json:"monthly_document_limit"`
	CustomerLimit        int64  `json:"customer_limit"`
	MonthlyPrice         string `json:"monthly_price"`
	Currency             string `json:"currency"`
}

type Service interface {
	// EnsureCatalog seeds the built-in plans. Idempotent; runs at startup.
	EnsureCatalog(ctx context.Context) error
	List(ctx context.Context) ([]Response, error)
	// Assign puts the current organization on the named plan.
	Assign(ctx context.Context, code string) (*Response, error)
	// CheckDocumentQuota reports whether the org may create one more billing
	// document this calendar month. Orgs without a plan are unrestricted.
	CheckDocumentQuota(ctx context.Context, orgID snowflake.ID) error
	// CheckCustomerQuota reports whether the org may add another customer.
	CheckCustomerQuota(ctx context.Context, orgID snowflake.ID) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrPlanNotFound        = errors.New("plan_not_found")
	ErrQuotaExceeded       = errors.New("plan_quota_exceeded")
)
