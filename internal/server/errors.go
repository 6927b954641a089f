package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	billingdomain "github.com/invozo/invozo/internal/billing/domain"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	dashboarddomain "github.com/invozo/invozo/internal/dashboard/domain"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	templatedomain "github.com/invozo/invozo/internal/invoicetemplate/domain"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	plandomain "github.com/invozo/invozo/internal/plan/domain"
	productdomain "github.com/invozo/invozo/internal/product/domain"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not_found")
	ErrTooManyRequests = errors.New("too_many_requests")
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Code + ": " + e.Message }

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return &ValidationError{Code: "invalid_request", Message: "invalid request payload"}
}

// AbortWithError translates domain errors into HTTP responses. Unknown errors
// become opaque 500s so internals never leak.
func AbortWithError(c *gin.Context, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validation})
		return
	}

	var conversion *estimatedomain.ConversionError
	if errors.As(err, &conversion) {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, estimatedomain.ErrVersionConflict) {
			status = http.StatusConflict
		}
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
			"code":        "conversion_failed",
			"message":     "estimate conversion rolled back",
			"estimate_id": conversion.EstimateID,
			"step":        conversion.Step,
		}})
		return
	}

	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    codeFor(err, status),
		"message": message,
	}})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, apikeydomain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	case isNotFoundError(err):
		return http.StatusNotFound
	case isConflictError(err):
		return http.StatusConflict
	case errors.Is(err, plandomain.ErrQuotaExceeded):
		return http.StatusForbidden
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal_error"
	}
	return strings.TrimSpace(err.Error())
}

func isNotFoundError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		customerdomain.ErrNotFound,
		productdomain.ErrNotFound,
		invoicedomain.ErrNotFound,
		estimatedomain.ErrNotFound,
		orderdomain.ErrNotFound,
		organizationdomain.ErrNotFound,
		templatedomain.ErrNotFound,
		apikeydomain.ErrNotFound,
		plandomain.ErrPlanNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflictError(err error) bool {
	for _, target := range []error{
		invoicedomain.ErrVersionConflict,
		estimatedomain.ErrVersionConflict,
		orderdomain.ErrVersionConflict,
		invoicedomain.ErrInvalidTransition,
		estimatedomain.ErrInvalidTransition,
		orderdomain.ErrInvalidTransition,
		estimatedomain.ErrAlreadyConverted,
		estimatedomain.ErrNotConvertible,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isValidationError(err error) bool {
	for _, target := range []error{
		billingdomain.ErrInvalidQuantity,
		billingdomain.ErrInvalidUnitPrice,
		billingdomain.ErrInvalidTaxRate,
		billingdomain.ErrInvalidProduct,
		billingdomain.ErrInvalidProductName,
		customerdomain.ErrInvalidOrganization,
		customerdomain.ErrInvalidID,
		customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidPhone,
		productdomain.ErrInvalidOrganization,
		productdomain.ErrInvalidID,
		productdomain.ErrInvalidName,
		productdomain.ErrInvalidUnitPrice,
		productdomain.ErrInvalidTaxRate,
		invoicedomain.ErrInvalidOrganization,
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidCustomer,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidDueDate,
		estimatedomain.ErrInvalidOrganization,
		estimatedomain.ErrInvalidID,
		estimatedomain.ErrInvalidCustomer,
		estimatedomain.ErrInvalidStatus,
		estimatedomain.ErrInvalidValidUntil,
		orderdomain.ErrInvalidOrganization,
		orderdomain.ErrInvalidID,
		orderdomain.ErrInvalidCustomer,
		orderdomain.ErrInvalidStatus,
		organizationdomain.ErrInvalidOrganization,
		organizationdomain.ErrInvalidName,
		organizationdomain.ErrInvalidCurrency,
		organizationdomain.ErrInvalidColor,
		organizationdomain.ErrInvalidTaxRate,
		organizationdomain.ErrInvalidTerms,
		templatedomain.ErrInvalidOrganization,
		templatedomain.ErrInvalidID,
		templatedomain.ErrInvalidName,
		templatedomain.ErrInvalidCurrency,
		templatedomain.ErrInvalidLocale,
		apikeydomain.ErrInvalidName,
		apikeydomain.ErrInvalidID,
		plandomain.ErrInvalidOrganization,
		dashboarddomain.ErrInvalidOrganization,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseOptionalTime accepts RFC 3339 or plain dates; endOfDay pins a bare
// date to 23:59:59 so "to" filters are inclusive.
func parseOptionalTime(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Second)
	}
	return &parsed, nil
}
