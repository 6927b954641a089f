// Package mail builds mailto links so documents can be sent from the user's
// own mail client. Sending mail server-side is deliberately out of scope.
package mail

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Request describes the document the link is about.
type Request struct {
	To          string
	Kind        string
	Number      string
	CompanyName string
	Total       decimal.Decimal
	Currency    string
	DueAt       *time.Time
}

// Link builds a mailto URL with subject and body prefilled. Spaces are
// percent-encoded; '+' is not universally honored by mail clients.
func Link(req Request) string {
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = "Invoice"
	}

	subject := fmt.Sprintf("%s %s", kind, req.Number)
	if req.CompanyName != "" {
		subject += " from " + req.CompanyName
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Please find %s %s attached.\n", strings.ToLower(kind), req.Number)
	fmt.Fprintf(&body, "Amount due: %s %s\n", strings.ToUpper(req.Currency), req.Total.StringFixed(2))
	if req.DueAt != nil {
		fmt.Fprintf(&body, "Due date: %s\n", req.DueAt.UTC().Format("2006-01-02"))
	}
	if req.CompanyName != "" {
		fmt.Fprintf(&body, "\nKind regards,\n%s\n", req.CompanyName)
	}

	values := url.Values{}
	values.Set("subject", subject)
	values.Set("body", body.String())
	query := strings.ReplaceAll(values.Encode(), "+", "%20")

	return "mailto:" + url.QueryEscape(strings.TrimSpace(req.To)) + "?" + query
}
