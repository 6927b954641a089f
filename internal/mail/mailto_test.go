package mail

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLink(t *testing.T) {
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	link := Link(Request{
		To:          "billing@globex.test",
		Kind:        "Invoice",
		Number:      "INV-0001",
		CompanyName: "Acme Corp",
		Total:       decimal.NewFromInt(2242),
		Currency:    "usd",
		DueAt:       &due,
	})

	if !strings.HasPrefix(link, "mailto:billing%40globex.test?") {
		t.Fatalf("unexpected prefix: %s", link)
	}
	if strings.Contains(link, "+") {
		t.Fatalf("link must not use '+' for spaces: %s", link)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	query := parsed.Query()
	if got := query.Get("subject"); got != "Invoice INV-0001 from Acme Corp" {
		t.Fatalf("subject = %q", got)
	}
	body := query.Get("body")
	if !strings.Contains(body, "Amount due: USD 2242.00") {
		t.Fatalf("body missing amount: %q", body)
	}
	if !strings.Contains(body, "Due date: 2025-06-15") {
		t.Fatalf("body missing due date: %q", body)
	}
}

func TestLinkDefaultsKind(t *testing.T) {
	link := Link(Request{To: "a@b.test", Number: "EST-0001", Total: decimal.NewFromInt(100), Currency: "EUR"})
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := parsed.Query().Get("subject"); got != "Invoice EST-0001" {
		t.Fatalf("subject = %q", got)
	}
}
