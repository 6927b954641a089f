package render

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func renderFixture() RenderInput {
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	return RenderInput{
		Template: TemplateView{
			CompanyName:  "Acme Corp",
			PrimaryColor: "#123abc",
			FontFamily:   "Inter",
			FooterNotes:  "Thank you for your business",
		},
		Document: DocumentView{
			Kind:     "Invoice",
			Number:   "INV-0001",
			Status:   "pending",
			IssuedAt: &issued,
			DueAt:    &due,
			Subtotal: decimal.NewFromInt(1900),
			Tax:      decimal.NewFromInt(342),
			Total:    decimal.NewFromInt(2242),
			TaxRate:  decimal.NewFromInt(18),
			Currency: "usd",
			Notes:    "Net 14",
		},
		Customer: CustomerView{Name: "Globex", Email: "billing@globex.test"},
		Items: []LineItemView{
			{Description: "Consulting", Quantity: 2, UnitPrice: decimal.NewFromInt(800), TaxRate: decimal.NewFromInt(18), Amount: decimal.NewFromInt(1600)},
			{Description: "Support", Quantity: 1, UnitPrice: decimal.NewFromInt(300), TaxRate: decimal.NewFromInt(18), Amount: decimal.NewFromInt(300)},
		},
	}
}

func TestRenderHTMLContainsDocumentFacts(t *testing.T) {
	html, err := NewRenderer().RenderHTML(renderFixture())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	for _, want := range []string{
		"<title>Invoice INV-0001</title>",
		"Acme Corp",
		"Globex",
		"USD 1900.00",
		"USD 342.00",
		"USD 2242.00",
		"18%",
		"Due: 2025-06-15",
		"--primary: #123abc",
		"Thank you for your business",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderHTMLSanitizesStyleInputs(t *testing.T) {
	input := renderFixture()
	input.Template.PrimaryColor = `red"; background: url(javascript:alert(1))`
	input.Template.FontFamily = `</style><script>`

	html, err := NewRenderer().RenderHTML(input)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if strings.Contains(html, "javascript:alert") {
		t.Error("unsanitized color reached output")
	}
	if !strings.Contains(html, "--primary: #111827") {
		t.Error("expected fallback primary color")
	}
	if !strings.Contains(html, `--font: "Space Grotesk"`) {
		t.Error("expected fallback font family")
	}
}

func TestRenderHTMLDefaultsKindAndCompany(t *testing.T) {
	input := renderFixture()
	input.Document.Kind = ""
	input.Template.CompanyName = ""

	html, err := NewRenderer().RenderHTML(input)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(html, "<title>Invoice INV-0001</title>") {
		t.Error("expected kind to default to Invoice")
	}
	if !strings.Contains(html, "<strong>Invoice</strong>") {
		t.Error("expected company name to fall back to the document kind")
	}
}
