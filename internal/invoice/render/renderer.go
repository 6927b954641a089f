package render

import (
	"time"

	"github.com/shopspring/decimal"
)

// RenderInput is the deterministic input used for document rendering. It is
// assembled by the caller so the renderer never touches the database.
type RenderInput struct {
	Template TemplateView
	Document DocumentView
	Customer CustomerView
	Items    []LineItemView
}

type TemplateView struct {
	Name         string
	Locale       string
	Currency     string
	LogoURL      string
	CompanyName  string
	FooterNotes  string
	FooterLegal  string
	PrimaryColor string
	FontFamily   string
}

// DocumentView carries the billing document being rendered. Kind is the
// human label printed in the header ("Invoice", "Estimate", "Order").
type DocumentView struct {
	ID       string
	Kind     string
	Number   string
	Status   string
	IssuedAt *time.Time
	DueAt    *time.Time
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	TaxRate  decimal.Decimal
	Currency string
	Notes    string
}

type CustomerView struct {
	Name  string
	Email string
}

type LineItemView struct {
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Amount      decimal.Decimal
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}
