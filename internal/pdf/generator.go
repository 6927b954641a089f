// Package pdf renders billing documents to PDF for download and email
// attachment. It shares the view structs with the HTML renderer so both
// outputs always agree on numbers and labels.
package pdf

import (
	"fmt"
	"strings"

	"github.com/invozo/invozo/internal/invoice/render"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotocfg "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Generator struct {
	log *zap.Logger
}

type GeneratorParam struct {
	fx.In

	Log *zap.Logger
}

func NewGenerator(p GeneratorParam) *Generator {
	return &Generator{log: p.Log.Named("pdf")}
}

// Filename names the download: "invoice_INV-0001.pdf".
func Filename(kind, number string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = "document"
	}
	return fmt.Sprintf("%s_%s.pdf", kind, number)
}

func (g *Generator) Generate(input render.RenderInput) ([]byte, error) {
	m := maroto.New(marotocfg.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build())

	g.addHeader(m, input)
	g.addItemTable(m, input)
	g.addTotals(m, input)
	g.addFooter(m, input)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *Generator) addHeader(m core.Maroto, input render.RenderInput) {
	company := input.Template.CompanyName
	if company == "" {
		company = input.Document.Kind
	}

	m.AddRow(12,
		text.NewCol(6, company, props.Text{Style: fontstyle.Bold, Size: 16}),
		text.NewCol(6, strings.ToUpper(input.Document.Kind)+" "+input.Document.Number,
			props.Text{Style: fontstyle.Bold, Size: 14, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(6, input.Customer.Name, props.Text{Size: 10}),
		text.NewCol(6, "Status: "+input.Document.Status, props.Text{Size: 10, Align: align.Right}),
	)

	issued := "-"
	if input.Document.IssuedAt != nil {
		issued = input.Document.IssuedAt.UTC().Format("2006-01-02")
	}
	meta := "Issued: " + issued
	if input.Document.DueAt != nil {
		meta += "   Due: " + input.Document.DueAt.UTC().Format("2006-01-02")
	}
	m.AddRow(6,
		text.NewCol(6, input.Customer.Email, props.Text{Size: 9}),
		text.NewCol(6, meta, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(4, line.NewCol(12))
}

func (g *Generator) addItemTable(m core.Maroto, input render.RenderInput) {
	header := props.Text{Style: fontstyle.Bold, Size: 9}
	m.AddRow(8,
		text.NewCol(5, "Description", header),
		text.NewCol(2, "Qty", withAlign(header, align.Right)),
		text.NewCol(2, "Unit Price", withAlign(header, align.Right)),
		text.NewCol(1, "Tax", withAlign(header, align.Right)),
		text.NewCol(2, "Amount", withAlign(header, align.Right)),
	)
	cell := props.Text{Size: 9}
	for _, item := range input.Items {
		m.AddRow(7,
			text.NewCol(5, item.Description, cell),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), withAlign(cell, align.Right)),
			text.NewCol(2, money(item.UnitPrice, input.Document.Currency), withAlign(cell, align.Right)),
			text.NewCol(1, item.TaxRate.String()+"%", withAlign(cell, align.Right)),
			text.NewCol(2, money(item.Amount, input.Document.Currency), withAlign(cell, align.Right)),
		)
	}
	m.AddRow(4, line.NewCol(12))
}

func (g *Generator) addTotals(m core.Maroto, input render.RenderInput) {
	label := props.Text{Size: 10, Align: align.Right}
	value := props.Text{Size: 10, Align: align.Right}
	grand := props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}

	m.AddRows(
		row.New(6).Add(
			col.New(8),
			text.NewCol(2, "Subtotal", label),
			text.NewCol(2, money(input.Document.Subtotal, input.Document.Currency), value),
		),
		row.New(6).Add(
			col.New(8),
			text.NewCol(2, fmt.Sprintf("Tax (%s%%)", input.Document.TaxRate.String()), label),
			text.NewCol(2, money(input.Document.Tax, input.Document.Currency), value),
		),
		row.New(8).Add(
			col.New(8),
			text.NewCol(2, "Total", grand),
			text.NewCol(2, money(input.Document.Total, input.Document.Currency), grand),
		),
	)
}

func (g *Generator) addFooter(m core.Maroto, input render.RenderInput) {
	if notes := strings.TrimSpace(input.Document.Notes); notes != "" {
		m.AddRow(6, text.NewCol(12, "Notes", props.Text{Style: fontstyle.Bold, Size: 9}))
		for _, notesLine := range strings.Split(notes, "\n") {
			m.AddRow(5, text.NewCol(12, notesLine, props.Text{Size: 9}))
		}
	}
	if input.Template.FooterNotes != "" {
		m.AddRow(6, text.NewCol(12, input.Template.FooterNotes, props.Text{Size: 8}))
	}
	if input.Template.FooterLegal != "" {
		m.AddRow(5, text.NewCol(12, input.Template.FooterLegal, props.Text{Size: 8}))
	}
}

func withAlign(base props.Text, a align.Type) props.Text {
	base.Align = a
	return base
}

func money(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + amount.StringFixed(2)
}
