package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const documentHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.Document.Kind}} {{.Document.Number}}</title>
  <style>
    :root {
      --primary: {{.Template.PrimaryColor}};
      --font: "{{.Template.FontFamily}}";
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: var(--font), "Helvetica Neue", Arial, sans-serif;
      color: #111827;
      background: #ffffff;
    }
    .document {
      max-width: 820px;
      margin: 0 auto;
    }
    .header {
      display: flex;
      justify-content: space-between;
      align-items: flex-start;
      border-bottom: 2px solid var(--primary);
      padding-bottom: 16px;
      margin-bottom: 24px;
    }
    .brand {
      display: flex;
      align-items: center;
      gap: 12px;
    }
    .brand img {
      max-height: 48px;
    }
    .meta {
      text-align: right;
      font-size: 14px;
    }
    .meta .label {
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
    }
    .section {
      margin-bottom: 24px;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
    }
    th, td {
      padding: 10px;
      border-bottom: 1px solid #e5e7eb;
      text-align: left;
    }
    th {
      text-transform: uppercase;
      font-size: 11px;
      letter-spacing: 0.04em;
      color: #6b7280;
    }
    .totals {
      margin-top: 12px;
      margin-left: auto;
      width: 280px;
      font-size: 14px;
    }
    .totals .row {
      display: flex;
      justify-content: space-between;
      padding: 4px 0;
    }
    .totals .grand {
      border-top: 1px solid #e5e7eb;
      padding-top: 8px;
      font-size: 16px;
      font-weight: 600;
    }
    .notes {
      white-space: pre-line;
      font-size: 13px;
      color: #374151;
    }
    .footer {
      border-top: 1px solid #e5e7eb;
      padding-top: 16px;
      font-size: 12px;
      color: #6b7280;
    }
  </style>
</head>
<body>
  <div class="document">
    <div class="header">
      <div class="brand">
        {{if .Template.LogoURL}}
        <img src="{{.Template.LogoURL}}" alt="Company logo" />
        {{end}}
        <div>
          <div><strong>{{.Template.CompanyName}}</strong></div>
          <div>{{.Customer.Name}}</div>
          <div>{{.Customer.Email}}</div>
        </div>
      </div>
      <div class="meta">
        <div class="label">{{.Document.Kind}}</div>
        <div><strong>{{.Document.Number}}</strong></div>
        <div>Status: {{.Document.Status}}</div>
        <div>Issued: {{formatDate .Document.IssuedAt}}</div>
        {{if .Document.DueAt}}<div>Due: {{formatDate .Document.DueAt}}</div>{{end}}
      </div>
    </div>

    <div class="section">
      <table>
        <thead>
          <tr>
            <th>Description</th>
            <th>Quantity</th>
            <th>Unit Price</th>
            <th>Tax Rate</th>
            <th>Amount</th>
          </tr>
        </thead>
        <tbody>
          {{range .Items}}
          <tr>
            <td>{{.Description}}</td>
            <td>{{.Quantity}}</td>
            <td>{{formatMoney .UnitPrice $.Document.Currency}}</td>
            <td>{{formatRate .TaxRate}}</td>
            <td>{{formatMoney .Amount $.Document.Currency}}</td>
          </tr>
          {{end}}
        </tbody>
      </table>
      <div class="totals">
        <div class="row"><span>Subtotal</span><span>{{formatMoney .Document.Subtotal .Document.Currency}}</span></div>
        <div class="row"><span>Tax ({{formatRate .Document.TaxRate}})</span><span>{{formatMoney .Document.Tax .Document.Currency}}</span></div>
        <div class="row grand"><span>Total</span><span>{{formatMoney .Document.Total .Document.Currency}}</span></div>
      </div>
    </div>

    {{if .Document.Notes}}
    <div class="section notes">{{.Document.Notes}}</div>
    {{end}}

    <div class="footer">
      {{if .Template.FooterNotes}}<div>{{.Template.FooterNotes}}</div>{{end}}
      {{if .Template.FooterLegal}}<div>{{.Template.FooterLegal}}</div>{{end}}
    </div>
  </div>
</body>
</html>
`

var (
	hexColorPattern  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	fontFamilyFilter = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)
)

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney": formatMoney,
		"formatDate":  formatDate,
		"formatRate":  formatRate,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("document").Funcs(funcs).Parse(documentHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	input.Template.PrimaryColor = sanitizeColor(input.Template.PrimaryColor)
	input.Template.FontFamily = sanitizeFont(input.Template.FontFamily)
	if input.Document.Kind == "" {
		input.Document.Kind = "Invoice"
	}
	if input.Template.CompanyName == "" {
		input.Template.CompanyName = input.Document.Kind
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}

func formatDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return "-"
	}
	return value.UTC().Format("2006-01-02")
}

func formatRate(rate decimal.Decimal) string {
	return rate.String() + "%"
}

func sanitizeColor(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "#111827"
	}
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return "#111827"
}

func sanitizeFont(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "Space Grotesk"
	}
	if fontFamilyFilter.MatchString(trimmed) {
		return trimmed
	}
	return "Space Grotesk"
}
