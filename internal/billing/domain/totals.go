package domain

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Totals are the derived financial fields of a billing document. They are
// never editable directly; every structural change to the item list goes
// through ComputeTotals before the document is persisted.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal, tax, and total from the item list and the
// tenant's default tax rate (a percentage, 0-100).
//
// The tax rule: the default rate applies to the whole subtotal. When any
// line carries its own rate, tax is instead summed per line, with lines
// lacking an override falling back to the default rate. An empty item list
// yields all zeros; such documents remain savable.
func ComputeTotals(items []LineItem, defaultRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	perLine := false
	for i := range items {
		items[i].Recompute()
		subtotal = subtotal.Add(items[i].Amount)
		if items[i].TaxRate != nil {
			perLine = true
		}
	}

	var tax decimal.Decimal
	if perLine {
		for i := range items {
			rate := defaultRate
			if items[i].TaxRate != nil {
				rate = *items[i].TaxRate
			}
			tax = tax.Add(taxOn(items[i].Amount, rate))
		}
	} else {
		tax = taxOn(subtotal, defaultRate)
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// taxOn is tax-exclusive: (amount / 100) * rate.
func taxOn(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || amount.IsZero() {
		return decimal.Zero
	}
	return amount.DivRound(oneHundred, 4).Mul(rate)
}

// ValidateTaxRate bounds a document-level tax percentage.
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(oneHundred) {
		return ErrInvalidTaxRate
	}
	return nil
}
