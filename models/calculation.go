package models

import (
	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

var decimalOneHundred = decimal.NewFromInt(100)

// LineItem is one cart entry: a frozen snapshot of the referenced item with
// its own rate/discount/tax overrides. Amount fields are derived by
// ComputeInvoiceTotals and never stored independently of their inputs.
type LineItem struct {
	ItemId       string          `json:"item_id"`
	Sku          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`

	LineGross    decimal.Decimal `json:"line_gross"`
	LineDiscount decimal.Decimal `json:"line_discount"`
	LineTax      decimal.Decimal `json:"line_tax"`
	Amount       decimal.Decimal `json:"amount"`
}

type InvoiceTotals struct {
	Subtotal             decimal.Decimal `json:"subtotal"`
	LineDiscountTotal    decimal.Decimal `json:"line_discount_total"`
	GlobalDiscountAmount decimal.Decimal `json:"global_discount_amount"`
	TotalDiscount        decimal.Decimal `json:"total_discount"`
	LineTaxTotal         decimal.Decimal `json:"line_tax_total"`
	GlobalTaxAmount      decimal.Decimal `json:"global_tax_amount"`
	TotalTax             decimal.Decimal `json:"total_tax"`
	GrandTotal           decimal.Decimal `json:"grand_total"`
}

// roundMoney rounds to 2 places, half up. Monetary inputs are validated
// non-negative, so decimal's round-half-away-from-zero is exactly half-up.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func (line *LineItem) validate() error {
	if line.Quantity.IsNegative() {
		return utils.NewValidationError("quantity", "cannot be negative")
	}
	if line.Rate.IsNegative() {
		return utils.NewValidationError("rate", "cannot be negative")
	}
	if err := validateRate("discount_rate", line.DiscountRate); err != nil {
		return err
	}
	if err := validateRate("tax_rate", line.TaxRate); err != nil {
		return err
	}
	return nil
}

// compute fills the derived amounts, rounding at each monetary point.
func (line *LineItem) compute() {
	line.LineGross = line.Quantity.Mul(line.Rate)
	line.LineDiscount = roundMoney(line.LineGross.Mul(line.DiscountRate).Div(decimalOneHundred))
	taxable := line.LineGross.Sub(line.LineDiscount)
	line.LineTax = roundMoney(taxable.Mul(line.TaxRate).Div(decimalOneHundred))
	line.Amount = taxable.Add(line.LineTax)
}

// ComputeInvoiceTotals is the calculation engine: a pure function over the
// lines and the global adjustment rates. Recomputing from the same inputs
// always reproduces the same totals exactly.
//
// Global discount applies to the post-line-discount subtotal; global tax
// applies to the amount left after all discounts.
func ComputeInvoiceTotals(lines []LineItem, globalDiscountRate decimal.Decimal, globalTaxRate decimal.Decimal) ([]LineItem, *InvoiceTotals, error) {
	if err := validateRate("global_discount_rate", globalDiscountRate); err != nil {
		return nil, nil, err
	}
	if err := validateRate("global_tax_rate", globalTaxRate); err != nil {
		return nil, nil, err
	}

	computed := make([]LineItem, len(lines))
	subtotal := decimal.Zero
	lineDiscountTotal := decimal.Zero
	lineTaxTotal := decimal.Zero

	for i, line := range lines {
		if err := line.validate(); err != nil {
			return nil, nil, err
		}
		line.compute()
		computed[i] = line

		subtotal = subtotal.Add(line.LineGross)
		lineDiscountTotal = lineDiscountTotal.Add(line.LineDiscount)
		lineTaxTotal = lineTaxTotal.Add(line.LineTax)
	}

	globalDiscountAmount := roundMoney(subtotal.Sub(lineDiscountTotal).Mul(globalDiscountRate).Div(decimalOneHundred))
	totalDiscount := lineDiscountTotal.Add(globalDiscountAmount)

	taxableBase := subtotal.Sub(totalDiscount)
	globalTaxAmount := roundMoney(taxableBase.Mul(globalTaxRate).Div(decimalOneHundred))
	totalTax := lineTaxTotal.Add(globalTaxAmount)

	totals := &InvoiceTotals{
		Subtotal:             subtotal,
		LineDiscountTotal:    lineDiscountTotal,
		GlobalDiscountAmount: globalDiscountAmount,
		TotalDiscount:        totalDiscount,
		LineTaxTotal:         lineTaxTotal,
		GlobalTaxAmount:      globalTaxAmount,
		TotalTax:             totalTax,
		GrandTotal:           subtotal.Sub(totalDiscount).Add(totalTax),
	}
	return computed, totals, nil
}
