package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/storage"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

// Invoice is append-only once saved: the line items are frozen snapshots and
// the totals are persisted at save time, not recomputed on load.
type Invoice struct {
	InvoiceId          string          `json:"invoice_id"`
	InvoiceNumber      string          `json:"invoice_number"`
	Date               time.Time       `json:"date"`
	CustomerName       string          `json:"customer_name" binding:"required"`
	CustomerAddress    string          `json:"customer_address"`
	CustomerEmail      string          `json:"customer_email"`
	Notes              string          `json:"notes"`
	GlobalDiscountRate decimal.Decimal `json:"global_discount_rate"`
	GlobalTaxRate      decimal.Decimal `json:"global_tax_rate"`
	LineItems          []LineItem      `json:"line_items"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewInvoice struct {
	Date               *time.Time       `json:"date"`
	CustomerName       string           `json:"customer_name" binding:"required"`
	CustomerAddress    string           `json:"customer_address"`
	CustomerEmail      string           `json:"customer_email"`
	Notes              string           `json:"notes"`
	GlobalDiscountRate decimal.Decimal  `json:"global_discount_rate"`
	GlobalTaxRate      *decimal.Decimal `json:"global_tax_rate"`
	LineItems          []NewLineItem    `json:"line_items" binding:"required,dive"`
}

// NewLineItem references an inventory item; rate/discount/tax default from
// the item when absent and are independently overridable per line.
type NewLineItem struct {
	ItemId       string           `json:"item_id" binding:"required"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Rate         *decimal.Decimal `json:"rate"`
	DiscountRate *decimal.Decimal `json:"discount_rate"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
}

func (inv *Invoice) GetID() string {
	return inv.InvoiceId
}

func (inv *Invoice) SetID(id string) {
	inv.InvoiceId = id
}

func (inv *Invoice) GetCreatedAt() time.Time {
	return inv.CreatedAt
}

func (inv *Invoice) SetCreatedAt(t time.Time) {
	inv.CreatedAt = t
}

func (inv *Invoice) SetUpdatedAt(t time.Time) {
	inv.UpdatedAt = t
}

func (inv *Invoice) Validate() error {
	if strings.TrimSpace(inv.CustomerName) == "" {
		return utils.NewValidationError("customer_name", "is required")
	}
	if inv.CustomerEmail != "" && !utils.IsValidEmail(inv.CustomerEmail) {
		return utils.NewValidationError("customer_email", "is not a valid email")
	}
	return nil
}

// resolveLineItems snapshots each referenced item into a frozen line,
// filling rate/discount/tax defaults from the item.
func resolveLineItems(ctx context.Context, store *storage.Store, inputs []NewLineItem) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(inputs))
	for _, input := range inputs {
		item, err := GetInventoryItem(ctx, store, input.ItemId)
		if err != nil {
			return nil, err
		}

		line := LineItem{
			ItemId:       item.ItemId,
			Sku:          item.Sku,
			Name:         item.Name,
			Quantity:     input.Quantity,
			Rate:         item.BasePrice,
			DiscountRate: item.DiscountRate,
			TaxRate:      item.TaxRate,
		}
		if input.Rate != nil {
			line.Rate = *input.Rate
		}
		if input.DiscountRate != nil {
			line.DiscountRate = *input.DiscountRate
		}
		if input.TaxRate != nil {
			line.TaxRate = *input.TaxRate
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SaveInvoice resolves the cart against inventory, computes the totals,
// assigns the next invoice number and persists the frozen result. The number
// is issued before the invoice write, so a failed write still consumes it
// and no number is ever reused.
func SaveInvoice(ctx context.Context, store *storage.Store, input *NewInvoice) (*Invoice, error) {
	if len(input.LineItems) == 0 {
		return nil, utils.NewValidationError("line_items", "are required")
	}

	settings := store.Settings()
	globalTaxRate := settings.DefaultTaxRate
	if input.GlobalTaxRate != nil {
		globalTaxRate = *input.GlobalTaxRate
	}

	lines, err := resolveLineItems(ctx, store, input.LineItems)
	if err != nil {
		return nil, err
	}

	computed, totals, err := ComputeInvoiceTotals(lines, input.GlobalDiscountRate, globalTaxRate)
	if err != nil {
		return nil, err
	}

	date := time.Now().UTC()
	if input.Date != nil {
		date = *input.Date
	}

	invoice := &Invoice{
		Date:               date,
		CustomerName:       strings.TrimSpace(input.CustomerName),
		CustomerAddress:    input.CustomerAddress,
		CustomerEmail:      strings.TrimSpace(input.CustomerEmail),
		Notes:              input.Notes,
		GlobalDiscountRate: input.GlobalDiscountRate,
		GlobalTaxRate:      globalTaxRate,
		LineItems:          computed,
		Subtotal:           totals.Subtotal,
		TotalDiscount:      totals.TotalDiscount,
		TotalTax:           totals.TotalTax,
		GrandTotal:         totals.GrandTotal,
	}
	if err := invoice.Validate(); err != nil {
		return nil, err
	}

	number, err := store.NextInvoiceNumber()
	if err != nil {
		return nil, err
	}
	invoice.InvoiceNumber = number

	return storage.Upsert[Invoice](store, storage.CollectionInvoices, invoice)
}

func GetInvoice(ctx context.Context, store *storage.Store, id string) (*Invoice, error) {
	return storage.Get[Invoice](store, storage.CollectionInvoices, id)
}

func ListInvoices(ctx context.Context, store *storage.Store) ([]*Invoice, error) {
	return storage.List[Invoice](store, storage.CollectionInvoices)
}

func DeleteInvoice(ctx context.Context, store *storage.Store, id string) error {
	return storage.Delete(store, storage.CollectionInvoices, id)
}
