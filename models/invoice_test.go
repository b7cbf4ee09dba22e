package models

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/storage"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

func seedItem(t *testing.T, store *storage.Store) *InventoryItem {
	t.Helper()
	taxRate := dec("5")
	discountRate := dec("10")
	item, err := UpsertInventoryItem(context.Background(), store, &NewInventoryItem{
		Sku:          "A100",
		Name:         "Steel Pipe",
		BasePrice:    dec("50.00"),
		TaxRate:      &taxRate,
		DiscountRate: &discountRate,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func TestSaveInvoice_SnapshotsItemDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	zero := decimal.Zero
	invoice, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName:  "Jordan",
		GlobalTaxRate: &zero,
		LineItems:     []NewLineItem{{ItemId: item.ItemId, Quantity: dec("3")}},
	})
	if err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	line := invoice.LineItems[0]
	if line.Sku != "A100" || line.Name != "Steel Pipe" {
		t.Fatalf("line must snapshot the item: %+v", line)
	}
	if !line.Rate.Equal(dec("50.00")) || !line.DiscountRate.Equal(dec("10")) || !line.TaxRate.Equal(dec("5")) {
		t.Fatalf("line must default rate/discount/tax from the item: %+v", line)
	}
	if !invoice.GrandTotal.Equal(dec("141.75")) {
		t.Fatalf("expected grand total 141.75, got %s", invoice.GrandTotal)
	}
	if invoice.InvoiceId == "" || invoice.Date.IsZero() {
		t.Fatalf("expected id and date stamped: %+v", invoice)
	}
}

func TestSaveInvoice_LineOverridesBeatItemDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	zero := decimal.Zero
	rate := dec("40")
	invoice, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName:  "Jordan",
		GlobalTaxRate: &zero,
		LineItems: []NewLineItem{{
			ItemId:       item.ItemId,
			Quantity:     dec("2"),
			Rate:         &rate,
			DiscountRate: &zero,
			TaxRate:      &zero,
		}},
	})
	if err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}
	line := invoice.LineItems[0]
	if !line.Rate.Equal(rate) || !line.DiscountRate.IsZero() || !line.TaxRate.IsZero() {
		t.Fatalf("overrides must win over item defaults: %+v", line)
	}
	if !invoice.GrandTotal.Equal(dec("80")) {
		t.Fatalf("expected grand total 80, got %s", invoice.GrandTotal)
	}
}

func TestSaveInvoice_FrozenAgainstLaterItemEdits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	zero := decimal.Zero
	invoice, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName:  "Jordan",
		GlobalTaxRate: &zero,
		LineItems:     []NewLineItem{{ItemId: item.ItemId, Quantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	if _, err := UpsertInventoryItem(ctx, store, &NewInventoryItem{
		ItemId:    item.ItemId,
		Sku:       "A100",
		Name:      "Renamed Pipe",
		BasePrice: dec("999"),
	}); err != nil {
		t.Fatalf("edit item: %v", err)
	}

	reloaded, err := GetInvoice(ctx, store, invoice.InvoiceId)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	line := reloaded.LineItems[0]
	if line.Name != "Steel Pipe" || !line.Rate.Equal(dec("50.00")) {
		t.Fatalf("saved invoice must not follow later item edits: %+v", line)
	}
}

func TestSavedInvoiceTotalsRecompute(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	discount := dec("3")
	tax := dec("6.5")
	invoice, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName:       "Jordan",
		GlobalDiscountRate: discount,
		GlobalTaxRate:      &tax,
		LineItems: []NewLineItem{
			{ItemId: item.ItemId, Quantity: dec("3")},
			{ItemId: item.ItemId, Quantity: dec("7")},
		},
	})
	if err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	reloaded, err := GetInvoice(ctx, store, invoice.InvoiceId)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	_, totals, err := ComputeInvoiceTotals(reloaded.LineItems, reloaded.GlobalDiscountRate, reloaded.GlobalTaxRate)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !totals.Subtotal.Equal(reloaded.Subtotal) ||
		!totals.TotalDiscount.Equal(reloaded.TotalDiscount) ||
		!totals.TotalTax.Equal(reloaded.TotalTax) ||
		!totals.GrandTotal.Equal(reloaded.GrandTotal) {
		t.Fatalf("recomputing stored inputs must reproduce stored totals: %+v vs %+v", totals, reloaded)
	}
}

func TestSaveInvoice_NumberSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	zero := decimal.Zero
	for i := 1; i <= 3; i++ {
		invoice, err := SaveInvoice(ctx, store, &NewInvoice{
			CustomerName:  "Jordan",
			GlobalTaxRate: &zero,
			LineItems:     []NewLineItem{{ItemId: item.ItemId, Quantity: dec("1")}},
		})
		if err != nil {
			t.Fatalf("SaveInvoice %d: %v", i, err)
		}
		expected := fmt.Sprintf("INV-%04d", i)
		if invoice.InvoiceNumber != expected {
			t.Fatalf("expected %s, got %s", expected, invoice.InvoiceNumber)
		}
	}
}

func TestSaveInvoice_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	if _, err := SaveInvoice(ctx, store, &NewInvoice{CustomerName: "Jordan"}); !utils.IsValidationError(err) {
		t.Fatalf("empty cart must be rejected, got %v", err)
	}
	if _, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName: "  ",
		LineItems:    []NewLineItem{{ItemId: item.ItemId, Quantity: dec("1")}},
	}); !utils.IsValidationError(err) {
		t.Fatalf("blank customer name must be rejected, got %v", err)
	}
	if _, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName:  "Jordan",
		CustomerEmail: "not-an-email",
		LineItems:     []NewLineItem{{ItemId: item.ItemId, Quantity: dec("1")}},
	}); !utils.IsValidationError(err) {
		t.Fatalf("malformed email must be rejected, got %v", err)
	}
	if _, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName: "Jordan",
		LineItems:    []NewLineItem{{ItemId: "missing", Quantity: dec("1")}},
	}); err != utils.ErrorRecordNotFound {
		t.Fatalf("unknown item reference must surface not-found, got %v", err)
	}
}

func TestSaveInvoice_GlobalTaxDefaultsFromSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedItem(t, store)

	globalTax := dec("7")
	if _, err := store.UpdateSettings(&storage.UpdateSettingsInput{DefaultTaxRate: &globalTax}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	invoice, err := SaveInvoice(ctx, store, &NewInvoice{
		CustomerName: "Jordan",
		LineItems:    []NewLineItem{{ItemId: item.ItemId, Quantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}
	if !invoice.GlobalTaxRate.Equal(globalTax) {
		t.Fatalf("expected settings default global tax %s, got %s", globalTax, invoice.GlobalTaxRate)
	}
}
