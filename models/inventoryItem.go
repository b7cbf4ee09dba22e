package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/storage"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

type InventoryItem struct {
	ItemId       string          `json:"item_id"`
	Sku          string          `json:"sku" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Company      string          `json:"company"`
	SizeMm       decimal.Decimal `json:"size_mm"`
	SizeInch     decimal.Decimal `json:"size_inch"`
	BasePrice    decimal.Decimal `json:"base_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	SearchBlob   string          `json:"search_blob"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type NewInventoryItem struct {
	ItemId       string           `json:"item_id"`
	Sku          string           `json:"sku" binding:"required"`
	Name         string           `json:"name" binding:"required"`
	Company      string           `json:"company"`
	SizeMm       decimal.Decimal  `json:"size_mm"`
	SizeInch     decimal.Decimal  `json:"size_inch"`
	BasePrice    decimal.Decimal  `json:"base_price"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	DiscountRate *decimal.Decimal `json:"discount_rate"`
}

func (item *InventoryItem) GetID() string {
	return item.ItemId
}

func (item *InventoryItem) SetID(id string) {
	item.ItemId = id
}

func (item *InventoryItem) GetCreatedAt() time.Time {
	return item.CreatedAt
}

func (item *InventoryItem) SetCreatedAt(t time.Time) {
	item.CreatedAt = t
}

func (item *InventoryItem) SetUpdatedAt(t time.Time) {
	item.UpdatedAt = t
}

func (item *InventoryItem) Validate() error {
	if strings.TrimSpace(item.Sku) == "" {
		return utils.NewValidationError("sku", "is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return utils.NewValidationError("name", "is required")
	}
	if item.SizeMm.IsNegative() {
		return utils.NewValidationError("size_mm", "cannot be negative")
	}
	if item.SizeInch.IsNegative() {
		return utils.NewValidationError("size_inch", "cannot be negative")
	}
	if item.BasePrice.IsNegative() {
		return utils.NewValidationError("base_price", "cannot be negative")
	}
	if err := validateRate("tax_rate", item.TaxRate); err != nil {
		return err
	}
	if err := validateRate("discount_rate", item.DiscountRate); err != nil {
		return err
	}
	return nil
}

// Reindex rebuilds the search blob from the current field values. The store
// calls this inside every upsert, so the blob can never go stale relative to
// the stored record.
func (item *InventoryItem) Reindex() {
	item.SearchBlob = utils.NormalizeSpace(strings.Join([]string{
		item.Sku,
		item.Name,
		item.Company,
		item.SizeMm.String(),
		item.SizeInch.String(),
		item.BasePrice.String(),
	}, " "))
}

// searchFields is the field map kept alongside the blob: per-field normalized
// text the search engine weights without re-parsing the blob.
func (item *InventoryItem) searchFields() map[string]string {
	return map[string]string{
		"sku":     utils.NormalizeSpace(item.Sku),
		"name":    utils.NormalizeSpace(item.Name),
		"company": utils.NormalizeSpace(item.Company),
	}
}

func validateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError(field, "must be between 0 and 100")
	}
	return nil
}

// UpsertInventoryItem creates or updates an item. Missing tax/discount rates
// default from settings; a SKU already held by another item is rejected.
func UpsertInventoryItem(ctx context.Context, store *storage.Store, input *NewInventoryItem) (*InventoryItem, error) {
	settings := store.Settings()

	taxRate := settings.DefaultTaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}
	discountRate := settings.DefaultDiscountRate
	if input.DiscountRate != nil {
		discountRate = *input.DiscountRate
	}

	item := &InventoryItem{
		ItemId:       input.ItemId,
		Sku:          strings.TrimSpace(input.Sku),
		Name:         strings.TrimSpace(input.Name),
		Company:      strings.TrimSpace(input.Company),
		SizeMm:       input.SizeMm,
		SizeInch:     input.SizeInch,
		BasePrice:    input.BasePrice,
		TaxRate:      taxRate,
		DiscountRate: discountRate,
	}

	if err := validateUniqueSku(store, item); err != nil {
		return nil, err
	}

	return storage.Upsert[InventoryItem](store, storage.CollectionInventory, item)
}

func validateUniqueSku(store *storage.Store, item *InventoryItem) error {
	existing, err := storage.List[InventoryItem](store, storage.CollectionInventory)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ItemId != item.ItemId && strings.EqualFold(other.Sku, item.Sku) {
			return utils.NewValidationError("sku", "duplicate sku")
		}
	}
	return nil
}

func GetInventoryItem(ctx context.Context, store *storage.Store, id string) (*InventoryItem, error) {
	return storage.Get[InventoryItem](store, storage.CollectionInventory, id)
}

func ListInventoryItems(ctx context.Context, store *storage.Store) ([]*InventoryItem, error) {
	return storage.List[InventoryItem](store, storage.CollectionInventory)
}

func DeleteInventoryItem(ctx context.Context, store *storage.Store, id string) error {
	return storage.Delete(store, storage.CollectionInventory, id)
}
