package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/config"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/models"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/storage"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

// respondError maps the error taxonomy onto status codes. Messages name the
// failed operation and the kind of failure, never filesystem internals.
func respondError(c *gin.Context, operation string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{
			"operation": operation,
			"error":     "validation failed",
			"fields":    utils.ProcessValidationErrors(err),
		})
		return
	}

	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"operation": operation, "error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"operation": operation, "error": "record not found"})
	default:
		var corruption *utils.StorageCorruptionError
		if errors.As(err, &corruption) {
			c.JSON(http.StatusInternalServerError, gin.H{"operation": operation, "error": corruption.Error()})
			return
		}
		config.LogError(config.GetLogger(), "handlers", operation, "unhandled", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"operation": operation, "error": "internal error"})
	}
}

func listItemsHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.ListInventoryItems(c.Request.Context(), store)
		if err != nil {
			respondError(c, "listItems", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func upsertItemHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInventoryItem
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "upsertItem", err)
			return
		}
		item, err := models.UpsertInventoryItem(c.Request.Context(), store, &input)
		if err != nil {
			respondError(c, "upsertItem", err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func deleteItemHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.DeleteInventoryItem(c.Request.Context(), store, c.Param("id")); err != nil {
			respondError(c, "deleteItem", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func searchItemsHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		limit := config.SearchLimit
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		items, err := models.ListInventoryItems(c.Request.Context(), store)
		if err != nil {
			respondError(c, "searchItems", err)
			return
		}
		results := models.SearchItems(query, items, limit, models.DefaultSearchConfig())
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

type computeTotalsRequest struct {
	LineItems          []models.LineItem `json:"line_items" binding:"required"`
	GlobalDiscountRate decimal.Decimal   `json:"global_discount_rate"`
	GlobalTaxRate      decimal.Decimal   `json:"global_tax_rate"`
}

func computeTotalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req computeTotalsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "computeInvoiceTotals", err)
			return
		}
		lines, totals, err := models.ComputeInvoiceTotals(req.LineItems, req.GlobalDiscountRate, req.GlobalTaxRate)
		if err != nil {
			respondError(c, "computeInvoiceTotals", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"line_items": lines, "totals": totals})
	}
}

func saveInvoiceHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "saveInvoice", err)
			return
		}
		invoice, err := models.SaveInvoice(c.Request.Context(), store, &input)
		if err != nil {
			respondError(c, "saveInvoice", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func listInvoicesHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		invoices, err := models.ListInvoices(c.Request.Context(), store)
		if err != nil {
			respondError(c, "listInvoices", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoices": invoices})
	}
}

func getInvoiceHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		invoice, err := models.GetInvoice(c.Request.Context(), store, c.Param("id"))
		if err != nil {
			respondError(c, "getInvoice", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func getSettingsHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Settings())
	}
}

func updateSettingsHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input storage.UpdateSettingsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "updateSettings", err)
			return
		}
		settings, err := store.UpdateSettings(&input)
		if err != nil {
			respondError(c, "updateSettings", err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}
