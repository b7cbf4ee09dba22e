package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

type StorageMode string

const (
	// StorageModeTable persists each collection as a relational table in a
	// local database file.
	StorageModeTable StorageMode = "table"
	// StorageModeJSON persists each collection as a flat JSON file.
	StorageModeJSON StorageMode = "json"
)

const settingsFileName = "settings.json"

type BusinessInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Settings is the durable configuration record. The invoice counters live
// here so numbering survives process restarts.
type Settings struct {
	StorageMode         StorageMode      `json:"storage_mode"`
	DefaultTaxRate      decimal.Decimal  `json:"default_tax_rate"`
	DefaultDiscountRate decimal.Decimal  `json:"default_discount_rate"`
	InvoiceNumberPrefix string           `json:"invoice_number_prefix"`
	InvoiceCounters     map[string]int64 `json:"invoice_counters"`
	Currency            string           `json:"currency"`
	CurrencySymbol      string           `json:"currency_symbol"`
	RoundingMode        string           `json:"rounding_mode"`
	BusinessInfo        BusinessInfo     `json:"business_info"`
}

func DefaultSettings() Settings {
	return Settings{
		StorageMode:         StorageModeTable,
		DefaultTaxRate:      decimal.Zero,
		DefaultDiscountRate: decimal.Zero,
		InvoiceNumberPrefix: "INV",
		InvoiceCounters:     map[string]int64{},
		Currency:            "USD",
		CurrencySymbol:      "$",
		RoundingMode:        "ROUND_HALF_UP",
		BusinessInfo: BusinessInfo{
			Name:    "Your Business Name",
			Address: "123 Business St\nCity, State 12345",
			Phone:   "(555) 123-4567",
			Email:   "contact@business.com",
		},
	}
}

// UpdateSettingsInput applies partial updates; nil fields keep their current
// value. The invoice counters are deliberately not settable from outside so
// issued numbers can never repeat.
type UpdateSettingsInput struct {
	StorageMode         *StorageMode     `json:"storage_mode"`
	DefaultTaxRate      *decimal.Decimal `json:"default_tax_rate"`
	DefaultDiscountRate *decimal.Decimal `json:"default_discount_rate"`
	InvoiceNumberPrefix *string          `json:"invoice_number_prefix"`
	Currency            *string          `json:"currency"`
	CurrencySymbol      *string          `json:"currency_symbol"`
	BusinessInfo        *BusinessInfo    `json:"business_info"`
}

func (input *UpdateSettingsInput) validate() error {
	if input.StorageMode != nil && *input.StorageMode != StorageModeTable && *input.StorageMode != StorageModeJSON {
		return utils.NewValidationError("storage_mode", "must be table or json")
	}
	if input.DefaultTaxRate != nil && !isRate(*input.DefaultTaxRate) {
		return utils.NewValidationError("default_tax_rate", "must be between 0 and 100")
	}
	if input.DefaultDiscountRate != nil && !isRate(*input.DefaultDiscountRate) {
		return utils.NewValidationError("default_discount_rate", "must be between 0 and 100")
	}
	if input.InvoiceNumberPrefix != nil && *input.InvoiceNumberPrefix == "" {
		return utils.NewValidationError("invoice_number_prefix", "is required")
	}
	return nil
}

func isRate(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}

func (s *Store) settingsPath() string {
	return filepath.Join(s.dir, settingsFileName)
}

// loadSettings merges the persisted record over defaults and rewrites the
// file, so missing keys heal themselves after upgrades.
func (s *Store) loadSettings() error {
	settings := DefaultSettings()

	raw, err := os.ReadFile(s.settingsPath())
	switch {
	case err == nil:
		if uerr := json.Unmarshal(raw, &settings); uerr != nil {
			return &utils.StorageCorruptionError{
				Collection: "settings",
				Attempts:   []string{"primary settings record"},
				Err:        uerr,
			}
		}
	case os.IsNotExist(err):
		// fresh data dir
	default:
		return err
	}

	if settings.InvoiceCounters == nil {
		settings.InvoiceCounters = map[string]int64{}
	}
	if settings.StorageMode != StorageModeTable && settings.StorageMode != StorageModeJSON {
		settings.StorageMode = StorageModeTable
	}

	s.settings = settings
	return s.saveSettingsLocked()
}

func (s *Store) saveSettingsLocked() error {
	if err := s.backupFile(s.settingsPath()); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.settingsPath(), raw, 0o644)
}

// Settings returns a copy of the current settings record.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.settingsCopyLocked()
}

// settingsCopyLocked detaches the counters map so callers can never mutate
// the live record. Caller holds s.mu.
func (s *Store) settingsCopyLocked() Settings {
	settings := s.settings
	counters := make(map[string]int64, len(settings.InvoiceCounters))
	for k, v := range settings.InvoiceCounters {
		counters[k] = v
	}
	settings.InvoiceCounters = counters
	return settings
}
