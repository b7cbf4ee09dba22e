package models

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/config"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

// SearchConfig holds the empirically tuned scoring knobs. Exact SKU/name
// hits are near-certain user intent and must outrank loose fuzzy matches on
// unrelated fields, hence the boosts; the numeric probe exists because users
// frequently search by price or dimension rather than name.
type SearchConfig struct {
	SkuBoost         int
	NameBoost        int
	NumericBonus     int
	MinScore         int
	MaxScore         int
	NumericTolerance decimal.Decimal // relative
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		SkuBoost:         20,
		NameBoost:        15,
		NumericBonus:     25,
		MinScore:         30,
		MaxScore:         150,
		NumericTolerance: decimal.NewFromFloat(0.001),
	}
}

type SearchResult struct {
	Item  *InventoryItem `json:"item"`
	Score int            `json:"score"`
}

// SearchItems scores every item against the query and returns the ranked
// matches. An empty query or an empty collection yields an empty result set.
// Ranking is deterministic: score descending, then name ascending.
func SearchItems(query string, items []*InventoryItem, limit int, cfg SearchConfig) []SearchResult {
	normalized := utils.NormalizeSpace(query)
	if normalized == "" || len(items) == 0 {
		return []SearchResult{}
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}

	numericProbe, isNumeric := utils.ParseNumericQuery(normalized)

	results := make([]SearchResult, 0, len(items))
	for _, item := range items {
		score := scoreItem(normalized, numericProbe, isNumeric, item, cfg)
		if score < cfg.MinScore {
			continue
		}
		results = append(results, SearchResult{Item: item, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.Name < results[j].Item.Name
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func scoreItem(query string, numericProbe decimal.Decimal, isNumeric bool, item *InventoryItem, cfg SearchConfig) int {
	blobScore := utils.PartialRatio(query, item.SearchBlob)
	if tokenScore := utils.TokenSetRatio(query, item.SearchBlob); tokenScore > blobScore {
		blobScore = tokenScore
	}

	score := blobScore

	fields := item.searchFields()
	if strings.HasPrefix(fields["sku"], query) {
		score += cfg.SkuBoost
	}
	if strings.HasPrefix(fields["name"], query) {
		score += cfg.NameBoost
	}

	if isNumeric && matchesNumeric(numericProbe, item, cfg.NumericTolerance) {
		score += cfg.NumericBonus
	}

	if score > cfg.MaxScore {
		score = cfg.MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

// matchesNumeric checks the probe against price and dimensions within a
// small relative tolerance, so "100" finds a 100.00 price.
func matchesNumeric(probe decimal.Decimal, item *InventoryItem, tolerance decimal.Decimal) bool {
	for _, candidate := range []decimal.Decimal{item.BasePrice, item.SizeMm, item.SizeInch} {
		if candidate.IsZero() && probe.IsZero() {
			return true
		}
		if candidate.IsZero() {
			continue
		}
		diff := candidate.Sub(probe).Abs()
		if diff.LessThanOrEqual(candidate.Abs().Mul(tolerance)) {
			return true
		}
	}
	return false
}
