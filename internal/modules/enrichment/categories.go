package enrichment

import (
	"strings"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
)

// UnknownCategory is reported for holdings the provider could not resolve
const UnknownCategory = "Unknown"

// categoryAssetClass maps fund categories (as published by AMFI-style
// classifications) to asset classes. Keys are lower-case.
var categoryAssetClass = map[string]domain.AssetClass{
	"large cap":                domain.AssetClassEquity,
	"mid cap":                  domain.AssetClassEquity,
	"small cap":                domain.AssetClassEquity,
	"flexi cap":                domain.AssetClassEquity,
	"large & mid cap":          domain.AssetClassEquity,
	"multi cap":                domain.AssetClassEquity,
	"focused":                  domain.AssetClassEquity,
	"elss":                     domain.AssetClassEquity,
	"sectoral":                 domain.AssetClassEquity,
	"thematic":                 domain.AssetClassEquity,
	"index":                    domain.AssetClassEquity,
	"contra":                   domain.AssetClassEquity,
	"value":                    domain.AssetClassEquity,
	"dividend yield":           domain.AssetClassEquity,
	"equity":                   domain.AssetClassEquity,
	"other":                    domain.AssetClassEquity,
	"liquid":                   domain.AssetClassLiquid,
	"overnight":                domain.AssetClassLiquid,
	"ultra short duration":     domain.AssetClassDebt,
	"low duration":             domain.AssetClassDebt,
	"short duration":           domain.AssetClassDebt,
	"medium duration":          domain.AssetClassDebt,
	"medium to long duration":  domain.AssetClassDebt,
	"long duration":            domain.AssetClassDebt,
	"dynamic bond":             domain.AssetClassDebt,
	"corporate bond":           domain.AssetClassDebt,
	"credit risk":              domain.AssetClassDebt,
	"banking & psu":            domain.AssetClassDebt,
	"gilt":                     domain.AssetClassDebt,
	"10 yr gilt":               domain.AssetClassDebt,
	"floater":                  domain.AssetClassDebt,
	"income":                   domain.AssetClassDebt,
	"balanced advantage":       domain.AssetClassHybrid,
	"aggressive hybrid":        domain.AssetClassHybrid,
	"conservative hybrid":      domain.AssetClassHybrid,
	"dynamic asset allocation": domain.AssetClassHybrid,
	"multi asset allocation":   domain.AssetClassHybrid,
	"multi asset":              domain.AssetClassHybrid,
	"equity savings":           domain.AssetClassHybrid,
	"arbitrage":                domain.AssetClassHybrid,
	"gold":                     domain.AssetClassGold,
	"gold etf":                 domain.AssetClassGold,
	"silver":                   domain.AssetClassGold,
	"fof - international":      domain.AssetClassInternational,
	"international":            domain.AssetClassInternational,
}

// AssetClassForCategory resolves a fund category to its asset class.
// Unmapped categories return AssetClassUnknown and false.
func AssetClassForCategory(category string) (domain.AssetClass, bool) {
	class, ok := categoryAssetClass[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return domain.AssetClassUnknown, false
	}
	return class, true
}
