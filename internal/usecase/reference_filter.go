package usecase

import (
	"sort"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/util"
)

// Reference filter drop reasons.
const (
	DropDomicile         = "domicile"
	DropForeignCurrency  = "foreign_currency"
	DropVariableCoupon   = "variable_coupon"
	DropConvertible      = "convertible"
	DropAssetBacked      = "asset_backed"
	DropRule144A         = "rule_144a"
	DropPrivatePlacement = "private_placement"
	DropBondType         = "bond_type"
	DropFrequency        = "frequency"
	DropOfferingDate     = "offering_date"
	DropDateOrder        = "date_order"
)

// DefaultExcludedBondTypes lists government, agency, structured and
// foreign-program instrument types left out of the corporate universe.
func DefaultExcludedBondTypes() []string {
	return []string{
		"TXMU", "CCOV", "CPAS", "MBS", "FGOV", "USTC", "USBD", "USNT", "USSP",
		"USSI", "FGS", "USBL", "ABS", "O30Y", "O10Y", "O3Y", "O5Y", "O4W",
		"CCUR", "O13W", "O52W", "O26W", "ADEB", "AMTN", "ASPZ", "EMTN", "ADNT",
		"ARNT",
	}
}

// DefaultExcludedFrequencies lists coupon frequency codes with no usable schedule.
func DefaultExcludedFrequencies() []int {
	return []int{-1, 13, 14, 15, 16}
}

type ReferenceFilterConfig struct {
	Domicile            string
	ExcludedBondTypes   []string
	ExcludedFrequencies []int
}

// ReferenceFilter keeps plain US-dollar corporate debt.
type ReferenceFilter struct {
	domicile  string
	bondTypes map[string]struct{}
	freqs     map[int]struct{}
}

func NewReferenceFilter(cfg ReferenceFilterConfig) *ReferenceFilter {
	if cfg.Domicile == "" {
		cfg.Domicile = "USA"
	}
	if cfg.ExcludedBondTypes == nil {
		cfg.ExcludedBondTypes = DefaultExcludedBondTypes()
	}
	if cfg.ExcludedFrequencies == nil {
		cfg.ExcludedFrequencies = DefaultExcludedFrequencies()
	}
	f := &ReferenceFilter{
		domicile:  util.NormalizeCode(cfg.Domicile),
		bondTypes: make(map[string]struct{}, len(cfg.ExcludedBondTypes)),
		freqs:     make(map[int]struct{}, len(cfg.ExcludedFrequencies)),
	}
	for _, t := range cfg.ExcludedBondTypes {
		f.bondTypes[util.NormalizeCode(t)] = struct{}{}
	}
	for _, q := range cfg.ExcludedFrequencies {
		f.freqs[q] = struct{}{}
	}
	return f
}

// Check returns the first rule the issue fails, or "" when it is eligible.
func (f *ReferenceFilter) Check(b models.BondIssue) string {
	switch {
	case util.NormalizeCode(b.CountryDomicile) != f.domicile:
		return DropDomicile
	case util.NormalizeCode(b.ForeignCurrency) != "N":
		return DropForeignCurrency
	case util.NormalizeCode(b.CouponType) == "V":
		return DropVariableCoupon
	case util.NormalizeCode(b.Convertible) != "N":
		return DropConvertible
	case util.NormalizeCode(b.AssetBacked) != "N":
		return DropAssetBacked
	case util.NormalizeCode(b.Rule144A) != "N":
		return DropRule144A
	case util.NormalizeCode(b.PrivatePlacement) != "N":
		return DropPrivatePlacement
	}
	if _, ok := f.bondTypes[util.NormalizeCode(b.BondType)]; ok {
		return DropBondType
	}
	if !b.HasInterestFrequency {
		return DropFrequency
	}
	if _, ok := f.freqs[b.InterestFrequency]; ok {
		return DropFrequency
	}
	if b.OfferingDate.IsZero() {
		return DropOfferingDate
	}
	dated := b.EffectiveDatedDate()
	if b.Maturity.IsZero() || !b.Maturity.After(dated) || dated.Before(b.OfferingDate) {
		return DropDateOrder
	}
	return ""
}

// Filter returns the eligible issues sorted by identifier, and the count of
// rejected issues per reason.
func (f *ReferenceFilter) Filter(issues []models.BondIssue) ([]models.BondIssue, map[string]int) {
	dropped := make(map[string]int)
	kept := make([]models.BondIssue, 0, len(issues))
	seen := make(map[string]struct{}, len(issues))
	for _, b := range issues {
		if reason := f.Check(b); reason != "" {
			dropped[reason]++
			continue
		}
		if _, dup := seen[b.Cusip]; dup {
			dropped[DropDuplicate]++
			continue
		}
		seen[b.Cusip] = struct{}{}
		kept = append(kept, b)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Cusip < kept[j].Cusip })
	return kept, dropped
}
