package models

import "time"

// BondIssue is the static reference record of one security.
type BondIssue struct {
	Cusip                string
	IssuerID             string
	CountryDomicile      string
	ForeignCurrency      string
	CouponType           string
	Coupon               float64 // percent of face
	InterestFrequency    int
	HasInterestFrequency bool
	Convertible          string
	AssetBacked          string
	Rule144A             string
	PrivatePlacement     string
	BondType             string
	DatedDate            time.Time
	OfferingDate         time.Time
	Maturity             time.Time
	DayCountBasis        string
	OfferingAmount       float64
	ParValue             float64
	SICCode              int
}

// EffectiveDatedDate falls back to the offering date when no dated date is on file.
func (b BondIssue) EffectiveDatedDate() time.Time {
	if b.DatedDate.IsZero() {
		return b.OfferingDate
	}
	return b.DatedDate
}
