package models

import "time"

// FactorValue is one factor return on one date.
type FactorValue struct {
	Date  time.Time
	Name  string
	Value float64
}

// Factor names.
const (
	FactorMKT = "MKTB"
	FactorDRF = "DRF"
	FactorCRF = "CRF"
	FactorLRF = "LRF"
	FactorREV = "REV"
)
