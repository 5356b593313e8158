package usecase

import (
	"math"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/util"
)

var allowedSettleDays = map[string]bool{"": true, "000": true, "001": true, "002": true}

// Cancel and reversal messages only point at a trade; their quote may be blank.
var quoteOptional = map[string]bool{"C": true, "H": true, "X": true, "Y": true}

var allowedSaleConditions = map[string]bool{"": true, "@": true}

// dedupKey identifies byte-identical reports.
type dedupKey struct {
	exec       models.NaturalKey
	orig       int64
	status     string
	asof       string
	reportDate int64
	reportTime int64
	sym        string
}

// prefilter drops records that can never be genuine trades and exact
// duplicates. Codes are normalised on the returned copies.
func (r *Reconciler) prefilter(msgs []models.TradeMessage, drops dropCounter) []models.TradeMessage {
	out := make([]models.TradeMessage, 0, len(msgs))
	seen := make(map[dedupKey]struct{}, len(msgs))

	for _, m := range msgs {
		m.Status = util.NormalizeCode(m.Status)
		m.AsOf = util.NormalizeCode(m.AsOf)
		m.Side = util.NormalizeCode(m.Side)
		m.Contra = util.NormalizeCode(m.Contra)
		m.SettleDays = normalizeSettleDays(m.SettleDays)
		m.WhenIssued = util.NormalizeCode(m.WhenIssued)
		m.LockedIn = util.NormalizeCode(m.LockedIn)
		m.SaleCondition = util.NormalizeCode(m.SaleCondition)

		if reason := r.defect(m); reason != "" {
			drops.add(reason, 1)
			continue
		}

		k := dedupKey{
			exec:       m.SeqKey(m.MsgSeq),
			orig:       m.OrigMsgSeq,
			status:     m.Status,
			asof:       m.AsOf,
			reportDate: m.ReportDate.Unix(),
			reportTime: int64(m.ReportTime),
			sym:        m.BondSym,
		}
		if _, dup := seen[k]; dup {
			drops.add(DropDuplicate, 1)
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (r *Reconciler) defect(m models.TradeMessage) string {
	switch {
	case m.ExecDate.IsZero():
		return DropMissingExecDate
	case m.ExecTime == models.NoTime || m.ExecTime < 0:
		return DropMissingExecTime
	case !quoteOptional[m.Status] && (math.IsNaN(m.Price) || math.IsInf(m.Price, 0) || m.Price <= 0):
		return DropBadPrice
	case !quoteOptional[m.Status] && (math.IsNaN(m.Volume) || math.IsInf(m.Volume, 0) || m.Volume <= 0):
		return DropBadVolume
	case !allowedSettleDays[m.SettleDays]:
		return DropSettlementDays
	case m.WhenIssued == "Y":
		return DropWhenIssued
	case m.LockedIn == "Y":
		return DropLockedIn
	case !allowedSaleConditions[m.SaleCondition]:
		return DropSaleCondition
	case r.cfg.SizePriceFilter && (m.Volume < r.cfg.MinVolume || m.Price <= r.cfg.MinPrice || m.Price >= r.cfg.MaxPrice):
		return DropSizePrice
	}
	return ""
}

// normalizeSettleDays pads numeric codes to three digits.
func normalizeSettleDays(s string) string {
	s = util.NormalizeCode(s)
	if s == "" {
		return s
	}
	n := util.ParseIntDefault(s, -1)
	if n < 0 || n > 999 {
		return s
	}
	return string([]byte{byte('0' + n/100), byte('0' + n/10%10), byte('0' + n%10)})
}
