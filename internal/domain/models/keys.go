package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// NaturalKey identifies a trade report by its business fields. Fields that a
// given join does not use are left zero so one comparable type serves every
// matching rule.
type NaturalKey struct {
	Cusip    string
	ExecDate int64
	ExecTime int64
	Price    int64 // micro units
	Volume   int64 // micro units
	Side     string
	Contra   string
	Seq      int64
	Rank     int
}

// Units scales a price or quantity to exact integer micro units so keys
// compare without float noise. Non-finite values share one sentinel.
func Units(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.MinInt64
	}
	return decimal.NewFromFloat(v).Shift(6).Round(0).IntPart()
}

func dateKey(t time.Time) int64 { return t.Unix() }

// ExecKey is {bond, exec date, exec time, price, volume, side, contra}.
func (m TradeMessage) ExecKey() NaturalKey {
	return NaturalKey{
		Cusip:    m.Cusip,
		ExecDate: dateKey(m.ExecDate),
		ExecTime: int64(m.ExecTime),
		Price:    Units(m.Price),
		Volume:   Units(m.Volume),
		Side:     m.Side,
		Contra:   m.Contra,
	}
}

// SeqKey is ExecKey plus the given sequence number.
func (m TradeMessage) SeqKey(seq int64) NaturalKey {
	k := m.ExecKey()
	k.Seq = seq
	return k
}

// DayKey drops execution time and adds an occurrence rank.
func (m TradeMessage) DayKey(rank int) NaturalKey {
	k := m.ExecKey()
	k.ExecTime = 0
	k.Rank = rank
	return k
}

// RefKey is {bond, exec date, sequence}.
func (m TradeMessage) RefKey(seq int64) NaturalKey {
	return NaturalKey{Cusip: m.Cusip, ExecDate: dateKey(m.ExecDate), Seq: seq}
}

// PriceVolumeKey is {bond, price, volume}.
func (m TradeMessage) PriceVolumeKey() NaturalKey {
	return NaturalKey{Cusip: m.Cusip, Price: Units(m.Price), Volume: Units(m.Volume)}
}

// ChainKey groups correction messages sharing a timestamp.
type ChainKey struct {
	Cusip    string
	BondSym  string
	ExecDate int64
	ExecTime int64
}

func (m TradeMessage) ChainKey() ChainKey {
	return ChainKey{Cusip: m.Cusip, BondSym: m.BondSym, ExecDate: dateKey(m.ExecDate), ExecTime: int64(m.ExecTime)}
}
