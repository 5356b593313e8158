package models

import "time"

// NoTime marks a missing execution or report time.
const NoTime time.Duration = -1

// Era is the message-protocol generation a trade report belongs to.
type Era int

const (
	PreCutover Era = iota
	PostCutover
)

func (e Era) String() string {
	if e == PostCutover {
		return "post"
	}
	return "pre"
}

// TradeMessage is one raw report from the trade feed.
type TradeMessage struct {
	Cusip         string
	BondSym       string
	ExecDate      time.Time
	ExecTime      time.Duration // since midnight, NoTime when missing
	ReportDate    time.Time
	ReportTime    time.Duration
	MsgSeq        int64
	OrigMsgSeq    int64 // 0 when absent
	Status        string
	AsOf          string
	Side          string
	Contra        string
	SettleDays    string
	WhenIssued    string
	LockedIn      string
	SaleCondition string
	Volume        float64
	Price         float64
	Yield         float64
}

// Timestamp combines execution date and time.
func (m TradeMessage) Timestamp() time.Time {
	if m.ExecTime == NoTime {
		return m.ExecDate
	}
	return m.ExecDate.Add(m.ExecTime)
}

// CleanTradeEvent is a surviving genuine trade.
type CleanTradeEvent struct {
	Cusip      string
	ExecDate   time.Time
	ExecTime   time.Duration
	ReportDate time.Time
	ReportTime time.Duration
	MsgSeq     int64
	Price      float64
	Volume     float64
	Side       string
	Contra     string
	Era        Era
	Corrected  bool // values come from a correction message
}

// EventFromMessage promotes a surviving message.
func EventFromMessage(m TradeMessage, era Era) CleanTradeEvent {
	return CleanTradeEvent{
		Cusip:      m.Cusip,
		ExecDate:   m.ExecDate,
		ExecTime:   m.ExecTime,
		ReportDate: m.ReportDate,
		ReportTime: m.ReportTime,
		MsgSeq:     m.MsgSeq,
		Price:      m.Price,
		Volume:     m.Volume,
		Side:       m.Side,
		Contra:     m.Contra,
		Era:        era,
	}
}

// ReportLess orders by report sequence: execution time, report date,
// report time, then message sequence.
func ReportLess(a, b CleanTradeEvent) bool {
	if !a.ExecDate.Equal(b.ExecDate) {
		return a.ExecDate.Before(b.ExecDate)
	}
	if a.ExecTime != b.ExecTime {
		return a.ExecTime < b.ExecTime
	}
	if !a.ReportDate.Equal(b.ReportDate) {
		return a.ReportDate.Before(b.ReportDate)
	}
	if a.ReportTime != b.ReportTime {
		return a.ReportTime < b.ReportTime
	}
	if a.MsgSeq != b.MsgSeq {
		return a.MsgSeq < b.MsgSeq
	}
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Volume < b.Volume
}
