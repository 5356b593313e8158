package usecase

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/util"
)

// ErrStructural marks a partition that cannot be processed at all.
var ErrStructural = errors.New("structurally invalid partition")

// ReversalPolicy selects how pre-cutover reversals find their targets.
type ReversalPolicy string

const (
	// ReversalStrictFallback matches on the seven execution fields first and
	// falls back to a day-level key with an occurrence rank.
	ReversalStrictFallback ReversalPolicy = "strict-fallback"
	// ReversalPriceVolume matches on {bond, price, volume} only.
	ReversalPriceVolume ReversalPolicy = "price-volume"
)

// AmbiguityPolicy decides what happens to a cancel or correction whose
// target cannot be identified uniquely.
type AmbiguityPolicy string

const (
	AmbiguityKeep    AmbiguityPolicy = "keep"
	AmbiguityDiscard AmbiguityPolicy = "discard"
)

// DefaultCutover is the date trade-report message semantics changed.
var DefaultCutover = util.Date(2012, time.February, 6)

// ReconcileConfig tunes the reconciler.
type ReconcileConfig struct {
	Cutover         time.Time
	ReversalPolicy  ReversalPolicy
	AmbiguityPolicy AmbiguityPolicy
	// SizePriceFilter keeps only institutional-size trades in a sane price band.
	SizePriceFilter bool
	MinVolume       float64
	MinPrice        float64
	MaxPrice        float64
}

func (c ReconcileConfig) withDefaults() ReconcileConfig {
	if c.Cutover.IsZero() {
		c.Cutover = DefaultCutover
	}
	if c.ReversalPolicy == "" {
		c.ReversalPolicy = ReversalStrictFallback
	}
	if c.AmbiguityPolicy == "" {
		c.AmbiguityPolicy = AmbiguityKeep
	}
	if c.MinVolume == 0 {
		c.MinVolume = 10000
	}
	if c.MinPrice == 0 {
		c.MinPrice = 5
	}
	if c.MaxPrice == 0 {
		c.MaxPrice = 1000
	}
	return c
}

// Drop reasons reported by the reconciler.
const (
	DropMissingExecDate    = "missing_exec_date"
	DropMissingExecTime    = "missing_exec_time"
	DropBadPrice           = "bad_price"
	DropBadVolume          = "bad_volume"
	DropSettlementDays     = "settlement_days"
	DropWhenIssued         = "when_issued"
	DropLockedIn           = "locked_in"
	DropSaleCondition      = "sale_condition"
	DropSizePrice          = "size_price"
	DropDuplicate          = "duplicate"
	DropIgnored            = "ignored"
	DropUnknownStatus      = "unknown_status"
	DropAsOfExcluded       = "asof_excluded"
	DropCancelled          = "cancelled"
	DropCancelMessage      = "cancel_message"
	DropCorrected          = "corrected"
	DropSupersededCorr     = "superseded_correction"
	DropCorrectionOrphan   = "correction_unmatched"
	DropReversed           = "reversed"
	DropReversalMessage    = "reversal_message"
	DropReversalUnmatched  = "reversal_unmatched"
	DropAmbiguousDiscarded = "ambiguous_discarded"
)

// ReconcileResult is the survivor set and the per-reason drop counts.
type ReconcileResult struct {
	Events  []models.CleanTradeEvent
	Dropped map[string]int
}

// Total returns the number of dropped messages.
func (r ReconcileResult) Total() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

type dropCounter map[string]int

func (d dropCounter) add(reason string, n int) {
	if n > 0 {
		d[reason] += n
	}
}

// Reconciler turns raw trade reports into clean trade events.
type Reconciler struct {
	cfg ReconcileConfig
}

func NewReconciler(cfg ReconcileConfig) *Reconciler {
	return &Reconciler{cfg: cfg.withDefaults()}
}

// Reconcile needs the full message history of every bond it is given. The
// survivor set does not depend on input order.
func (r *Reconciler) Reconcile(msgs []models.TradeMessage) (ReconcileResult, error) {
	if err := validatePartition(msgs); err != nil {
		return ReconcileResult{}, err
	}

	drops := dropCounter{}
	kept := r.prefilter(msgs, drops)

	var pre, post []models.TradeMessage
	for _, m := range kept {
		if r.eraOf(m) == models.PostCutover {
			post = append(post, m)
		} else {
			pre = append(pre, m)
		}
	}

	postEvents, crossEra := r.reconcilePost(post, drops)
	preEvents := r.reconcilePre(pre, crossEra, drops)

	events := append(preEvents, postEvents...)
	sort.Slice(events, func(i, j int) bool {
		if events[i].Cusip != events[j].Cusip {
			return events[i].Cusip < events[j].Cusip
		}
		return models.ReportLess(events[i], events[j])
	})
	return ReconcileResult{Events: events, Dropped: drops}, nil
}

// eraOf uses the report date, or the execution date when it is missing.
func (r *Reconciler) eraOf(m models.TradeMessage) models.Era {
	d := m.ReportDate
	if d.IsZero() {
		d = m.ExecDate
	}
	if d.Before(r.cfg.Cutover) {
		return models.PreCutover
	}
	return models.PostCutover
}

// validatePartition rejects input that lacks identifiers or status codes
// altogether. Individual defective records are not errors.
func validatePartition(msgs []models.TradeMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	withStatus := 0
	for i, m := range msgs {
		if m.Cusip == "" {
			return fmt.Errorf("%w: message %d has no bond identifier", ErrStructural, i)
		}
		if m.Status != "" {
			withStatus++
		}
	}
	if withStatus == 0 {
		return fmt.Errorf("%w: no message carries a status code", ErrStructural)
	}
	return nil
}

// msgLess is a total order over distinct messages.
func msgLess(a, b models.TradeMessage) bool {
	switch {
	case a.Cusip != b.Cusip:
		return a.Cusip < b.Cusip
	case !a.ExecDate.Equal(b.ExecDate):
		return a.ExecDate.Before(b.ExecDate)
	case a.ExecTime != b.ExecTime:
		return a.ExecTime < b.ExecTime
	case !a.ReportDate.Equal(b.ReportDate):
		return a.ReportDate.Before(b.ReportDate)
	case a.ReportTime != b.ReportTime:
		return a.ReportTime < b.ReportTime
	case a.MsgSeq != b.MsgSeq:
		return a.MsgSeq < b.MsgSeq
	case a.OrigMsgSeq != b.OrigMsgSeq:
		return a.OrigMsgSeq < b.OrigMsgSeq
	case a.Status != b.Status:
		return a.Status < b.Status
	case a.AsOf != b.AsOf:
		return a.AsOf < b.AsOf
	case a.Price != b.Price:
		return a.Price < b.Price
	case a.Volume != b.Volume:
		return a.Volume < b.Volume
	case a.Side != b.Side:
		return a.Side < b.Side
	case a.Contra != b.Contra:
		return a.Contra < b.Contra
	}
	return a.BondSym < b.BondSym
}

func sortMessages(msgs []models.TradeMessage) {
	sort.Slice(msgs, func(i, j int) bool { return msgLess(msgs[i], msgs[j]) })
}
