package usecase

import (
	"BondPanel/internal/domain/models"
)

// reconcilePost applies the post-cutover protocol: X/C messages supersede
// the trade carrying the identical eight-field key, and Y messages reverse
// the trade whose sequence number equals their back-reference. Reversals
// that match nothing here but executed before the cutover are returned for
// the pre-cutover matcher.
func (r *Reconciler) reconcilePost(msgs []models.TradeMessage, drops dropCounter) ([]models.CleanTradeEvent, []models.TradeMessage) {
	var trades, reversals []models.TradeMessage
	superseded := make(map[models.NaturalKey]struct{})

	for _, m := range msgs {
		switch m.Status {
		case "T", "R":
			trades = append(trades, m)
		case "X", "C":
			superseded[m.SeqKey(m.MsgSeq)] = struct{}{}
			drops.add(DropCancelMessage, 1)
		case "Y":
			reversals = append(reversals, m)
		default:
			drops.add(DropUnknownStatus, 1)
		}
	}

	live := trades[:0:0]
	for _, t := range trades {
		if _, ok := superseded[t.SeqKey(t.MsgSeq)]; ok {
			drops.add(DropCancelled, 1)
			continue
		}
		live = append(live, t)
	}

	index := make(map[models.NaturalKey][]int, len(live))
	for i, t := range live {
		k := t.SeqKey(t.MsgSeq)
		index[k] = append(index[k], i)
	}

	removed := make([]bool, len(live))
	var crossEra []models.TradeMessage
	for _, y := range reversals {
		hits := index[y.SeqKey(y.OrigMsgSeq)]
		if len(hits) == 0 {
			if y.ExecDate.Before(r.cfg.Cutover) {
				crossEra = append(crossEra, y)
				continue
			}
			drops.add(DropReversalUnmatched, 1)
			continue
		}
		for _, i := range hits {
			if !removed[i] {
				removed[i] = true
				drops.add(DropReversed, 1)
			}
		}
		drops.add(DropReversalMessage, 1)
	}

	events := make([]models.CleanTradeEvent, 0, len(live))
	for i, t := range live {
		if !removed[i] {
			events = append(events, models.EventFromMessage(t, models.PostCutover))
		}
	}
	return events, crossEra
}
