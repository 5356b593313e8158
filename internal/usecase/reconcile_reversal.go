package usecase

import (
	"sort"

	"BondPanel/internal/domain/models"
)

// matchReversals removes the trade each reversal nullifies. Targets and
// reversals are both visited in message order, so the earliest eligible
// target is taken and the outcome does not depend on input order.
func (r *Reconciler) matchReversals(book *preBook, reversals []models.TradeMessage, drops dropCounter) {
	if len(reversals) == 0 {
		return
	}

	var targets []*preEntry
	for _, e := range book.entries {
		if e.removed {
			continue
		}
		switch e.msg.AsOf {
		case "R", "X", "D":
			continue
		}
		targets = append(targets, e)
	}
	sort.Slice(targets, func(i, j int) bool { return msgLess(targets[i].msg, targets[j].msg) })

	var unmatched []models.TradeMessage
	switch r.cfg.ReversalPolicy {
	case ReversalPriceVolume:
		unmatched = matchOnKey(targets, reversals, models.TradeMessage.PriceVolumeKey, drops)
	default:
		unmatched = matchOnKey(targets, reversals, models.TradeMessage.ExecKey, drops)
		unmatched = matchRanked(targets, unmatched, drops)
	}
	drops.add(DropReversalUnmatched, len(unmatched))
}

// matchOnKey pairs each reversal with the first live target sharing key.
func matchOnKey(targets []*preEntry, reversals []models.TradeMessage, key func(models.TradeMessage) models.NaturalKey, drops dropCounter) []models.TradeMessage {
	idx := make(map[models.NaturalKey][]*preEntry, len(targets))
	for _, t := range targets {
		k := key(t.msg)
		idx[k] = append(idx[k], t)
	}

	var unmatched []models.TradeMessage
	for _, rv := range reversals {
		hit := false
		for _, t := range idx[key(rv)] {
			if !t.removed {
				t.removed = true
				hit = true
				break
			}
		}
		if !hit {
			unmatched = append(unmatched, rv)
			continue
		}
		drops.add(DropReversed, 1)
		drops.add(DropReversalMessage, 1)
	}
	return unmatched
}

// matchRanked pairs the n-th remaining target with the n-th remaining
// reversal of the same day-level key, tolerating clock skew in the
// execution time.
func matchRanked(targets []*preEntry, reversals []models.TradeMessage, drops dropCounter) []models.TradeMessage {
	ranked := make(map[models.NaturalKey]*preEntry)
	seen := make(map[models.NaturalKey]int)
	for _, t := range targets {
		if t.removed {
			continue
		}
		base := t.msg.DayKey(0)
		ranked[t.msg.DayKey(seen[base])] = t
		seen[base]++
	}

	var unmatched []models.TradeMessage
	rseen := make(map[models.NaturalKey]int)
	for _, rv := range reversals {
		base := rv.DayKey(0)
		k := rv.DayKey(rseen[base])
		rseen[base]++
		t, ok := ranked[k]
		if !ok || t.removed {
			unmatched = append(unmatched, rv)
			continue
		}
		t.removed = true
		drops.add(DropReversed, 1)
		drops.add(DropReversalMessage, 1)
	}
	return unmatched
}
