package usecase

import (
	"sort"

	"BondPanel/internal/domain/models"
)

// preEntry is a live or removed pre-cutover trade; corrected entries carry
// the values of the correction that replaced the original.
type preEntry struct {
	msg       models.TradeMessage
	corrected bool
	removed   bool
}

// preBook indexes live pre-cutover trades by {bond, exec date, sequence}.
type preBook struct {
	entries []*preEntry
	byRef   map[models.NaturalKey][]*preEntry
}

func newPreBook(trades []models.TradeMessage) *preBook {
	b := &preBook{byRef: make(map[models.NaturalKey][]*preEntry, len(trades))}
	for _, t := range trades {
		b.insert(t, false)
	}
	return b
}

func (b *preBook) insert(m models.TradeMessage, corrected bool) *preEntry {
	e := &preEntry{msg: m, corrected: corrected}
	b.entries = append(b.entries, e)
	k := m.RefKey(m.MsgSeq)
	b.byRef[k] = append(b.byRef[k], e)
	return e
}

func (b *preBook) live(k models.NaturalKey) []*preEntry {
	var out []*preEntry
	for _, e := range b.byRef[k] {
		if !e.removed {
			out = append(out, e)
		}
	}
	return out
}

// pickUnique narrows candidates with each filter in turn until exactly one
// remains. A filter that rejects every candidate is skipped.
func pickUnique(cands []*preEntry, filters ...func(*preEntry) bool) (*preEntry, bool) {
	for _, f := range filters {
		if len(cands) == 1 {
			break
		}
		var narrowed []*preEntry
		for _, c := range cands {
			if f(c) {
				narrowed = append(narrowed, c)
			}
		}
		if len(narrowed) > 0 {
			cands = narrowed
		}
	}
	if len(cands) == 1 {
		return cands[0], true
	}
	return nil, false
}

// reconcilePre applies the pre-cutover protocol: cancellations, then
// correction chains, then reversals.
func (r *Reconciler) reconcilePre(msgs, crossEra []models.TradeMessage, drops dropCounter) []models.CleanTradeEvent {
	var trades, cancels, corrections, reversals []models.TradeMessage
	for _, m := range msgs {
		switch m.Status {
		case "T":
			switch m.AsOf {
			case "R":
				reversals = append(reversals, m)
			case "X", "D":
				drops.add(DropAsOfExcluded, 1)
			default:
				trades = append(trades, m)
			}
		case "C", "H":
			cancels = append(cancels, m)
		case "W":
			corrections = append(corrections, m)
		case "I":
			drops.add(DropIgnored, 1)
		default:
			drops.add(DropUnknownStatus, 1)
		}
	}
	reversals = append(reversals, crossEra...)

	sortMessages(trades)
	sortMessages(cancels)
	sortMessages(corrections)
	sortMessages(reversals)

	book := newPreBook(trades)
	cancelled := r.applyCancels(book, cancels, drops)
	r.applyCorrections(book, corrections, cancelled, drops)
	r.matchReversals(book, reversals, drops)

	events := make([]models.CleanTradeEvent, 0, len(book.entries))
	for _, e := range book.entries {
		if e.removed {
			continue
		}
		ev := models.EventFromMessage(e.msg, models.PreCutover)
		ev.Corrected = e.corrected
		events = append(events, ev)
	}
	return events
}

// applyCancels removes each trade a cancel points at. The reference is
// {bond, exec date, sequence = cancel's back-reference}; when several trades
// share it, the cancel's own price, volume and execution key break the tie.
func (r *Reconciler) applyCancels(book *preBook, cancels []models.TradeMessage, drops dropCounter) map[models.NaturalKey]bool {
	cancelled := make(map[models.NaturalKey]bool)
	for _, c := range cancels {
		drops.add(DropCancelMessage, 1)
		if c.OrigMsgSeq == 0 {
			continue
		}
		key := c.RefKey(c.OrigMsgSeq)
		cands := book.live(key)
		if len(cands) == 0 {
			continue
		}
		pv := c.PriceVolumeKey()
		exec := c.ExecKey()
		target, ok := pickUnique(cands,
			func(e *preEntry) bool { return e.msg.PriceVolumeKey() == pv },
			func(e *preEntry) bool { return e.msg.ExecKey() == exec },
		)
		if ok {
			target.removed = true
			cancelled[key] = true
			drops.add(DropCancelled, 1)
			continue
		}
		if r.cfg.AmbiguityPolicy == AmbiguityDiscard {
			for _, e := range cands {
				e.removed = true
			}
			cancelled[key] = true
			drops.add(DropAmbiguousDiscarded, len(cands))
		}
	}
	return cancelled
}

// chainLink is a terminal correction and the sequence number of the trade
// at the root of its chain.
type chainLink struct {
	terminal models.TradeMessage
	root     int64
}

// resolveChains collapses correction chains sharing {bond, symbol, exec date,
// exec time} to their terminal message. When several terminals share a root
// the highest sequence number wins.
func resolveChains(corrections []models.TradeMessage, drops dropCounter) []chainLink {
	groups := make(map[models.ChainKey][]models.TradeMessage)
	var order []models.ChainKey
	for _, w := range corrections {
		k := w.ChainKey()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], w)
	}

	var links []chainLink
	for _, k := range order {
		group := groups[k]
		bySeq := make(map[int64]models.TradeMessage, len(group))
		referenced := make(map[int64]bool, len(group))
		for _, w := range group {
			bySeq[w.MsgSeq] = w
			referenced[w.OrigMsgSeq] = true
		}

		best := make(map[int64]models.TradeMessage)
		var roots []int64
		for _, w := range group {
			if referenced[w.MsgSeq] {
				drops.add(DropSupersededCorr, 1)
				continue
			}
			root, ok := chainRoot(w, bySeq)
			if !ok {
				drops.add(DropCorrectionOrphan, 1)
				continue
			}
			prev, seen := best[root]
			if !seen {
				roots = append(roots, root)
				best[root] = w
				continue
			}
			drops.add(DropSupersededCorr, 1)
			if w.MsgSeq > prev.MsgSeq {
				best[root] = w
			}
		}
		for _, root := range roots {
			links = append(links, chainLink{terminal: best[root], root: root})
		}
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].terminal.MsgSeq != links[j].terminal.MsgSeq {
			return links[i].terminal.MsgSeq < links[j].terminal.MsgSeq
		}
		return msgLess(links[i].terminal, links[j].terminal)
	})
	return links
}

// chainRoot follows back-references through the group. It reports false on
// a cycle.
func chainRoot(w models.TradeMessage, bySeq map[int64]models.TradeMessage) (int64, bool) {
	visited := map[int64]bool{w.MsgSeq: true}
	cur := w
	for {
		prev, ok := bySeq[cur.OrigMsgSeq]
		if !ok {
			return cur.OrigMsgSeq, true
		}
		if visited[prev.MsgSeq] {
			return 0, false
		}
		visited[prev.MsgSeq] = true
		cur = prev
	}
}

// applyCorrections replaces each chain's root trade with the terminal
// correction. Corrections are applied in sequence order so a correction of
// an already-corrected trade finds its predecessor in the book.
func (r *Reconciler) applyCorrections(book *preBook, corrections []models.TradeMessage, cancelled map[models.NaturalKey]bool, drops dropCounter) {
	for _, link := range resolveChains(corrections, drops) {
		w := link.terminal
		key := w.RefKey(link.root)
		cands := book.live(key)

		if len(cands) == 0 {
			if cancelled[key] || r.cfg.AmbiguityPolicy == AmbiguityDiscard {
				drops.add(DropCorrectionOrphan, 1)
				continue
			}
			book.insert(w, true)
			continue
		}

		target, ok := pickUnique(cands, func(e *preEntry) bool { return e.msg.ExecTime == w.ExecTime })
		if !ok {
			if r.cfg.AmbiguityPolicy == AmbiguityDiscard {
				drops.add(DropAmbiguousDiscarded, 1)
				continue
			}
			book.insert(w, true)
			continue
		}
		target.removed = true
		drops.add(DropCorrected, 1)
		book.insert(w, true)
	}
}
