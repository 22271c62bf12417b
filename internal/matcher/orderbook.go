package matcher

import (
	"github.com/tidwall/btree"
)

// location is where a resting order lives, used by idIndex so cancel
// and allocation never need to scan both sides of the book.
type location struct {
	side  Side
	price PriceTicks
}

// bookLevel pairs a price with the queue discipline resting at it.
// It is the element type stored in the bid/ask btrees; the btree only
// ever compares on price.
type bookLevel struct {
	price PriceTicks
	level PriceLevelPolicy
}

// bookOps is the narrow capability TIF policies see: sweep and
// liquidity-check operations, never the book's internal maps. This
// mirrors the teacher's preference for small interfaces over exposing
// concrete structs across package-internal boundaries.
type bookOps interface {
	liquidityUpToAsk(limit PriceTicks, want QtyLots) QtyLots
	liquidityDownToBid(limit PriceTicks, want QtyLots) QtyLots
	sweepAsksUpTo(limit PriceTicks, want QtyLots) SweepResult
	sweepBidsDownTo(limit PriceTicks, want QtyLots) SweepResult
	sweepMarketBuy(want QtyLots) SweepResult
	sweepMarketSell(want QtyLots) SweepResult
}

// OrderBook is a two-sided price ladder for a single symbol. bids are
// ordered so traversal visits the highest price first; asks so
// traversal visits the lowest price first. Both invariants are
// enforced purely through the btree comparators below.
type OrderBook struct {
	bids    *btree.BTreeG[*bookLevel]
	asks    *btree.BTreeG[*bookLevel]
	idIndex map[uint64]location

	newLevel func() PriceLevelPolicy

	lastUpdateID uint64
}

// NewOrderBook builds an empty book. newLevel is the price-level
// factory, defaulting to NewFifoPriceLevel when nil.
func NewOrderBook(newLevel func() PriceLevelPolicy) *OrderBook {
	if newLevel == nil {
		newLevel = func() PriceLevelPolicy { return NewFifoPriceLevel() }
	}
	return &OrderBook{
		bids: btree.NewBTreeG(func(a, b *bookLevel) bool {
			return a.price > b.price // higher price sorts first: best bid
		}),
		asks: btree.NewBTreeG(func(a, b *bookLevel) bool {
			return a.price < b.price // lower price sorts first: best ask
		}),
		idIndex:  make(map[uint64]location),
		newLevel: newLevel,
	}
}

func (b *OrderBook) sideMap(side Side) *btree.BTreeG[*bookLevel] {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// AddOrder registers o at (o.Side, o.Price), creating the level if this
// is the first order resting at that price.
func (b *OrderBook) AddOrder(o Order) {
	m := b.sideMap(o.Side)
	lvl, ok := m.Get(&bookLevel{price: o.Price})
	if !ok {
		lvl = &bookLevel{price: o.Price, level: b.newLevel()}
		m.Set(lvl)
	}
	lvl.level.Add(o)
	b.idIndex[o.ID] = location{side: o.Side, price: o.Price}
}

// Cancel removes the order with the given id from wherever it rests,
// dropping the level if it empties. Reports whether an order was removed.
func (b *OrderBook) Cancel(id uint64) bool {
	loc, ok := b.idIndex[id]
	if !ok {
		return false
	}
	delete(b.idIndex, id)

	m := b.sideMap(loc.side)
	lvl, ok := m.Get(&bookLevel{price: loc.price})
	if !ok {
		return false
	}
	removed := lvl.level.Cancel(id)
	if removed && lvl.level.Total() == 0 {
		m.Delete(&bookLevel{price: loc.price})
	}
	return removed
}

// Total reports the resting quantity at (side, price), or zero if no
// level exists there. Used by the engine to build LevelChange batches.
func (b *OrderBook) Total(side Side, price PriceTicks) QtyLots {
	lvl, ok := b.sideMap(side).Get(&bookLevel{price: price})
	if !ok {
		return 0
	}
	return lvl.level.Total()
}

// BestBid returns the highest resting bid price, if any.
func (b *OrderBook) BestBid() (PriceTicks, bool) {
	lvl, ok := b.bids.Min()
	if !ok {
		return 0, false
	}
	return lvl.price, true
}

// BestAsk returns the lowest resting ask price, if any.
func (b *OrderBook) BestAsk() (PriceTicks, bool) {
	lvl, ok := b.asks.Min()
	if !ok {
		return 0, false
	}
	return lvl.price, true
}

// liquidityUpToAsk sums ask liquidity with price <= limit, stopping
// early once the running sum reaches want. Read-only: used by FOK's
// pre-check.
func (b *OrderBook) liquidityUpToAsk(limit PriceTicks, want QtyLots) QtyLots {
	var acc QtyLots
	b.asks.Scan(func(lvl *bookLevel) bool {
		if lvl.price > limit {
			return false
		}
		acc += lvl.level.Total()
		return acc < want
	})
	return acc
}

// liquidityDownToBid is the bid-side symmetric of liquidityUpToAsk.
func (b *OrderBook) liquidityDownToBid(limit PriceTicks, want QtyLots) QtyLots {
	var acc QtyLots
	b.bids.Scan(func(lvl *bookLevel) bool {
		if lvl.price < limit {
			return false
		}
		acc += lvl.level.Total()
		return acc < want
	})
	return acc
}

// sweepAsksUpTo walks asks from best (lowest) upward through and
// including limit, allocating against each level until want is
// satisfied or the book runs out. Closed at limit per spec: an ask at
// exactly limit is eligible.
func (b *OrderBook) sweepAsksUpTo(limit PriceTicks, want QtyLots) SweepResult {
	return b.sweep(b.asks, want, func(lvl *bookLevel) bool { return lvl.price <= limit })
}

// sweepBidsDownTo is the bid-side symmetric of sweepAsksUpTo.
func (b *OrderBook) sweepBidsDownTo(limit PriceTicks, want QtyLots) SweepResult {
	return b.sweep(b.bids, want, func(lvl *bookLevel) bool { return lvl.price >= limit })
}

// sweepMarketBuy sweeps the ask side with no price limit until want is
// satisfied or the book is exhausted.
func (b *OrderBook) sweepMarketBuy(want QtyLots) SweepResult {
	return b.sweep(b.asks, want, func(*bookLevel) bool { return true })
}

// sweepMarketSell sweeps the bid side with no price limit.
func (b *OrderBook) sweepMarketSell(want QtyLots) SweepResult {
	return b.sweep(b.bids, want, func(*bookLevel) bool { return true })
}

// sweep is the shared engine behind every sweep_* operation: it walks
// tr in its natural (best-first) order while eligible keeps matching,
// allocating against each level, evicting emptied levels and their
// fully-filled orders from idIndex.
func (b *OrderBook) sweep(tr *btree.BTreeG[*bookLevel], want QtyLots, eligible func(*bookLevel) bool) SweepResult {
	init := want
	var fills []Fill
	var completed []uint64
	var drained []PriceTicks

	remaining := want
	tr.Scan(func(lvl *bookLevel) bool {
		if !eligible(lvl) || remaining <= 0 {
			return false
		}
		res := lvl.level.Allocate(remaining)
		fills = append(fills, res.Fills...)
		completed = append(completed, res.CompletedMakerIDs...)
		remaining -= res.FilledQty
		for _, id := range res.CompletedMakerIDs {
			delete(b.idIndex, id)
		}
		if lvl.level.Total() == 0 {
			drained = append(drained, lvl.price)
		}
		return remaining > 0
	})

	for _, px := range drained {
		tr.Delete(&bookLevel{price: px})
	}

	var filled QtyLots
	for _, f := range fills {
		filled += f.Qty
	}
	return newSweepResult(fills, filled, init, completed)
}

// NextUpdateID returns the next strictly-increasing update id for a
// LevelChange batch, advancing the book's counter.
func (b *OrderBook) NextUpdateID() uint64 {
	b.lastUpdateID++
	return b.lastUpdateID
}

// LastUpdateID reports the most recently issued update id, for
// snapshot persistence.
func (b *OrderBook) LastUpdateID() uint64 { return b.lastUpdateID }

// HasOrder reports whether id is currently resting anywhere in the book.
func (b *OrderBook) HasOrder(id uint64) bool {
	_, ok := b.idIndex[id]
	return ok
}

// Location reports the (side, price) an order currently rests at, so
// a caller can compute a post-cancel LevelChange without re-deriving
// it from the command that caused the cancel.
func (b *OrderBook) Location(id uint64) (side Side, price PriceTicks, ok bool) {
	loc, ok := b.idIndex[id]
	if !ok {
		return 0, 0, false
	}
	return loc.side, loc.price, true
}

// OrderQty reports a resting order's own remaining quantity, for
// building a Cancelled event's CancelledQty before the order is removed.
func (b *OrderBook) OrderQty(id uint64) (QtyLots, bool) {
	loc, ok := b.idIndex[id]
	if !ok {
		return 0, false
	}
	lvl, ok := b.sideMap(loc.side).Get(&bookLevel{price: loc.price})
	if !ok {
		return 0, false
	}
	lister, ok := lvl.level.(orderLister)
	if !ok {
		return 0, false
	}
	for _, o := range lister.Orders() {
		if o.ID == id {
			return o.Qty, true
		}
	}
	return 0, false
}

// orderLister is implemented by price-level policies willing to expose
// their resting orders for introspection (GTT expiry scanning, snapshot
// encoding). It is deliberately not part of PriceLevelPolicy itself so
// a future policy that can't cheaply enumerate orders still satisfies
// the narrow capability the matching path needs.
type orderLister interface {
	Orders() []*Order
}

// ExpiredOrder is one GTT order past its expiry, as found by
// ExpiredOrderIDs. Qty is its resting quantity at the moment of the
// scan, for the caller to stamp into a Cancelled event.
type ExpiredOrder struct {
	ID  uint64
	Qty QtyLots
}

// ExpiredOrderIDs returns every GTT order resting anywhere in the book
// whose expiry is at or before now (unix millis). It does not mutate
// the book; the caller cancels each id it wants purged.
func (b *OrderBook) ExpiredOrderIDs(now int64) []ExpiredOrder {
	var out []ExpiredOrder
	scan := func(tr *btree.BTreeG[*bookLevel]) {
		tr.Scan(func(lvl *bookLevel) bool {
			lister, ok := lvl.level.(orderLister)
			if !ok {
				return true
			}
			for _, o := range lister.Orders() {
				if o.Tif.Kind == GTT && o.Tif.ExpiresAt <= now {
					out = append(out, ExpiredOrder{ID: o.ID, Qty: o.Qty})
				}
			}
			return true
		})
	}
	scan(b.bids)
	scan(b.asks)
	return out
}

// Snapshot returns every resting order across both sides, oldest-first
// within each level, for snapshot persistence. Each copy carries its
// own Side and Price, so Restore can re-add it without idIndex.
func (b *OrderBook) Snapshot() []Order {
	var out []Order
	scan := func(tr *btree.BTreeG[*bookLevel]) {
		tr.Scan(func(lvl *bookLevel) bool {
			lister, ok := lvl.level.(orderLister)
			if !ok {
				return true
			}
			for _, o := range lister.Orders() {
				out = append(out, *o)
			}
			return true
		})
	}
	scan(b.bids)
	scan(b.asks)
	return out
}

// Restore repopulates an empty book from a flat order list plus the
// update id counter recorded at save time, preserving queue order
// within each level (orders must be presented oldest-first per level,
// which Snapshot guarantees).
func (b *OrderBook) Restore(orders []Order, lastUpdateID uint64) {
	for _, o := range orders {
		b.AddOrder(o)
	}
	b.lastUpdateID = lastUpdateID
}
