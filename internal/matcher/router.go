package matcher

import "sort"

// TradeBatch is one command's worth of non-level-change events,
// delivered to trade-event subscribers in execution order.
type TradeBatch struct {
	Events []ExecutionEvent
}

// Router owns the two bounded subscriber channels spec.md §4.I
// describes: one for level changes, one for trade events. It is the
// EventSink a BookActor publishes every ExecutionResult to.
type Router struct {
	levelCh chan []LevelChange
	tradeCh chan TradeBatch
}

// NewRouter builds a Router with the given subscriber channel
// capacities. Publish never blocks: while a channel is full, updates
// for it are dropped — size channels generously or pair Router with a
// draining consumer.
func NewRouter(levelCapacity, tradeCapacity int) *Router {
	return &Router{
		levelCh: make(chan []LevelChange, levelCapacity),
		tradeCh: make(chan TradeBatch, tradeCapacity),
	}
}

// LevelChanges exposes the level-change subscriber channel.
func (r *Router) LevelChanges() <-chan []LevelChange { return r.levelCh }

// TradeEvents exposes the trade-event subscriber channel.
func (r *Router) TradeEvents() <-chan TradeBatch { return r.tradeCh }

// Publish splits res into its two streams. Non-blocking: a full
// channel drops the update rather than stall the actor, since a
// dropped update is exactly the gap OrderBookPublisher's forced-snapshot
// recovery exists to handle.
func (r *Router) Publish(res ExecutionResult) {
	if len(res.LevelChangeBatch) > 0 {
		select {
		case r.levelCh <- res.LevelChangeBatch:
		default:
		}
	}
	if len(res.Events) > 0 {
		select {
		case r.tradeCh <- TradeBatch{Events: res.Events}:
		default:
		}
	}
}

var _ EventSink = (*Router)(nil)

// PriceQty is one (price, quantity) pair in a depth message.
type PriceQty struct {
	Price PriceTicks
	Qty   QtyLots
}

// DepthSnapshot is a full top-N book image, stamped with the last
// update id it reflects.
type DepthSnapshot struct {
	Bids         []PriceQty
	Asks         []PriceQty
	LastUpdateID uint64
}

// DepthDelta is an incremental change set. A Qty of zero means the
// level was removed.
type DepthDelta struct {
	Bids    []PriceQty
	Asks    []PriceQty
	StartID uint64
	EndID   uint64
}

// DepthAggregator maintains the top-N resting quantity per side from
// a monotonic stream of LevelChange batches.
type DepthAggregator struct {
	topN uint64
	bids map[PriceTicks]QtyLots
	asks map[PriceTicks]QtyLots
	last uint64
}

// NewDepthAggregator returns an aggregator tracking the top n levels
// per side.
func NewDepthAggregator(n int) *DepthAggregator {
	return &DepthAggregator{
		topN: uint64(n),
		bids: make(map[PriceTicks]QtyLots),
		asks: make(map[PriceTicks]QtyLots),
	}
}

// Ingest applies a LevelChange batch. firstUpdateID/lastUpdateID are
// carried separately from the slice so a caller can detect gaps even
// when updates (a zero-length batch) is empty.
func (d *DepthAggregator) Ingest(updates []LevelChange, firstUpdateID, lastUpdateID uint64) {
	for _, u := range updates {
		m := d.bids
		if u.Side == Sell {
			m = d.asks
		}
		if u.NewQty == 0 {
			delete(m, u.Price)
		} else {
			m[u.Price] = u.NewQty
		}
	}
	if lastUpdateID > d.last {
		d.last = lastUpdateID
	}
}

// Snapshot emits the current top-N state per side, best price first.
func (d *DepthAggregator) Snapshot() DepthSnapshot {
	return DepthSnapshot{
		Bids:         topN(d.bids, d.topN, true),
		Asks:         topN(d.asks, d.topN, false),
		LastUpdateID: d.last,
	}
}

func topN(levels map[PriceTicks]QtyLots, n uint64, descending bool) []PriceQty {
	out := make([]PriceQty, 0, len(levels))
	for px, qty := range levels {
		out = append(out, PriceQty{Price: px, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	if n > 0 && uint64(len(out)) > n {
		out = out[:n]
	}
	return out
}

// DeltaBuilder accumulates price->new_qty changes until a configured
// threshold of distinct levels is reached or a flush is forced, then
// produces a single Delta covering the accumulated update-id range.
type DeltaBuilder struct {
	threshold int
	bids      map[PriceTicks]QtyLots
	asks      map[PriceTicks]QtyLots
	startID   uint64
	endID     uint64
	pending   int
}

// NewDeltaBuilder returns a builder that flushes once it has
// accumulated threshold distinct level changes.
func NewDeltaBuilder(threshold int) *DeltaBuilder {
	return &DeltaBuilder{
		threshold: threshold,
		bids:      make(map[PriceTicks]QtyLots),
		asks:      make(map[PriceTicks]QtyLots),
	}
}

// Add folds one LevelChange batch into the pending delta.
func (db *DeltaBuilder) Add(updates []LevelChange) {
	for _, u := range updates {
		m := db.bids
		if u.Side == Sell {
			m = db.asks
		}
		if _, exists := m[u.Price]; !exists {
			db.pending++
		}
		m[u.Price] = u.NewQty
		if db.startID == 0 || u.UpdateID < db.startID {
			db.startID = u.UpdateID
		}
		if u.UpdateID > db.endID {
			db.endID = u.UpdateID
		}
	}
}

// Ready reports whether the accumulated change count has reached the
// configured threshold.
func (db *DeltaBuilder) Ready() bool {
	return db.threshold > 0 && db.pending >= db.threshold
}

// Flush emits the accumulated Delta and resets the builder. Calling
// Flush with nothing pending returns a zero-value Delta.
func (db *DeltaBuilder) Flush() DepthDelta {
	d := DepthDelta{
		Bids:    mapToPriceQty(db.bids),
		Asks:    mapToPriceQty(db.asks),
		StartID: db.startID,
		EndID:   db.endID,
	}
	db.bids = make(map[PriceTicks]QtyLots)
	db.asks = make(map[PriceTicks]QtyLots)
	db.startID, db.endID, db.pending = 0, 0, 0
	return d
}

func mapToPriceQty(m map[PriceTicks]QtyLots) []PriceQty {
	out := make([]PriceQty, 0, len(m))
	for px, qty := range m {
		out = append(out, PriceQty{Price: px, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// DepthMessage is the union spec.md §4.I calls "Snapshot | Delta"; Go
// has no sum type, so exactly one of the two fields is set.
type DepthMessage struct {
	Snapshot *DepthSnapshot
	Delta    *DepthDelta
}

// OrderBookPublisher composes a DepthAggregator and DeltaBuilder and
// enforces gap detection: any update id that isn't exactly
// lastSentUpdateID+1 forces a full Snapshot on the next flush, since
// that's the only way a subscriber (or the publisher itself) recovers
// from a lost update.
type OrderBookPublisher struct {
	agg           *DepthAggregator
	delta         *DeltaBuilder
	lastSent      uint64
	subscribed    bool
	forceSnapshot bool
}

// NewOrderBookPublisher builds a publisher broadcasting the top depthN
// levels per side and flushing deltas every deltaThreshold changes.
func NewOrderBookPublisher(depthN, deltaThreshold int) *OrderBookPublisher {
	return &OrderBookPublisher{
		agg:   NewDepthAggregator(depthN),
		delta: NewDeltaBuilder(deltaThreshold),
	}
}

// Subscribe marks a new subscriber as present; the first message sent
// to it must be a full Snapshot regardless of delta state.
func (p *OrderBookPublisher) Subscribe() {
	p.subscribed = false
	p.forceSnapshot = true
}

// Ingest folds one LevelChange batch into the publisher's state,
// detecting gaps against the previously observed update id stream.
func (p *OrderBookPublisher) Ingest(updates []LevelChange) {
	if len(updates) == 0 {
		return
	}
	first := updates[0].UpdateID
	last := updates[len(updates)-1].UpdateID
	if p.lastSent != 0 && first != p.lastSent+1 {
		p.forceSnapshot = true
	}
	p.agg.Ingest(updates, first, last)
	p.delta.Add(updates)
	p.lastSent = last
}

// Flush returns the next message to send: a forced or initial
// Snapshot, or — once the delta threshold is reached — a Delta. It
// returns nil when there is nothing to send yet.
func (p *OrderBookPublisher) Flush() *DepthMessage {
	if !p.subscribed || p.forceSnapshot {
		p.subscribed = true
		p.forceSnapshot = false
		snap := p.agg.Snapshot()
		p.delta.Flush() // discard any deltas superseded by the snapshot
		return &DepthMessage{Snapshot: &snap}
	}
	if !p.delta.Ready() {
		return nil
	}
	d := p.delta.Flush()
	return &DepthMessage{Delta: &d}
}
