package matcher

// PriceLevelPolicy is the queue discipline applied to orders resting
// at a single price. FifoPriceLevel is the only implementation this
// core ships; the interface is kept narrow so a future pro-rata or
// maker-priority policy is a drop-in replacement.
type PriceLevelPolicy interface {
	Add(o Order)
	Cancel(id uint64) bool
	Total() QtyLots
	Allocate(want QtyLots) AllocationResult
}

// FifoPriceLevel queues orders in strict insertion order and allocates
// from the head. The invariant total == sum(orders[i].Qty) holds
// after every call.
type FifoPriceLevel struct {
	total  QtyLots
	orders []*Order
}

// NewFifoPriceLevel returns an empty level.
func NewFifoPriceLevel() *FifoPriceLevel {
	return &FifoPriceLevel{}
}

// Total reports the level's resting quantity in O(1).
func (l *FifoPriceLevel) Total() QtyLots { return l.total }

// IsEmpty reports whether the level holds no resting quantity.
func (l *FifoPriceLevel) IsEmpty() bool { return l.total == 0 }

// Orders exposes the resting orders in queue order, oldest first.
// Callers must not mutate the returned slice.
func (l *FifoPriceLevel) Orders() []*Order { return l.orders }

// Add enqueues o at the tail, increasing Total by o.Qty.
func (l *FifoPriceLevel) Add(o Order) {
	cp := o
	l.total += cp.Qty
	l.orders = append(l.orders, &cp)
}

// Cancel removes the order with the given id if it is resting at this
// level, decreasing Total by its remaining qty.
func (l *FifoPriceLevel) Cancel(id uint64) bool {
	for i, o := range l.orders {
		if o.ID == id {
			l.total -= o.Qty
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Allocate consumes up to want from the head of the queue in FIFO
// order, producing one Fill per touched resting order. A partial fill
// of the head order leaves a shrunken order at the head; fully filled
// orders are popped and their ids returned for eviction from the
// book's id index.
func (l *FifoPriceLevel) Allocate(want QtyLots) AllocationResult {
	var (
		fills     []Fill
		doneIDs   []uint64
		filled    QtyLots
		remaining = want
		consumed  int
	)

	for remaining > 0 && consumed < len(l.orders) {
		head := l.orders[consumed]
		take := head.Qty
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			break
		}

		head.Qty -= take
		l.total -= take
		remaining -= take
		filled += take

		fills = append(fills, Fill{
			MakerOrderID: head.ID,
			Qty:          take,
			Price:        head.Price,
		})

		if head.Qty == 0 {
			doneIDs = append(doneIDs, head.ID)
			consumed++
		}
	}

	if consumed > 0 {
		l.orders = l.orders[consumed:]
	}

	return AllocationResult{
		Fills:             fills,
		FilledQty:         filled,
		CompletedMakerIDs: doneIDs,
	}
}
