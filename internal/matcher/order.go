package matcher

import "fmt"

// Order is a single order as it flows through the book. Id is unique
// within the book's lifetime; duplicate ids are rejected at Engine
// entry. A market order's Price is never inspected by the engine.
type Order struct {
	ID    uint64
	Side  Side
	Price PriceTicks
	Qty   QtyLots
	Type  OrderType
	Tif   TimeInForce
}

func (o Order) String() string {
	return fmt.Sprintf("Order{id:%d side:%s price:%s qty:%s type:%s tif:%s}",
		o.ID, o.Side, o.Price, o.Qty, o.Type, o.Tif.Kind)
}

// Fill records one allocation step against a single resting order.
type Fill struct {
	MakerOrderID uint64
	Qty          QtyLots
	Price        PriceTicks
}

// AllocationResult is everything one PriceLevelPolicy.Allocate call
// produces, so the caller can build events without re-inspecting the level.
type AllocationResult struct {
	Fills             []Fill
	FilledQty         QtyLots
	CompletedMakerIDs []uint64
}
