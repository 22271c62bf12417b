package matcher

// SweepStatus classifies a SweepResult's outcome.
type SweepStatus int

const (
	SweepNone SweepStatus = iota
	SweepPartial
	SweepFull
)

// SweepResult is what one sweep-to-limit or sweep-to-exhaustion call
// returns. filled + leftover == want always holds, and
// sum(fills.Qty) == filled.
type SweepResult struct {
	Status            SweepStatus
	Fills             []Fill
	Filled            QtyLots
	Leftover          QtyLots
	CompletedOrderIDs []uint64
}

// newSweepResult classifies (fills, filled, want, completedIDs) into
// the None/Partial/Full shape and asserts the want invariant — a
// violation here is a matching-core bug and is fatal by design
// (spec: "Assertion failures ... are fatal ... for safety").
func newSweepResult(fills []Fill, filled, want QtyLots, completedIDs []uint64) SweepResult {
	leftover := want - filled
	if filled+leftover != want {
		panic("matcher: sweep invariant violated: filled+leftover != want")
	}
	var sum QtyLots
	for _, f := range fills {
		sum += f.Qty
	}
	if sum != filled {
		panic("matcher: sweep invariant violated: sum(fills.qty) != filled")
	}

	status := SweepFull
	switch {
	case filled == 0:
		status = SweepNone
	case filled < want:
		status = SweepPartial
	}
	return SweepResult{
		Status:            status,
		Fills:             fills,
		Filled:            filled,
		Leftover:          leftover,
		CompletedOrderIDs: completedIDs,
	}
}

// TifStatus is the outcome of a TIF policy's execution.
type TifStatus int

const (
	Accepted TifStatus = iota
	Rejected
)

// RestOnBook describes the residual quantity a resting TIF leaves on
// the book after sweeping.
type RestOnBook struct {
	Side      Side
	Limit     PriceTicks
	Qty       QtyLots
	ExpiresAt int64 // unix millis, valid iff the order's TIF is GTT
	HasExpiry bool
}

// TifResult is what a TIF policy's Execute{Buy,Sell} returns.
type TifResult struct {
	Status            TifStatus
	Fills             []Fill
	Filled            QtyLots
	CompletedOrderIDs []uint64
	Canceled          *QtyLots
	Rest              *RestOnBook
}

func acceptedResult(fills []Fill, filled QtyLots, completedIDs []uint64) TifResult {
	return TifResult{Status: Accepted, Fills: fills, Filled: filled, CompletedOrderIDs: completedIDs}
}

func acceptedWithCancel(fills []Fill, filled, canceled QtyLots, completedIDs []uint64) TifResult {
	r := acceptedResult(fills, filled, completedIDs)
	r.Canceled = &canceled
	return r
}

func rejectedWithCancel(requested QtyLots) TifResult {
	return TifResult{Status: Rejected, Canceled: &requested}
}

func (r *TifResult) withRest(side Side, limit PriceTicks, qty QtyLots, expiresAt int64, hasExpiry bool) {
	r.Rest = &RestOnBook{Side: side, Limit: limit, Qty: qty, ExpiresAt: expiresAt, HasExpiry: hasExpiry}
}

// EventKind tags an ExecutionEvent's variant. Go has no sum type, so
// ExecutionEvent is a struct carrying only the fields its Kind uses.
type EventKind int

const (
	EventPlaced EventKind = iota
	EventTraded
	EventCancelled
	EventRejected
)

// ExecutionEvent is one observable outcome of processing a command.
type ExecutionEvent struct {
	Kind EventKind

	// Placed
	OrderID   uint64
	Qty       QtyLots
	Price     PriceTicks
	ExpiresAt int64
	HasExpiry bool

	// Traded
	TakerOrderID   uint64
	MakerOrderID   uint64
	TakerCompleted bool
	MakerCompleted bool

	// Cancelled
	CancelledQty   QtyLots
	FullyCancelled bool

	// Rejected
	Reason RejectReason
}

// LevelChange is one price level's post-trade quantity, batched with a
// monotonically increasing UpdateID per actor.
type LevelChange struct {
	Side     Side
	Price    PriceTicks
	NewQty   QtyLots
	UpdateID uint64
}

// ExecutionResult is what Engine.Execute returns: the ordered event
// stream for the command, and the batch of level changes it produced.
type ExecutionResult struct {
	Events           []ExecutionEvent
	LevelChangeBatch []LevelChange
}
