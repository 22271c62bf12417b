package matcher

// Engine has one operation: turning a submitted order into book
// mutations plus the event/level-change stream those mutations
// produced. It holds no state of its own; all state lives in the
// OrderBook it is handed.
type Engine struct{}

// NewEngine returns a stateless Engine.
func NewEngine() Engine { return Engine{} }

// Execute runs order against book, mutating it, and returns the
// events and level changes that resulted. It never blocks and never
// performs I/O.
func (Engine) Execute(o Order, book *OrderBook) ExecutionResult {
	if book.HasOrder(o.ID) {
		return ExecutionResult{Events: []ExecutionEvent{{Kind: EventRejected, OrderID: o.ID, Reason: ReasonOther}}}
	}

	if o.Qty <= 0 {
		return ExecutionResult{Events: []ExecutionEvent{{Kind: EventRejected, OrderID: o.ID, Reason: ReasonInvalidQuantity}}}
	}
	if o.Type == Limit && o.Price <= 0 {
		return ExecutionResult{Events: []ExecutionEvent{{Kind: EventRejected, OrderID: o.ID, Reason: ReasonInvalidPrice}}}
	}

	res := resolveExecutor(o).execute(o, book)

	if res.Status == Rejected {
		return ExecutionResult{Events: []ExecutionEvent{{Kind: EventRejected, OrderID: o.ID, Reason: ReasonFokNotFilled}}}
	}

	if o.Type == Market && res.Filled == 0 {
		return ExecutionResult{Events: []ExecutionEvent{{Kind: EventRejected, OrderID: o.ID, Reason: ReasonNoMatchingOrder}}}
	}

	var restQty QtyLots
	if res.Rest != nil {
		restQty = res.Rest.Qty
		rest := Order{
			ID:    o.ID,
			Side:  res.Rest.Side,
			Price: res.Rest.Limit,
			Qty:   res.Rest.Qty,
			Type:  Limit,
			Tif:   o.Tif,
		}
		book.AddOrder(rest)
	}

	completed := make(map[uint64]bool, len(res.CompletedOrderIDs))
	for _, id := range res.CompletedOrderIDs {
		completed[id] = true
	}

	events := make([]ExecutionEvent, 0, len(res.Fills)+2)
	takerCompleted := res.Filled == o.Qty && res.Rest == nil
	for i, f := range res.Fills {
		tc := takerCompleted && i == len(res.Fills)-1
		events = append(events, ExecutionEvent{
			Kind:           EventTraded,
			TakerOrderID:   o.ID,
			MakerOrderID:   f.MakerOrderID,
			Qty:            f.Qty,
			Price:          f.Price,
			TakerCompleted: tc,
			MakerCompleted: completed[f.MakerOrderID],
		})
	}

	if res.Rest != nil && restQty > 0 {
		events = append(events, ExecutionEvent{
			Kind:      EventPlaced,
			OrderID:   o.ID,
			Qty:       restQty,
			Price:     res.Rest.Limit,
			ExpiresAt: res.Rest.ExpiresAt,
			HasExpiry: res.Rest.HasExpiry,
		})
	}

	if res.Canceled != nil && *res.Canceled > 0 {
		events = append(events, ExecutionEvent{
			Kind:           EventCancelled,
			OrderID:        o.ID,
			CancelledQty:   *res.Canceled,
			FullyCancelled: true,
		})
	}

	rested := res.Rest != nil && restQty > 0
	levelChanges := buildLevelChanges(book, o, res.Fills, rested)

	return ExecutionResult{Events: events, LevelChangeBatch: levelChanges}
}

// buildLevelChanges collects every (side, price) touched by o and its
// fills, looks up the book's post-trade quantity there, and stamps
// each with the book's next update id. The taker's own level counts as
// touched only when a residual actually rested there; an IOC/FOK
// leftover never altered that level.
func buildLevelChanges(book *OrderBook, o Order, fills []Fill, rested bool) []LevelChange {
	type key struct {
		side  Side
		price PriceTicks
	}
	seen := make(map[key]bool)
	var touched []key

	makerSide := o.Side
	if makerSide == Buy {
		makerSide = Sell
	} else {
		makerSide = Buy
	}
	for _, f := range fills {
		k := key{side: makerSide, price: f.Price}
		if !seen[k] {
			seen[k] = true
			touched = append(touched, k)
		}
	}
	if rested {
		k := key{side: o.Side, price: o.Price}
		if !seen[k] {
			seen[k] = true
			touched = append(touched, k)
		}
	}

	if len(touched) == 0 {
		return nil
	}
	changes := make([]LevelChange, 0, len(touched))
	id := book.NextUpdateID()
	for _, k := range touched {
		changes = append(changes, LevelChange{
			Side:     k.side,
			Price:    k.price,
			NewQty:   book.Total(k.side, k.price),
			UpdateID: id,
		})
	}
	return changes
}
