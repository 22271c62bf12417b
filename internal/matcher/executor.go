package matcher

// executor dispatches an order to the sweep behavior appropriate for
// its OrderType: market orders always IOC-cancel their remainder,
// limit orders defer to the order's TimeInForce policy.
type executor interface {
	execute(o Order, book bookOps) TifResult
}

// marketExecutor sweeps without a price limit and cancels whatever the
// book could not fill; market orders never rest.
type marketExecutor struct{}

func (marketExecutor) execute(o Order, book bookOps) TifResult {
	var sw SweepResult
	if o.Side == Buy {
		sw = book.sweepMarketBuy(o.Qty)
	} else {
		sw = book.sweepMarketSell(o.Qty)
	}
	return acceptedWithCancel(sw.Fills, sw.Filled, sw.Leftover, sw.CompletedOrderIDs)
}

// limitExecutor dispatches to the order's resolved TIF policy at its
// limit price.
type limitExecutor struct{ policy tifPolicy }

func newLimitExecutor(o Order) limitExecutor {
	return limitExecutor{policy: obtainTifPolicy(o.Tif)}
}

func (e limitExecutor) execute(o Order, book bookOps) TifResult {
	if o.Side == Buy {
		return e.policy.executeBuy(book, o.Price, o.Qty)
	}
	return e.policy.executeSell(book, o.Price, o.Qty)
}

// resolveExecutor picks market vs limit handling for o.
func resolveExecutor(o Order) executor {
	if o.Type == Market {
		return marketExecutor{}
	}
	return newLimitExecutor(o)
}
