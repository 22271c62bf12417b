package matcher

// tifPolicy is the strategy an Engine dispatches a limit order's
// resting/cancellation behavior to, one implementation per TifKind.
type tifPolicy interface {
	executeBuy(book bookOps, limit PriceTicks, want QtyLots) TifResult
	executeSell(book bookOps, limit PriceTicks, want QtyLots) TifResult
}

// obtainTifPolicy resolves the policy for a TimeInForce. GTT carries
// its own expiry so it is constructed per-order rather than shared.
func obtainTifPolicy(tif TimeInForce) tifPolicy {
	switch tif.Kind {
	case IOC:
		return iocPolicy{}
	case FOK:
		return fokPolicy{}
	case GTT:
		return gttPolicy{expiresAt: tif.ExpiresAt}
	default:
		return gtcPolicy{}
	}
}

// gtcPolicy sweeps at the limit and rests whatever remains, with no expiry.
type gtcPolicy struct{}

func (gtcPolicy) executeBuy(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	sw := book.sweepAsksUpTo(limit, want)
	r := acceptedResult(sw.Fills, sw.Filled, sw.CompletedOrderIDs)
	if sw.Leftover > 0 {
		r.withRest(Buy, limit, sw.Leftover, 0, false)
	}
	return r
}

func (gtcPolicy) executeSell(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	sw := book.sweepBidsDownTo(limit, want)
	r := acceptedResult(sw.Fills, sw.Filled, sw.CompletedOrderIDs)
	if sw.Leftover > 0 {
		r.withRest(Sell, limit, sw.Leftover, 0, false)
	}
	return r
}

// gttPolicy is gtcPolicy plus an expiry stamped onto whatever rests.
type gttPolicy struct{ expiresAt int64 }

func (p gttPolicy) executeBuy(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	sw := book.sweepAsksUpTo(limit, want)
	r := acceptedResult(sw.Fills, sw.Filled, sw.CompletedOrderIDs)
	if sw.Leftover > 0 {
		r.withRest(Buy, limit, sw.Leftover, p.expiresAt, true)
	}
	return r
}

func (p gttPolicy) executeSell(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	sw := book.sweepBidsDownTo(limit, want)
	r := acceptedResult(sw.Fills, sw.Filled, sw.CompletedOrderIDs)
	if sw.Leftover > 0 {
		r.withRest(Sell, limit, sw.Leftover, p.expiresAt, true)
	}
	return r
}

// iocPolicy sweeps at the limit and cancels any remainder; it never rests.
type iocPolicy struct{}

func (iocPolicy) executeBuy(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	sw := book.sweepAsksUpTo(limit, want)
	return acceptedWithCancel(sw.Fills, sw.Filled, sw.Leftover, sw.CompletedOrderIDs)
}

func (iocPolicy) executeSell(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	sw := book.sweepBidsDownTo(limit, want)
	return acceptedWithCancel(sw.Fills, sw.Filled, sw.Leftover, sw.CompletedOrderIDs)
}

// fokPolicy pre-checks liquidity and rejects outright rather than
// partially filling; it only sweeps once the full want is guaranteed.
type fokPolicy struct{}

func (fokPolicy) executeBuy(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	if book.liquidityUpToAsk(limit, want) < want {
		return rejectedWithCancel(want)
	}
	sw := book.sweepAsksUpTo(limit, want)
	return acceptedResult(sw.Fills, sw.Filled, sw.CompletedOrderIDs)
}

func (fokPolicy) executeSell(book bookOps, limit PriceTicks, want QtyLots) TifResult {
	if book.liquidityDownToBid(limit, want) < want {
		return rejectedWithCancel(want)
	}
	sw := book.sweepBidsDownTo(limit, want)
	return acceptedResult(sw.Fills, sw.Filled, sw.CompletedOrderIDs)
}
