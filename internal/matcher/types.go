package matcher

import (
	"errors"
	"fmt"
)

// PriceTicks is a price expressed as an integer multiple of the
// symbol's tick size. All book arithmetic happens in this space;
// floating point is confined to the Scales boundary.
type PriceTicks int64

func (p PriceTicks) String() string { return fmt.Sprintf("%d", int64(p)) }

// QtyLots is a quantity expressed as an integer multiple of the
// symbol's lot size. Non-negative in steady state; a transient
// negative mid-match is a bug, not a representable state.
type QtyLots int64

func (q QtyLots) String() string { return fmt.Sprintf("%d", int64(q)) }

// Add returns q+other.
func (q QtyLots) Add(other QtyLots) QtyLots { return q + other }

// Sub returns q-other.
func (q QtyLots) Sub(other QtyLots) QtyLots { return q - other }

// IsZero reports whether q is exactly zero.
func (q QtyLots) IsZero() bool { return q == 0 }

// Side identifies which side of the book an order or resting level sits on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderType distinguishes limit orders, which carry a price and may
// rest, from market orders, which never rest and carry no price.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "limit"
	}
	return "market"
}

// TifKind enumerates the four time-in-force policies this core
// implements. Go has no closed sum type, so TimeInForce pairs this
// enum with the one field (ExpiresAt) only GTT uses.
type TifKind int

const (
	GTC TifKind = iota
	IOC
	FOK
	GTT
)

func (k TifKind) String() string {
	switch k {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case GTT:
		return "GTT"
	default:
		return "unknown"
	}
}

// TimeInForce is the policy governing how long and under what
// conditions an order may rest. ExpiresAt is only meaningful when
// Kind == GTT.
type TimeInForce struct {
	Kind      TifKind
	ExpiresAt int64 // unix millis, valid iff Kind == GTT
}

// RejectReason classifies why the engine rejected an order.
type RejectReason int

const (
	ReasonFokNotFilled RejectReason = iota
	ReasonInvalidPrice
	ReasonInvalidQuantity
	ReasonNoMatchingOrder
	ReasonOther
)

func (r RejectReason) String() string {
	switch r {
	case ReasonFokNotFilled:
		return "FokNotFilled"
	case ReasonInvalidPrice:
		return "InvalidPrice"
	case ReasonInvalidQuantity:
		return "InvalidQuantity"
	case ReasonNoMatchingOrder:
		return "NoMatchingOrder"
	default:
		return "Other"
	}
}

var (
	ErrInvalidPrice    = errors.New("matcher: invalid price")
	ErrInvalidQuantity = errors.New("matcher: invalid quantity")
)
