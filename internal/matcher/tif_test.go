package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGTCPolicy_RestsLeftover(t *testing.T) {
	book := NewOrderBook(nil)
	book.AddOrder(Order{ID: 1, Side: Sell, Price: 10000, Qty: 500})

	res := gtcPolicy{}.executeBuy(book, 10000, 1000)
	assert.Equal(t, Accepted, res.Status)
	assert.Equal(t, QtyLots(500), res.Filled)
	require.NotNil(t, res.Rest)
	assert.Equal(t, QtyLots(500), res.Rest.Qty)
	assert.False(t, res.Rest.HasExpiry)
	assert.Nil(t, res.Canceled)
}

func TestGTTPolicy_RestCarriesExpiry(t *testing.T) {
	book := NewOrderBook(nil)
	res := gttPolicy{expiresAt: 5000}.executeBuy(book, 10000, 1000)

	require.NotNil(t, res.Rest)
	assert.True(t, res.Rest.HasExpiry)
	assert.Equal(t, int64(5000), res.Rest.ExpiresAt)
	assert.Equal(t, QtyLots(1000), res.Rest.Qty)
}

func TestIOCPolicy_CancelsRemainder(t *testing.T) {
	book := NewOrderBook(nil)
	book.AddOrder(Order{ID: 1, Side: Sell, Price: 10000, Qty: 400})

	res := iocPolicy{}.executeBuy(book, 10000, 1000)
	assert.Equal(t, Accepted, res.Status)
	assert.Equal(t, QtyLots(400), res.Filled)
	require.NotNil(t, res.Canceled)
	assert.Equal(t, QtyLots(600), *res.Canceled)
	assert.Nil(t, res.Rest)
}

func TestIOCPolicy_NeverRests(t *testing.T) {
	book := NewOrderBook(nil)
	res := iocPolicy{}.executeSell(book, 10000, 500)
	assert.Nil(t, res.Rest)
	require.NotNil(t, res.Canceled)
	assert.Equal(t, QtyLots(500), *res.Canceled)
}

func TestFOKPolicy_RejectsInsufficientLiquidity(t *testing.T) {
	book := NewOrderBook(nil)
	book.AddOrder(Order{ID: 1, Side: Sell, Price: 10000, Qty: 400})

	res := fokPolicy{}.executeBuy(book, 10000, 1000)
	assert.Equal(t, Rejected, res.Status)
	require.NotNil(t, res.Canceled)
	assert.Equal(t, QtyLots(1000), *res.Canceled)
	assert.Empty(t, res.Fills)
	// The book must be untouched: a rejected FOK never sweeps.
	assert.Equal(t, QtyLots(400), book.Total(Sell, 10000))
}

func TestFOKPolicy_FillsWhenLiquiditySuffices(t *testing.T) {
	book := NewOrderBook(nil)
	book.AddOrder(Order{ID: 1, Side: Sell, Price: 10000, Qty: 400})
	book.AddOrder(Order{ID: 2, Side: Sell, Price: 10050, Qty: 600})

	res := fokPolicy{}.executeBuy(book, 10050, 1000)
	assert.Equal(t, Accepted, res.Status)
	assert.Equal(t, QtyLots(1000), res.Filled)
	assert.Nil(t, res.Canceled)
	assert.Equal(t, QtyLots(0), book.Total(Sell, 10000))
	assert.Equal(t, QtyLots(0), book.Total(Sell, 10050))
}

func TestFOKPolicy_ExactLiquidityIsSufficient(t *testing.T) {
	book := NewOrderBook(nil)
	book.AddOrder(Order{ID: 1, Side: Buy, Price: 10000, Qty: 500})

	res := fokPolicy{}.executeSell(book, 10000, 500)
	assert.Equal(t, Accepted, res.Status)
	assert.Equal(t, QtyLots(500), res.Filled)
}

func TestObtainTifPolicy_ResolvesEachKind(t *testing.T) {
	assert.IsType(t, gtcPolicy{}, obtainTifPolicy(TimeInForce{Kind: GTC}))
	assert.IsType(t, iocPolicy{}, obtainTifPolicy(TimeInForce{Kind: IOC}))
	assert.IsType(t, fokPolicy{}, obtainTifPolicy(TimeInForce{Kind: FOK}))

	p := obtainTifPolicy(TimeInForce{Kind: GTT, ExpiresAt: 1234})
	gtt, ok := p.(gttPolicy)
	require.True(t, ok)
	assert.Equal(t, int64(1234), gtt.expiresAt)
}
