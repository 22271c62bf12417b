package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFifoPriceLevel_AddTotal(t *testing.T) {
	lvl := NewFifoPriceLevel()
	lvl.Add(Order{ID: 1, Qty: 500})
	lvl.Add(Order{ID: 2, Qty: 300})
	assert.Equal(t, QtyLots(800), lvl.Total())
}

func TestFifoPriceLevel_Cancel(t *testing.T) {
	lvl := NewFifoPriceLevel()
	lvl.Add(Order{ID: 1, Qty: 500})
	lvl.Add(Order{ID: 2, Qty: 300})

	assert.True(t, lvl.Cancel(1))
	assert.Equal(t, QtyLots(300), lvl.Total())
	assert.False(t, lvl.Cancel(1))
}

func TestFifoPriceLevel_AllocateFIFO(t *testing.T) {
	lvl := NewFifoPriceLevel()
	lvl.Add(Order{ID: 10, Price: 10000, Qty: 1000})
	lvl.Add(Order{ID: 11, Price: 10000, Qty: 1000})

	res := lvl.Allocate(1500)
	assert.Equal(t, QtyLots(1500), res.FilledQty)
	assert.Len(t, res.Fills, 2)
	assert.Equal(t, uint64(10), res.Fills[0].MakerOrderID)
	assert.Equal(t, QtyLots(1000), res.Fills[0].Qty)
	assert.Equal(t, uint64(11), res.Fills[1].MakerOrderID)
	assert.Equal(t, QtyLots(500), res.Fills[1].Qty)
	assert.Equal(t, []uint64{10}, res.CompletedMakerIDs)
	assert.Equal(t, QtyLots(500), lvl.Total())
}

func TestFifoPriceLevel_AllocatePartialHeadStaysAtHead(t *testing.T) {
	lvl := NewFifoPriceLevel()
	lvl.Add(Order{ID: 1, Qty: 1000})
	lvl.Add(Order{ID: 2, Qty: 1000})

	res := lvl.Allocate(400)
	assert.Equal(t, QtyLots(400), res.FilledQty)
	assert.Empty(t, res.CompletedMakerIDs)
	assert.Equal(t, QtyLots(1600), lvl.Total())

	// The partially-filled head is consumed again on the next allocate.
	res2 := lvl.Allocate(600)
	assert.Equal(t, QtyLots(600), res2.FilledQty)
	assert.Equal(t, []uint64{1}, res2.CompletedMakerIDs)
}

func TestFifoPriceLevel_AllocateExhaustsBook(t *testing.T) {
	lvl := NewFifoPriceLevel()
	lvl.Add(Order{ID: 1, Qty: 500})

	res := lvl.Allocate(2000)
	assert.Equal(t, QtyLots(500), res.FilledQty)
	assert.Equal(t, QtyLots(0), lvl.Total())
	assert.True(t, lvl.IsEmpty())
}
