package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_PublishSplitsLevelAndTradeStreams(t *testing.T) {
	r := NewRouter(4, 4)

	r.Publish(ExecutionResult{
		Events:           []ExecutionEvent{{Kind: EventTraded, TakerOrderID: 1, MakerOrderID: 2}},
		LevelChangeBatch: []LevelChange{{Side: Buy, Price: 10000, NewQty: 0, UpdateID: 1}},
	})

	select {
	case batch := <-r.LevelChanges():
		require.Len(t, batch, 1)
		assert.Equal(t, PriceTicks(10000), batch[0].Price)
	default:
		t.Fatal("expected a level-change batch")
	}

	select {
	case tb := <-r.TradeEvents():
		require.Len(t, tb.Events, 1)
		assert.Equal(t, EventTraded, tb.Events[0].Kind)
	default:
		t.Fatal("expected a trade batch")
	}
}

func TestRouter_PublishSkipsEmptyStreams(t *testing.T) {
	r := NewRouter(1, 1)
	r.Publish(ExecutionResult{})

	select {
	case <-r.LevelChanges():
		t.Fatal("did not expect a level-change batch")
	default:
	}
	select {
	case <-r.TradeEvents():
		t.Fatal("did not expect a trade batch")
	default:
	}
}

func TestRouter_PublishDropsOnFullChannel(t *testing.T) {
	r := NewRouter(1, 1)
	full := ExecutionResult{LevelChangeBatch: []LevelChange{{Side: Buy, Price: 1, NewQty: 1, UpdateID: 1}}}
	r.Publish(full)
	// Second publish must not block: the channel is already full.
	r.Publish(ExecutionResult{LevelChangeBatch: []LevelChange{{Side: Buy, Price: 2, NewQty: 1, UpdateID: 2}}})

	batch := <-r.LevelChanges()
	assert.Equal(t, PriceTicks(1), batch[0].Price)
}

func TestDepthAggregator_IngestAndSnapshot(t *testing.T) {
	agg := NewDepthAggregator(2)
	agg.Ingest([]LevelChange{
		{Side: Buy, Price: 9900, NewQty: 100, UpdateID: 1},
		{Side: Buy, Price: 10000, NewQty: 200, UpdateID: 2},
		{Side: Buy, Price: 9800, NewQty: 300, UpdateID: 3},
		{Side: Sell, Price: 10100, NewQty: 50, UpdateID: 4},
	}, 1, 4)

	snap := agg.Snapshot()
	require.Len(t, snap.Bids, 2, "top-2 only")
	assert.Equal(t, PriceTicks(10000), snap.Bids[0].Price, "best bid first")
	assert.Equal(t, PriceTicks(9900), snap.Bids[1].Price)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, PriceTicks(10100), snap.Asks[0].Price)
	assert.Equal(t, uint64(4), snap.LastUpdateID)
}

func TestDepthAggregator_ZeroQtyRemovesLevel(t *testing.T) {
	agg := NewDepthAggregator(10)
	agg.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}}, 1, 1)
	agg.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 0, UpdateID: 2}}, 2, 2)

	snap := agg.Snapshot()
	assert.Empty(t, snap.Bids)
}

func TestDeltaBuilder_FlushesAtThreshold(t *testing.T) {
	db := NewDeltaBuilder(2)
	db.Add([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}})
	assert.False(t, db.Ready())
	db.Add([]LevelChange{{Side: Sell, Price: 10100, NewQty: 50, UpdateID: 2}})
	assert.True(t, db.Ready())

	d := db.Flush()
	assert.Equal(t, uint64(1), d.StartID)
	assert.Equal(t, uint64(2), d.EndID)
	require.Len(t, d.Bids, 1)
	require.Len(t, d.Asks, 1)
	assert.False(t, db.Ready(), "flush must reset the pending count")
}

func TestDeltaBuilder_SamePriceRevisedTwiceCountsOnce(t *testing.T) {
	db := NewDeltaBuilder(2)
	db.Add([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}})
	db.Add([]LevelChange{{Side: Buy, Price: 10000, NewQty: 150, UpdateID: 2}})
	assert.False(t, db.Ready(), "revising the same level doesn't add a second distinct change")
}

func TestOrderBookPublisher_FirstFlushIsAlwaysSnapshot(t *testing.T) {
	p := NewOrderBookPublisher(10, 100)
	p.Subscribe()
	p.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}})

	msg := p.Flush()
	require.NotNil(t, msg)
	require.NotNil(t, msg.Snapshot)
	assert.Nil(t, msg.Delta)
}

func TestOrderBookPublisher_SendsDeltaAfterThreshold(t *testing.T) {
	p := NewOrderBookPublisher(10, 1)
	p.Subscribe()
	p.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}})
	p.Flush() // consumes the forced initial snapshot

	p.Ingest([]LevelChange{{Side: Buy, Price: 10050, NewQty: 50, UpdateID: 2}})
	msg := p.Flush()
	require.NotNil(t, msg)
	require.NotNil(t, msg.Delta)
	assert.Nil(t, msg.Snapshot)
}

func TestOrderBookPublisher_GapForcesResync(t *testing.T) {
	p := NewOrderBookPublisher(10, 100)
	p.Subscribe()
	p.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}})
	p.Flush() // consume initial snapshot

	// UpdateID 3 skips 2: a gap.
	p.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 90, UpdateID: 3}})
	msg := p.Flush()
	require.NotNil(t, msg)
	require.NotNil(t, msg.Snapshot, "a detected gap must force a full resync")
}

func TestOrderBookPublisher_NoMessageWhenNothingPending(t *testing.T) {
	p := NewOrderBookPublisher(10, 100)
	p.Subscribe()
	p.Ingest([]LevelChange{{Side: Buy, Price: 10000, NewQty: 100, UpdateID: 1}})
	p.Flush()

	assert.Nil(t, p.Flush())
}
