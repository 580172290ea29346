package snapshot

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/orderbook"
	"matchbook/infra/memory"
)

func testBook() *orderbook.OrderBook {
	return orderbook.New(memory.NewPool[orderbook.Order](), nil)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	book := testBook()

	_, err := book.SubmitLimit(1, orderbook.Bid, 100, 10)
	require.NoError(t, err)
	_, err = book.SubmitLimit(2, orderbook.Bid, 100, 4)
	require.NoError(t, err)
	_, err = book.SubmitLimit(3, orderbook.Ask, 110, 7)
	require.NoError(t, err)

	w := &Writer{Dir: dir}
	require.NoError(t, w.Write(42, book))

	rebuilt := testBook()
	seq, err := Load(dir, rebuilt)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)
	assert.Equal(t, 3, rebuilt.Orders())

	bid, ok := rebuilt.BestBid()
	require.True(t, ok)
	assert.Equal(t, orderbook.Quote{Price: 100, TotalShares: 14}, bid)
	ask, ok := rebuilt.BestAsk()
	require.True(t, ok)
	assert.Equal(t, orderbook.Quote{Price: 110, TotalShares: 7}, ask)

	// Queue order within the level survives the round trip.
	var ids []orderbook.OrderID
	rebuilt.BidsWalk(func(l *orderbook.PriceLevel) bool {
		rebuilt.EachOrder(l, func(o *orderbook.Order) { ids = append(ids, o.ID) })
		return true
	})
	assert.Equal(t, []orderbook.OrderID{1, 2}, ids)
}

func TestLoadMissingSnapshot(t *testing.T) {
	book := testBook()
	seq, err := Load(t.TempDir(), book)
	require.NoError(t, err)
	assert.Zero(t, seq)
	assert.Zero(t, book.Orders())
}

func TestWriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	book := testBook()
	_, err := book.SubmitLimit(1, orderbook.Bid, 100, 10)
	require.NoError(t, err)

	w := &Writer{Dir: dir}
	require.NoError(t, w.Write(1, book))
	require.NoError(t, w.Write(2, book))

	// No temp residue; exactly one stable image.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.bin", entries[0].Name())

	rebuilt := testBook()
	seq, err := Load(dir, rebuilt)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
}

func TestReaderEpochLifecycle(t *testing.T) {
	r := NewReader()
	before := r.Epoch().Value()
	r.Begin()
	assert.NotEqual(t, before, r.Epoch().Value())
	r.End()
	assert.Equal(t, before, r.Epoch().Value())
}
