package engine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/orderbook"
	"matchbook/infra/memory"
	"matchbook/infra/sequence"
	"matchbook/snapshot"
)

func freshBook() *orderbook.OrderBook {
	return orderbook.New(memory.NewPool[orderbook.Order](), nil)
}

// restingSet flattens the book into comparable order views.
func restingSet(book *orderbook.OrderBook) []snapshot.OrderEntry {
	var out []snapshot.OrderEntry
	collect := func(lvl *orderbook.PriceLevel) bool {
		book.EachOrder(lvl, func(o *orderbook.Order) {
			out = append(out, snapshot.OrderEntry{
				ID:     uint64(o.ID),
				Side:   uint8(o.Side),
				Price:  o.Price,
				Shares: o.Shares,
			})
		})
		return true
	}
	book.BidsWalk(collect)
	book.AsksWalk(collect)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func TestRecoverFromWALOnly(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Submit(limit(1, orderbook.Ask, 400, 20))
	require.NoError(t, err)
	_, _, err = env.svc.Submit(limit(2, orderbook.Bid, 500, 10)) // fills 10, rest consumed
	require.NoError(t, err)
	_, _, err = env.svc.Submit(limit(3, orderbook.Bid, 390, 5))
	require.NoError(t, err)
	cancelNoError(t, env.svc, 3)
	want := restingSet(env.book)

	rebuilt := freshBook()
	seqGen := sequence.New(0)
	require.NoError(t, Recover(t.TempDir(), env.walDir, rebuilt, seqGen))

	assert.Equal(t, want, restingSet(rebuilt))
	assert.Equal(t, uint64(4), seqGen.Current(), "sequencer resumes after the last command")

	// The next command continues the timeline, not restarts it.
	assert.Equal(t, uint64(5), seqGen.Next())
}

func TestRecoverFromSnapshotAndTail(t *testing.T) {
	env := newTestEnv(t)

	for i := uint64(1); i <= 5; i++ {
		_, _, err := env.svc.Submit(limit(i, orderbook.Bid, 90+i, 10))
		require.NoError(t, err)
	}
	snapSeq, err := env.svc.SnapshotNow()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), snapSeq)

	// Tail traffic after the snapshot.
	_, _, err = env.svc.Submit(limit(6, orderbook.Ask, 94, 15)) // eats bids at 95 and 94
	require.NoError(t, err)
	cancelNoError(t, env.svc, 1)
	want := restingSet(env.book)

	rebuilt := freshBook()
	seqGen := sequence.New(0)
	require.NoError(t, Recover(env.snapDir, env.walDir, rebuilt, seqGen))

	assert.Equal(t, want, restingSet(rebuilt))
	assert.Equal(t, uint64(7), seqGen.Current())
}

func TestRecoverToleratesReplayedRejections(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Submit(limit(1, orderbook.Bid, 100, 10))
	require.NoError(t, err)
	_, _, err = env.svc.Submit(limit(1, orderbook.Bid, 100, 10)) // logged, rejected
	assert.ErrorIs(t, err, orderbook.ErrDuplicateOrderID)
	cancelErrorIs(t, env.svc, 99, orderbook.ErrOrderNotFound) // logged, rejected

	rebuilt := freshBook()
	require.NoError(t, Recover(t.TempDir(), env.walDir, rebuilt, sequence.New(0)))
	assert.Equal(t, 1, rebuilt.Orders())
}

func TestRecoverEmptyState(t *testing.T) {
	book := freshBook()
	seqGen := sequence.New(0)
	require.NoError(t, Recover(t.TempDir(), t.TempDir(), book, seqGen))
	assert.Zero(t, book.Orders())
	assert.Zero(t, seqGen.Current())
}
