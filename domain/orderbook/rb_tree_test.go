package orderbook

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(side Side) *PriceIndex {
	return NewPriceIndex(NewLevelArena(), side)
}

// checkRB verifies the red-black invariants and BST order, and returns
// the number of nodes seen.
func checkRB(t *testing.T, tr *PriceIndex) int {
	t.Helper()
	if tr.root == 0 {
		require.Equal(t, 0, tr.size)
		require.Equal(t, LevelID(0), tr.best)
		return 0
	}
	root := tr.arena.Get(tr.root)
	require.Equal(t, black, root.color, "root must be black")
	require.Equal(t, LevelID(0), root.parent)

	count := 0
	var walk func(id LevelID, min, max uint64) int
	walk = func(id LevelID, min, max uint64) int {
		if id == 0 {
			return 1 // sentinel counts one black
		}
		n := tr.arena.Get(id)
		require.NotNil(t, n, "dangling level id %d", id)
		require.Greater(t, n.Price, min)
		require.Less(t, n.Price, max)
		if n.color == red {
			require.Equal(t, black, tr.node(n.left).color, "red node %d has red left child", id)
			require.Equal(t, black, tr.node(n.right).color, "red node %d has red right child", id)
		}
		if n.left != 0 {
			require.Equal(t, id, tr.arena.Get(n.left).parent)
		}
		if n.right != 0 {
			require.Equal(t, id, tr.arena.Get(n.right).parent)
		}
		count++
		lh := walk(n.left, min, n.Price)
		rh := walk(n.right, n.Price, max)
		require.Equal(t, lh, rh, "black height mismatch at price %d", n.Price)
		if n.color == black {
			return lh + 1
		}
		return lh
	}
	walk(tr.root, 0, ^uint64(0))
	require.Equal(t, count, tr.size)
	return count
}

// bestByScan finds the true best price by full walk.
func bestByScan(tr *PriceIndex) *PriceLevel {
	var best *PriceLevel
	tr.ForEachAscending(func(l *PriceLevel) bool {
		if best == nil || tr.better(l.Price, best.Price) {
			best = l
		}
		return true
	})
	return best
}

func TestInsertFindDelete(t *testing.T) {
	tr := newTestIndex(Ask)

	l1 := tr.Insert(100)
	require.NotNil(t, l1)
	assert.Same(t, l1, tr.Find(100))

	tr.Insert(200)
	assert.Equal(t, uint64(100), tr.Best().Price)
	assert.Equal(t, 2, tr.Size())

	tr.Delete(l1)
	assert.Nil(t, tr.Find(100))
	assert.Equal(t, uint64(200), tr.Best().Price)
	checkRB(t, tr)
}

func TestInsertIdempotent(t *testing.T) {
	tr := newTestIndex(Bid)
	l1 := tr.Insert(150)
	l2 := tr.Insert(150)
	assert.Same(t, l1, l2)
	assert.Equal(t, 1, tr.Size())
}

func TestEmptyIndex(t *testing.T) {
	tr := newTestIndex(Bid)
	assert.Nil(t, tr.Best())
	assert.Nil(t, tr.Find(42))
	assert.Equal(t, 0, tr.Size())
}

func TestBestPerSide(t *testing.T) {
	bids := newTestIndex(Bid)
	asks := newTestIndex(Ask)
	for _, p := range []uint64{500, 300, 700, 400} {
		bids.Insert(p)
		asks.Insert(p)
	}
	assert.Equal(t, uint64(700), bids.Best().Price, "bid best is max")
	assert.Equal(t, uint64(300), asks.Best().Price, "ask best is min")
}

func TestSuccessorPredecessor(t *testing.T) {
	tr := newTestIndex(Ask)
	for _, p := range []uint64{50, 10, 30, 70, 20, 60} {
		tr.Insert(p)
	}
	l := tr.Find(30)
	require.NotNil(t, l)
	assert.Equal(t, uint64(50), tr.Successor(l).Price)
	assert.Equal(t, uint64(20), tr.Predecessor(l).Price)

	assert.Nil(t, tr.Predecessor(tr.Find(10)))
	assert.Nil(t, tr.Successor(tr.Find(70)))
}

// Monotonic price arrival is the adversarial case for an unbalanced
// tree; the balancing must keep it logarithmic and valid.
func TestMonotonicInsertStaysBalanced(t *testing.T) {
	for _, side := range []Side{Bid, Ask} {
		tr := newTestIndex(side)
		for p := uint64(1); p <= 1024; p++ {
			tr.Insert(p)
		}
		checkRB(t, tr)
		assert.Equal(t, bestByScan(tr).Price, tr.Best().Price)

		for p := uint64(1); p <= 1024; p++ {
			tr.Delete(tr.Find(p))
			if p%101 == 0 {
				checkRB(t, tr)
			}
		}
		checkRB(t, tr)
		assert.Nil(t, tr.Best())
	}
}

func TestRandomizedInsertDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := newTestIndex(Bid)
	live := make(map[uint64]bool)

	for i := 0; i < 5000; i++ {
		p := uint64(rng.Intn(400) + 1)
		if live[p] && rng.Intn(2) == 0 {
			tr.Delete(tr.Find(p))
			delete(live, p)
		} else {
			tr.Insert(p)
			live[p] = true
		}

		if i%250 == 0 {
			checkRB(t, tr)
			if best := tr.Best(); best != nil {
				assert.Equal(t, bestByScan(tr).Price, best.Price)
			} else {
				assert.Empty(t, live)
			}
		}
	}
	checkRB(t, tr)
	assert.Equal(t, len(live), tr.Size())
}

func TestWalkOrderAndEarlyStop(t *testing.T) {
	tr := newTestIndex(Ask)
	for _, p := range []uint64{5, 3, 9, 1, 7} {
		tr.Insert(p)
	}

	var asc []uint64
	tr.ForEachAscending(func(l *PriceLevel) bool {
		asc = append(asc, l.Price)
		return true
	})
	assert.Equal(t, []uint64{1, 3, 5, 7, 9}, asc)

	var desc []uint64
	tr.ForEachDescending(func(l *PriceLevel) bool {
		desc = append(desc, l.Price)
		return len(desc) < 2
	})
	assert.Equal(t, []uint64{9, 7}, desc)
}
