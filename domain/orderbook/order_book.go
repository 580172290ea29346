package orderbook

import (
	"math"
	"sync/atomic"

	"matchbook/infra/memory"
)

// Fill is one trade: a resting (maker) order consumed, fully or
// partially, by an incoming (taker) order. Price is always the maker
// level's price under price-time priority.
type Fill struct {
	MakerID OrderID
	TakerID OrderID
	Price   uint64
	Qty     uint64
}

// Quote is a top-of-book summary for one side.
type Quote struct {
	Price       uint64
	TotalShares uint64
}

// Depth is the aggregate state of one price level.
type Depth struct {
	OrderCount    uint64
	TotalShares   uint64
	TotalNotional uint64
}

// MarketPolicy decides what happens to the unfilled remainder of a
// market order once the opposite side is exhausted.
type MarketPolicy uint8

const (
	// DropRemainder discards the remainder and returns the fills.
	DropRemainder MarketPolicy = iota
	// RejectRemainder still returns the fills but flags the shortfall
	// with ErrUnfilled so the caller can react.
	RejectRemainder
)

// Request is a fully-formed incoming order.
type Request struct {
	ID     OrderID
	Side   Side
	Type   OrderType
	Price  uint64
	Shares uint64
	Seq    uint64
}

// OrderBook composes the order and level arenas, the two price
// indexes, and per-side price lookup maps. One book is one instrument
// and one matching timeline; it holds no locks and must be driven by a
// single writer.
type OrderBook struct {
	orders *OrderArena
	levels *LevelArena

	bids *PriceIndex
	asks *PriceIndex

	bidLookup map[uint64]LevelID
	askLookup map[uint64]LevelID

	marketPolicy MarketPolicy

	// LastSeq is the sequence of the most recently applied command,
	// readable without entering the write path.
	LastSeq atomic.Uint64
}

// Option configures a book at construction.
type Option func(*OrderBook)

// WithMarketPolicy overrides the default DropRemainder behavior.
func WithMarketPolicy(p MarketPolicy) Option {
	return func(b *OrderBook) { b.marketPolicy = p }
}

// New creates an empty book. Order records are drawn from pool; retire,
// if non-nil, receives removed records for epoch-deferred recycling.
func New(pool *memory.Pool[Order], retire func(*Order), opts ...Option) *OrderBook {
	levels := NewLevelArena()
	b := &OrderBook{
		orders:    NewOrderArena(pool, retire),
		levels:    levels,
		bids:      NewPriceIndex(levels, Bid),
		asks:      NewPriceIndex(levels, Ask),
		bidLookup: make(map[uint64]LevelID),
		askLookup: make(map[uint64]LevelID),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubmitLimit places a limit order, matching it against the opposite
// side first and resting any remainder.
func (b *OrderBook) SubmitLimit(id OrderID, side Side, price, shares uint64) ([]Fill, error) {
	return b.Submit(Request{ID: id, Side: side, Type: Limit, Price: price, Shares: shares})
}

// SubmitMarket places a market order: it matches at any price and
// never rests.
func (b *OrderBook) SubmitMarket(id OrderID, side Side, shares uint64) ([]Fill, error) {
	return b.Submit(Request{ID: id, Side: side, Type: Market, Shares: shares})
}

// Submit validates and applies one incoming order. A non-nil error
// other than ErrUnfilled means the book was not mutated at all.
func (b *OrderBook) Submit(req Request) ([]Fill, error) {
	if req.ID == 0 || req.Shares == 0 {
		return nil, ErrInvalidOrder
	}
	if req.Type != Market && req.Price == 0 {
		return nil, ErrInvalidOrder
	}
	if b.orders.Get(req.ID) != nil {
		return nil, ErrDuplicateOrderID
	}
	if req.Type == Limit || req.Type == PostOnly {
		if err := b.checkOverflow(req.Side, req.Price, req.Shares); err != nil {
			return nil, err
		}
	}

	switch req.Type {
	case PostOnly:
		if best := b.index(req.Side.Opposite()).Best(); best != nil && crosses(req.Side, req.Price, best.Price) {
			return nil, ErrWouldCross
		}
	case FOK:
		if b.availableWithin(req.Side, req.Price) < req.Shares {
			return nil, ErrUnfillable
		}
	}

	o := b.orders.Alloc()
	*o = Order{
		ID:     req.ID,
		Side:   req.Side,
		Type:   req.Type,
		Price:  req.Price,
		Shares: req.Shares,
		SeqID:  req.Seq,
	}
	b.LastSeq.Store(req.Seq)

	var fills []Fill
	if req.Type != PostOnly {
		fills = b.match(o)
	}

	switch req.Type {
	case Limit, PostOnly:
		if o.Shares > 0 {
			b.rest(o)
			return fills, nil
		}
	case Market:
		if o.Shares > 0 && b.marketPolicy == RejectRemainder {
			b.orders.Release(o)
			return fills, ErrUnfilled
		}
	}
	// Fully filled, or an IOC/FOK/market remainder being dropped.
	b.orders.Release(o)
	return fills, nil
}

// Cancel splices the order out of its level queue in O(1), deleting
// the level if it empties.
func (b *OrderBook) Cancel(id OrderID) error {
	o := b.orders.Get(id)
	if o == nil {
		return ErrOrderNotFound
	}
	lvl := b.levels.Get(o.level)
	lvl.Unlink(b.orders, o)
	if lvl.OrderCount == 0 {
		b.dropLevel(lvl)
	}
	b.orders.Remove(o)
	return nil
}

// BestBid returns the highest bid level's price and volume.
func (b *OrderBook) BestBid() (Quote, bool) { return b.best(b.bids) }

// BestAsk returns the lowest ask level's price and volume.
func (b *OrderBook) BestAsk() (Quote, bool) { return b.best(b.asks) }

func (b *OrderBook) best(t *PriceIndex) (Quote, bool) {
	l := t.Best()
	if l == nil {
		return Quote{}, false
	}
	return Quote{Price: l.Price, TotalShares: l.TotalShares}, true
}

// DepthAt reports the aggregates of the level at price on side, if one
// exists.
func (b *OrderBook) DepthAt(side Side, price uint64) (Depth, bool) {
	id, ok := b.lookup(side)[price]
	if !ok {
		return Depth{}, false
	}
	l := b.levels.Get(id)
	return Depth{
		OrderCount:    l.OrderCount,
		TotalShares:   l.TotalShares,
		TotalNotional: l.TotalNotional,
	}, true
}

// Levels reports the number of price levels on side.
func (b *OrderBook) Levels(side Side) int { return b.index(side).Size() }

// Orders reports the number of resting orders.
func (b *OrderBook) Orders() int { return b.orders.Len() }

// BidsWalk visits bid levels best-first (descending price).
func (b *OrderBook) BidsWalk(fn func(*PriceLevel) bool) { b.bids.ForEachDescending(fn) }

// AsksWalk visits ask levels best-first (ascending price).
func (b *OrderBook) AsksWalk(fn func(*PriceLevel) bool) { b.asks.ForEachAscending(fn) }

// EachOrder visits l's queue head to tail, oldest first.
func (b *OrderBook) EachOrder(l *PriceLevel, fn func(*Order)) {
	for id := l.head; id != 0; {
		o := b.orders.Get(id)
		id = o.next
		fn(o)
	}
}

/******************** matching ********************/

// crosses reports whether an incoming order at limit can trade against
// an opposite level at price.
func crosses(side Side, limit, price uint64) bool {
	if side == Bid {
		return price <= limit
	}
	return price >= limit
}

// match drains the opposite side best-first until o is exhausted, the
// side empties, or the next price breaches o's limit. Each consumed
// resting order yields one fill at the resting level's price.
func (b *OrderBook) match(o *Order) []Fill {
	opp := b.index(o.Side.Opposite())
	var fills []Fill

	for o.Shares > 0 {
		lvl := opp.Best()
		if lvl == nil {
			break
		}
		if o.Type != Market && !crosses(o.Side, o.Price, lvl.Price) {
			break
		}

		for o.Shares > 0 && lvl.OrderCount > 0 {
			maker := b.orders.Get(lvl.head)
			if maker.Shares > o.Shares {
				qty := o.Shares
				maker.Shares -= qty
				lvl.consume(qty)
				o.Shares = 0
				fills = append(fills, Fill{MakerID: maker.ID, TakerID: o.ID, Price: lvl.Price, Qty: qty})
				break
			}
			qty := maker.Shares
			o.Shares -= qty
			fills = append(fills, Fill{MakerID: maker.ID, TakerID: o.ID, Price: lvl.Price, Qty: qty})
			lvl.Unlink(b.orders, maker)
			b.orders.Remove(maker)
		}

		if lvl.OrderCount == 0 {
			b.dropLevel(lvl)
		}
	}
	return fills
}

// availableWithin sums the opposite-side shares reachable by a limit
// order at price, stopping as soon as the limit is breached. Used for
// the fill-or-kill pre-check; the walk mutates nothing.
func (b *OrderBook) availableWithin(side Side, price uint64) uint64 {
	var sum uint64
	visit := func(l *PriceLevel) bool {
		if !crosses(side, price, l.Price) {
			return false
		}
		sum += l.TotalShares
		return true
	}
	if side == Bid {
		b.asks.ForEachAscending(visit)
	} else {
		b.bids.ForEachDescending(visit)
	}
	return sum
}

// rest inserts o as a resting order at its limit price, creating the
// level lazily.
func (b *OrderBook) rest(o *Order) {
	lookup := b.lookup(o.Side)
	var lvl *PriceLevel
	if id, ok := lookup[o.Price]; ok {
		lvl = b.levels.Get(id)
	} else {
		lvl = b.index(o.Side).Insert(o.Price)
		lookup[o.Price] = lvl.ID()
	}
	lvl.Enqueue(b.orders, o)
	b.orders.Insert(o)
}

// dropLevel removes an emptied level from its tree and lookup map.
func (b *OrderBook) dropLevel(l *PriceLevel) {
	delete(b.lookup(l.Side), l.Price)
	b.index(l.Side).Delete(l)
}

func (b *OrderBook) index(side Side) *PriceIndex {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) lookup(side Side) map[uint64]LevelID {
	if side == Bid {
		return b.bidLookup
	}
	return b.askLookup
}

// checkOverflow rejects an order whose resting would push the target
// level's aggregates past uint64 range. Matching only ever shrinks the
// level, so passing this check up front guarantees the post-match rest
// cannot overflow either.
func (b *OrderBook) checkOverflow(side Side, price, shares uint64) error {
	if price != 0 && shares > math.MaxUint64/price {
		return ErrOverflow
	}
	notional := price * shares
	if id, ok := b.lookup(side)[price]; ok {
		l := b.levels.Get(id)
		if l.TotalShares > math.MaxUint64-shares {
			return ErrOverflow
		}
		if l.TotalNotional > math.MaxUint64-notional {
			return ErrOverflow
		}
	}
	return nil
}
