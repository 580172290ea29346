package orderbook

import "matchbook/infra/memory"

// OrderArena owns every live Order record, addressed by order id.
// Records come out of a shared pool and go back through an optional
// retire hook so epoch-based readers never see a recycled struct.
type OrderArena struct {
	byID   map[OrderID]*Order
	pool   *memory.Pool[Order]
	retire func(*Order)
}

// NewOrderArena builds an arena over pool. retire, if non-nil, receives
// every record removed from the arena instead of an immediate return to
// the pool; the engine points it at a retire ring drained after epoch
// advancement. A nil retire recycles synchronously, which is only safe
// while no concurrent readers exist.
func NewOrderArena(pool *memory.Pool[Order], retire func(*Order)) *OrderArena {
	return &OrderArena{
		byID:   make(map[OrderID]*Order),
		pool:   pool,
		retire: retire,
	}
}

// Alloc returns a zeroed record not yet visible in the arena.
func (a *OrderArena) Alloc() *Order {
	o := a.pool.Get()
	o.Reset()
	return o
}

// Insert makes o addressable by its id. The id must not be live.
func (a *OrderArena) Insert(o *Order) {
	a.byID[o.ID] = o
}

// Get returns the record for id, or nil.
func (a *OrderArena) Get(id OrderID) *Order {
	return a.byID[id]
}

// Remove deletes o from the arena and hands the record to the retire
// hook. After Remove the id may be reused by the caller's id space,
// though the engine never does.
func (a *OrderArena) Remove(o *Order) {
	delete(a.byID, o.ID)
	a.Release(o)
}

// Release recycles a record that was never inserted (for example a
// taker that fully filled), or one already deleted from the map.
func (a *OrderArena) Release(o *Order) {
	if a.retire != nil {
		a.retire(o)
		return
	}
	o.Reset()
	a.pool.Put(o)
}

// Len reports the number of live orders.
func (a *OrderArena) Len() int { return len(a.byID) }

// LevelArena owns every PriceLevel record, addressed by level id.
// Ids are monotonic and never reused, so a stale id from a concurrent
// reader resolves to nil rather than an unrelated level. Level records
// are not pooled: they are long-lived relative to orders and may still
// be traversed by epoch readers after deletion.
type LevelArena struct {
	byID map[LevelID]*PriceLevel
	next LevelID
}

func NewLevelArena() *LevelArena {
	return &LevelArena{byID: make(map[LevelID]*PriceLevel)}
}

// Alloc creates a fresh level for price/side and registers it.
func (a *LevelArena) Alloc(price uint64, side Side) *PriceLevel {
	a.next++
	l := &PriceLevel{id: a.next, Price: price, Side: side}
	a.byID[l.id] = l
	return l
}

// Get returns the level for id, or nil. Id 0 is never present.
func (a *LevelArena) Get(id LevelID) *PriceLevel {
	return a.byID[id]
}

// Remove forgets the level. The record stays intact for readers still
// holding it.
func (a *LevelArena) Remove(id LevelID) {
	delete(a.byID, id)
}

// Len reports the number of live levels across both sides.
func (a *LevelArena) Len() int { return len(a.byID) }
