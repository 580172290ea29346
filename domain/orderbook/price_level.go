package orderbook

type Color uint8

const (
	red   Color = 0
	black Color = 1
)

// PriceLevel aggregates the resting liquidity at one price on one side
// and doubles as a node of that side's red-black tree. The FIFO queue
// is threaded through the member orders' prev/next links: head is the
// oldest order (next to fill), tail the most recently appended.
//
// Invariant: OrderCount == 0 iff head == tail == 0, and an empty level
// is removed from its tree and lookup map in the same step that
// empties it.
type PriceLevel struct {
	id    LevelID
	Price uint64
	Side  Side

	OrderCount    uint64
	TotalShares   uint64
	TotalNotional uint64

	head OrderID
	tail OrderID

	left   LevelID
	right  LevelID
	parent LevelID
	color  Color
}

// ID returns the arena id of the level.
func (l *PriceLevel) ID() LevelID { return l.id }

// Head returns the id of the next order to fill, or 0 if empty.
func (l *PriceLevel) Head() OrderID { return l.head }

// Enqueue appends o at the tail of the queue and folds it into the
// level aggregates. Overflow of the aggregates must have been ruled
// out by the caller before any mutation.
func (l *PriceLevel) Enqueue(orders *OrderArena, o *Order) {
	o.level = l.id
	o.prev = l.tail
	o.next = 0
	if l.tail == 0 {
		l.head = o.ID
	} else {
		orders.Get(l.tail).next = o.ID
	}
	l.tail = o.ID

	l.OrderCount++
	l.TotalShares += o.Shares
	l.TotalNotional += l.Price * o.Shares
}

// Unlink splices o out of the queue in O(1) using its own links and
// subtracts its remaining shares from the aggregates. The order itself
// is left untouched so in-flight readers can still follow its next
// pointer.
func (l *PriceLevel) Unlink(orders *OrderArena, o *Order) {
	if o.prev != 0 {
		orders.Get(o.prev).next = o.next
	} else {
		l.head = o.next
	}
	if o.next != 0 {
		orders.Get(o.next).prev = o.prev
	} else {
		l.tail = o.prev
	}

	l.OrderCount--
	l.TotalShares -= o.Shares
	l.TotalNotional -= l.Price * o.Shares
}

// consume reduces the aggregates after a partial fill of a queued
// order. The order's own Shares must be decremented by the caller.
func (l *PriceLevel) consume(qty uint64) {
	l.TotalShares -= qty
	l.TotalNotional -= l.Price * qty
}
