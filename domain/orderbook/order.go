package orderbook

// OrderID identifies an order for the lifetime of the book. Ids are
// caller-supplied and must be nonzero: 0 is the reserved nil link in
// the per-level FIFO queues.
type OrderID uint64

// LevelID addresses a price level in the level arena. Ids are assigned
// by the arena starting at 1; 0 is the tree sentinel.
type LevelID uint64

type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

type OrderType uint8

const (
	Limit OrderType = iota
	Market
	IOC
	FOK
	PostOnly
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "limit"
	case Market:
		return "market"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	case PostOnly:
		return "post_only"
	default:
		return "unknown"
	}
}

// Order is one resting or in-flight order. Shares is the remaining
// unfilled quantity and is mutated only by fills. The prev/next links
// thread the order through its level's FIFO queue; level is the weak
// back-reference used for O(1) cancellation.
type Order struct {
	ID     OrderID
	Side   Side
	Type   OrderType
	Price  uint64
	Shares uint64
	SeqID  uint64

	prev  OrderID
	next  OrderID
	level LevelID

	retireEpoch uint64
}

// Next returns the id of the order behind this one in its level queue,
// or 0 at the tail.
func (o *Order) Next() OrderID { return o.next }

// Level returns the id of the owning price level, or 0 if the order
// is not resting.
func (o *Order) Level() LevelID { return o.level }

// Reset, RetireEpoch and SetRetireEpoch satisfy the record contract of
// the memory package for pooled, epoch-reclaimed objects.
func (o *Order) Reset()                  { *o = Order{} }
func (o *Order) RetireEpoch() uint64     { return o.retireEpoch }
func (o *Order) SetRetireEpoch(v uint64) { o.retireEpoch = v }
