package orderbook

import "errors"

// All errors are local and recoverable: a rejected operation leaves
// every book invariant intact. ErrUnfilled is the one exception to
// "book unchanged"; it accompanies the fills a market order did get
// when the book is configured to reject remainders.
var (
	ErrInvalidOrder     = errors.New("orderbook: invalid order")
	ErrOrderNotFound    = errors.New("orderbook: order not found")
	ErrDuplicateOrderID = errors.New("orderbook: duplicate order id")
	ErrOverflow         = errors.New("orderbook: aggregate overflow")
	ErrWouldCross       = errors.New("orderbook: post-only order would cross")
	ErrUnfillable       = errors.New("orderbook: fill-or-kill cannot be fully filled")
	ErrUnfilled         = errors.New("orderbook: market order not fully filled")
)
