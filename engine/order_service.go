package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"matchbook/domain/orderbook"
	"matchbook/infra/memory"
	"matchbook/infra/sequence"
	"matchbook/infra/wal/entry"
	"matchbook/infra/wal/exit"
	"matchbook/snapshot"
)

// ErrStopped is returned for commands submitted after Stop.
var ErrStopped = errors.New("engine: service stopped")

type cmdKind uint8

const (
	cmdSubmit cmdKind = iota
	cmdCancel
	cmdSnapshot
)

type command struct {
	kind  cmdKind
	req   orderbook.Request
	id    orderbook.OrderID
	reply chan result
}

type result struct {
	fills []orderbook.Fill
	seq   uint64
	err   error
}

// RestingOrder is a copied view of one queued order, safe to hold
// after the read section ends.
type RestingOrder struct {
	ID     uint64 `json:"id"`
	Side   string `json:"side"`
	Price  uint64 `json:"price"`
	Shares uint64 `json:"shares"`
	SeqID  uint64 `json:"seq_id"`
}

// OrderService is the only write entry point into the system. All
// coordination between the book, the WALs, snapshots, and memory
// reclamation happens on its owner goroutine: a submit or cancel is
// atomic with respect to all matching it triggers, and callers observe
// either "not yet applied" or "fully applied including fills".
type OrderService struct {
	book     *orderbook.OrderBook
	pool     *memory.Pool[orderbook.Order]
	ring     *memory.RetireRing[orderbook.Order]
	reader   *snapshot.Reader
	seq      *sequence.Sequencer
	entryWAL *entry.WAL
	exitWAL  *exit.WAL
	snapshot *snapshot.Writer

	// mu serializes access to the book's maps and trees: the owner
	// goroutine takes the write lock around mutations, queries take the
	// read lock on their own goroutines. The epoch guard on top of it
	// defers record recycling, it does not order map access.
	mu sync.RWMutex

	cmds     chan command
	done     chan struct{}
	stopOnce sync.Once
}

// NewOrderService wires all dependencies. No globals.
func NewOrderService(
	book *orderbook.OrderBook,
	pool *memory.Pool[orderbook.Order],
	ring *memory.RetireRing[orderbook.Order],
	reader *snapshot.Reader,
	seq *sequence.Sequencer,
	entryWAL *entry.WAL,
	exitWAL *exit.WAL,
	snapWriter *snapshot.Writer,
) *OrderService {
	return &OrderService{
		book:     book,
		pool:     pool,
		ring:     ring,
		reader:   reader,
		seq:      seq,
		entryWAL: entryWAL,
		exitWAL:  exitWAL,
		snapshot: snapWriter,
		cmds:     make(chan command, 4096),
		done:     make(chan struct{}),
	}
}

// Start launches the owner goroutine.
func (s *OrderService) Start() {
	go s.run()
}

// Stop drains no further commands; in-flight ones get ErrStopped.
// Safe to call more than once.
func (s *OrderService) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *OrderService) run() {
	for {
		select {
		case <-s.done:
			return
		case cmd := <-s.cmds:
			switch cmd.kind {
			case cmdSubmit:
				cmd.reply <- s.applySubmit(cmd.req)
			case cmdCancel:
				cmd.reply <- s.applyCancel(cmd.id)
			case cmdSnapshot:
				cmd.reply <- s.applySnapshot()
			}
		}
	}
}

func (s *OrderService) dispatch(cmd command) result {
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return result{err: ErrStopped}
	}
	select {
	case res := <-cmd.reply:
		return res
	case <-s.done:
		return result{err: ErrStopped}
	}
}

// ------------------------------------------------
// Commands
// ------------------------------------------------

// Submit places an order and returns its fills and assigned sequence.
func (s *OrderService) Submit(req orderbook.Request) ([]orderbook.Fill, uint64, error) {
	res := s.dispatch(command{kind: cmdSubmit, req: req, reply: make(chan result, 1)})
	return res.fills, res.seq, res.err
}

// Cancel removes a resting order and returns the command's assigned
// sequence.
func (s *OrderService) Cancel(id orderbook.OrderID) (uint64, error) {
	res := s.dispatch(command{kind: cmdCancel, id: id, reply: make(chan result, 1)})
	return res.seq, res.err
}

// SnapshotNow writes a durable snapshot on the matching timeline and
// truncates the entry WAL behind it.
func (s *OrderService) SnapshotNow() (uint64, error) {
	res := s.dispatch(command{kind: cmdSnapshot, reply: make(chan result, 1)})
	return res.seq, res.err
}

// applySubmit is the ordered write path: sequence, log, match, outbox.
func (s *OrderService) applySubmit(req orderbook.Request) result {
	seq := s.seq.Next()
	req.Seq = seq

	if err := s.entryWAL.Append(entry.NewRecord(entry.RecordSubmit, seq, encodeSubmit(req))); err != nil {
		return result{err: fmt.Errorf("engine: wal append: %w", err)}
	}

	s.mu.Lock()
	fills, err := s.book.Submit(req)
	s.mu.Unlock()

	if len(fills) > 0 {
		payload, mErr := encodeReport(seq, req, fills)
		if mErr == nil {
			mErr = s.exitWAL.PutNew(seq, payload)
		}
		if mErr != nil {
			// Fills already happened; the outbox miss only costs
			// downstream delivery, never book consistency.
			log.Printf("engine: outbox write failed for seq %d: %v", seq, mErr)
		}
	}

	return result{fills: fills, seq: seq, err: err}
}

func (s *OrderService) applyCancel(id orderbook.OrderID) result {
	seq := s.seq.Next()

	if err := s.entryWAL.Append(entry.NewRecord(entry.RecordCancel, seq, encodeCancel(id))); err != nil {
		return result{err: fmt.Errorf("engine: wal append: %w", err)}
	}

	s.mu.Lock()
	err := s.book.Cancel(id)
	if err == nil {
		// A cancel moves the book (and possibly the top of it) just
		// like a submit; downstream publishers dedupe on this.
		s.book.LastSeq.Store(seq)
	}
	s.mu.Unlock()

	return result{seq: seq, err: err}
}

func (s *OrderService) applySnapshot() result {
	seq := s.seq.Current()
	if err := s.snapshot.Write(seq, s.book); err != nil {
		return result{err: fmt.Errorf("engine: snapshot write: %w", err)}
	}
	if err := s.entryWAL.TruncateBefore(seq); err != nil {
		return result{seq: seq, err: fmt.Errorf("engine: wal truncate: %w", err)}
	}
	return result{seq: seq}
}

// ------------------------------------------------
// Queries
// ------------------------------------------------

// BestBid returns the top of the bid side.
func (s *OrderService) BestBid() (orderbook.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.reader.Begin()
	defer s.reader.End()
	return s.book.BestBid()
}

// BestAsk returns the top of the ask side.
func (s *OrderService) BestAsk() (orderbook.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.reader.Begin()
	defer s.reader.End()
	return s.book.BestAsk()
}

// DepthAt returns the aggregates at one price level.
func (s *OrderService) DepthAt(side orderbook.Side, price uint64) (orderbook.Depth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.reader.Begin()
	defer s.reader.End()
	return s.book.DepthAt(side, price)
}

// Resting returns a copied view of every queued order, bids best-first
// then asks best-first.
func (s *OrderService) Resting() []RestingOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.reader.Begin()
	defer s.reader.End()

	out := make([]RestingOrder, 0, 1024)
	collect := func(lvl *orderbook.PriceLevel) bool {
		s.book.EachOrder(lvl, func(o *orderbook.Order) {
			out = append(out, RestingOrder{
				ID:     uint64(o.ID),
				Side:   o.Side.String(),
				Price:  o.Price,
				Shares: o.Shares,
				SeqID:  o.SeqID,
			})
		})
		return true
	}
	s.book.BidsWalk(collect)
	s.book.AsksWalk(collect)
	return out
}

// Levels reports the number of price levels on side.
func (s *OrderService) Levels(side orderbook.Side) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.reader.Begin()
	defer s.reader.End()
	return s.book.Levels(side)
}

// LastSeq reports the most recently applied command sequence.
func (s *OrderService) LastSeq() uint64 {
	return s.book.LastSeq.Load()
}

// ------------------------------------------------
// Reclamation
// ------------------------------------------------

// AdvanceEpoch performs safe reclamation of retired order records.
// Called periodically by a background job.
func (s *OrderService) AdvanceEpoch() {
	memory.AdvanceEpochAndReclaim(s.ring, s.pool, s.reader.Epoch())
}
