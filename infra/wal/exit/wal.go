// Package exit implements the outbound write-ahead log: a pebble-backed
// outbox of fill events. The matching loop records every fill as NEW
// before replying to the caller; the broadcaster walks pending records,
// publishes them, and advances their state. Delivery is at least once:
// a crash between SENT and ACKED replays the fill.
package exit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one outbox entry keyed by the fill's sequence id.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// value encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeValue(r *Record) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeValue(seq uint64, b []byte) (*Record, error) {
	if len(b) < 13 {
		return nil, errors.New("exit: truncated outbox record")
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return &Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

type WAL struct {
	db *pebble.DB
}

func Open(dir string) (*WAL, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // the outbox is exactly the part that must survive
	})
	if err != nil {
		return nil, err
	}
	return &WAL{db: db}, nil
}

func (w *WAL) Close() error {
	return w.db.Close()
}

// PutNew inserts a NEW outbox entry for a fill.
func (w *WAL) PutNew(seq uint64, payload []byte) error {
	rec := &Record{Seq: seq, State: StateNew, Payload: payload}
	return w.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

// MarkSent flags the record as handed to the broker.
func (w *WAL) MarkSent(seq uint64) error {
	return w.transition(seq, StateSent)
}

// MarkAcked flags the record as acknowledged by the broker.
func (w *WAL) MarkAcked(seq uint64) error {
	return w.transition(seq, StateAcked)
}

// MarkFailed flags the record for retry after a publish error.
func (w *WAL) MarkFailed(seq uint64) error {
	return w.transition(seq, StateFailed)
}

func (w *WAL) transition(seq uint64, state State) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.LastAttempt = time.Now().UnixNano()
	if state == StateFailed {
		rec.Retries++
	}
	return w.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

// Delete removes an ACKED record during cleanup.
func (w *WAL) Delete(seq uint64) error {
	return w.db.Delete(keyFor(seq), pebble.Sync)
}

// Get returns the record for seq.
func (w *WAL) Get(seq uint64) (*Record, error) {
	val, closer, err := w.db.Get(keyFor(seq))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeValue(seq, val)
}

// ScanPending iterates every record not yet acknowledged (NEW, SENT
// after a crash, or FAILED awaiting retry) in sequence order.
func (w *WAL) ScanPending(fn func(*Record) error) error {
	return w.scan(func(rec *Record) error {
		if rec.State == StateAcked {
			return nil
		}
		return fn(rec)
	})
}

// ScanByState iterates records in one state, in sequence order.
func (w *WAL) ScanByState(state State, fn func(*Record) error) error {
	return w.scan(func(rec *Record) error {
		if rec.State != state {
			return nil
		}
		return fn(rec)
	})
}

func (w *WAL) scan(fn func(*Record) error) error {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("fill/"),
		UpperBound: []byte("fill/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeValue(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// keyFor zero-pads the sequence so lexicographic key order is numeric
// order.
func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("fill/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(b), "fill/%d", &seq)
	return seq, err
}
