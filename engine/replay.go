package engine

import (
	"errors"
	"fmt"
	"log"

	"matchbook/domain/orderbook"
	"matchbook/infra/sequence"
	"matchbook/infra/wal/entry"
	"matchbook/snapshot"
)

// Recover rebuilds the in-memory book from the latest snapshot plus
// the entry WAL tail, and resumes the sequencer after the last applied
// command. Must run before the service accepts traffic. The exit WAL
// is not replayed here; the broadcaster owns its pending records.
func Recover(
	snapDir string,
	walDir string,
	book *orderbook.OrderBook,
	seqGen *sequence.Sequencer,
) error {
	snapSeq, err := snapshot.Load(snapDir, book)
	if err != nil {
		return fmt.Errorf("engine: snapshot load: %w", err)
	}

	lastSeq, err := entry.Replay(walDir, func(rec *entry.Record) error {
		if rec.Seq <= snapSeq {
			// Covered by the snapshot; segments kept only because the
			// active one is never truncated.
			return nil
		}
		return applyRecord(book, rec)
	})
	if err != nil {
		return fmt.Errorf("engine: wal replay: %w", err)
	}

	if lastSeq < snapSeq {
		lastSeq = snapSeq
	}
	seqGen.Reset(lastSeq)

	log.Printf("engine: recovery complete (snapshot seq=%d, last seq=%d, resting=%d)",
		snapSeq, lastSeq, book.Orders())
	return nil
}

func applyRecord(book *orderbook.OrderBook, rec *entry.Record) error {
	switch rec.Type {
	case entry.RecordSubmit:
		req, err := decodeSubmit(rec.Data)
		if err != nil {
			return err
		}
		req.Seq = rec.Seq
		if _, err := book.Submit(req); err != nil {
			// Rejections replay identically to live traffic; they are
			// part of the timeline, not recovery failures.
			if isRejection(err) {
				return nil
			}
			return err
		}
	case entry.RecordCancel:
		id, err := decodeCancel(rec.Data)
		if err != nil {
			return err
		}
		if err := book.Cancel(id); err != nil && !errors.Is(err, orderbook.ErrOrderNotFound) {
			return err
		}
	default:
		return fmt.Errorf("engine: unknown wal record type %d", rec.Type)
	}
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, orderbook.ErrInvalidOrder) ||
		errors.Is(err, orderbook.ErrDuplicateOrderID) ||
		errors.Is(err, orderbook.ErrOverflow) ||
		errors.Is(err, orderbook.ErrWouldCross) ||
		errors.Is(err, orderbook.ErrUnfillable) ||
		errors.Is(err, orderbook.ErrUnfilled)
}
