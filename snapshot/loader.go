package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"matchbook/domain/orderbook"
)

// Load replays the snapshot in dir into book and returns the sequence
// it was taken at. A missing snapshot is not an error: recovery then
// starts from an empty book and the full WAL.
func Load(dir string, book *orderbook.OrderBook) (uint64, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return 0, err
	}

	// A consistent image never crosses, so every entry rests verbatim.
	for _, e := range s.Orders {
		_, err := book.Submit(orderbook.Request{
			ID:     orderbook.OrderID(e.ID),
			Side:   orderbook.Side(e.Side),
			Type:   orderbook.OrderType(e.Type),
			Price:  e.Price,
			Shares: e.Shares,
			Seq:    e.SeqID,
		})
		if err != nil {
			return 0, fmt.Errorf("snapshot: replay order %d: %w", e.ID, err)
		}
	}

	return s.Seq, nil
}
