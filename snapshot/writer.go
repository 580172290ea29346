package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"matchbook/domain/orderbook"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write persists every resting order at sequence seq. The temp-file
// rename makes the snapshot atomic: a crash mid-write leaves the
// previous image intact.
func (w *Writer) Write(seq uint64, book *orderbook.OrderBook) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	s := Snapshot{
		Seq:     seq,
		Created: time.Now(),
		Orders:  make([]OrderEntry, 0, 1024),
	}

	collect := func(lvl *orderbook.PriceLevel) bool {
		book.EachOrder(lvl, func(o *orderbook.Order) {
			s.Orders = append(s.Orders, OrderEntry{
				ID:     uint64(o.ID),
				Side:   uint8(o.Side),
				Type:   uint8(o.Type),
				Price:  o.Price,
				Shares: o.Shares,
				SeqID:  o.SeqID,
			})
		})
		return true
	}
	book.BidsWalk(collect)
	book.AsksWalk(collect)

	tmp := filepath.Join(w.Dir, fileName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(w.Dir, fileName))
}
