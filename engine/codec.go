package engine

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"matchbook/domain/orderbook"
)

// Binary payloads for entry WAL records. Fixed-width big-endian frames,
// like the WAL framing itself.
//
//	submit: [id:8][side:1][type:1][price:8][shares:8]
//	cancel: [id:8]

const (
	submitLen = 8 + 1 + 1 + 8 + 8
	cancelLen = 8
)

var errBadPayload = errors.New("engine: malformed wal payload")

func encodeSubmit(req orderbook.Request) []byte {
	buf := make([]byte, submitLen)
	binary.BigEndian.PutUint64(buf[0:8], uint64(req.ID))
	buf[8] = byte(req.Side)
	buf[9] = byte(req.Type)
	binary.BigEndian.PutUint64(buf[10:18], req.Price)
	binary.BigEndian.PutUint64(buf[18:26], req.Shares)
	return buf
}

func decodeSubmit(b []byte) (orderbook.Request, error) {
	if len(b) != submitLen {
		return orderbook.Request{}, errBadPayload
	}
	return orderbook.Request{
		ID:     orderbook.OrderID(binary.BigEndian.Uint64(b[0:8])),
		Side:   orderbook.Side(b[8]),
		Type:   orderbook.OrderType(b[9]),
		Price:  binary.BigEndian.Uint64(b[10:18]),
		Shares: binary.BigEndian.Uint64(b[18:26]),
	}, nil
}

func encodeCancel(id orderbook.OrderID) []byte {
	buf := make([]byte, cancelLen)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeCancel(b []byte) (orderbook.OrderID, error) {
	if len(b) != cancelLen {
		return 0, errBadPayload
	}
	return orderbook.OrderID(binary.BigEndian.Uint64(b)), nil
}

// ExecutionReport is the outbox payload for one command's fills. JSON,
// since it crosses the process boundary to the broker.
type ExecutionReport struct {
	Seq     uint64           `json:"seq"`
	TakerID uint64           `json:"taker_id"`
	Side    string           `json:"side"`
	Fills   []ExecutionEntry `json:"fills"`
}

type ExecutionEntry struct {
	MakerID uint64 `json:"maker_id"`
	Price   uint64 `json:"price"`
	Qty     uint64 `json:"qty"`
}

func encodeReport(seq uint64, req orderbook.Request, fills []orderbook.Fill) ([]byte, error) {
	rep := ExecutionReport{
		Seq:     seq,
		TakerID: uint64(req.ID),
		Side:    req.Side.String(),
		Fills:   make([]ExecutionEntry, 0, len(fills)),
	}
	for _, f := range fills {
		rep.Fills = append(rep.Fills, ExecutionEntry{
			MakerID: uint64(f.MakerID),
			Price:   f.Price,
			Qty:     f.Qty,
		})
	}
	return json.Marshal(&rep)
}
