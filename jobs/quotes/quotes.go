// Package quotes publishes top-of-book updates on a ticker. Best
// bid/ask snapshots are idempotent, so dropped or duplicated messages
// cost nothing and need no outbox.
package quotes

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"matchbook/engine"
	"matchbook/infra/kafka"
)

type Quote struct {
	Seq      uint64 `json:"seq"`
	Time     int64  `json:"time"`
	BidPrice uint64 `json:"bid_price,omitempty"`
	BidSize  uint64 `json:"bid_size,omitempty"`
	AskPrice uint64 `json:"ask_price,omitempty"`
	AskSize  uint64 `json:"ask_size,omitempty"`
}

type Publisher struct {
	svc      *engine.OrderService
	producer *kafka.Producer
	interval time.Duration

	lastSeq uint64
}

func NewPublisher(svc *engine.OrderService, producer *kafka.Producer, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{svc: svc, producer: producer, interval: interval}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	seq := p.svc.LastSeq()
	if seq == p.lastSeq {
		return // book unchanged since the last tick
	}

	q := Quote{Seq: seq, Time: time.Now().UnixNano()}
	if bid, ok := p.svc.BestBid(); ok {
		q.BidPrice = bid.Price
		q.BidSize = bid.TotalShares
	}
	if ask, ok := p.svc.BestAsk(); ok {
		q.AskPrice = ask.Price
		q.AskSize = ask.TotalShares
	}

	payload, err := json.Marshal(&q)
	if err != nil {
		log.Printf("quotes: marshal: %v", err)
		return
	}
	if err := p.producer.Send(ctx, []byte("bbo"), payload); err != nil {
		log.Printf("quotes: publish: %v", err)
		return
	}
	p.lastSeq = seq
}
