// Package broadcaster drains the fill outbox to Kafka. At-least-once:
// a record is marked SENT before publish and ACKED after the broker
// confirms, so a crash in between replays the fill on the next pass.
// Downstream consumers deduplicate on the sequence id.
package broadcaster

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"matchbook/infra/wal/exit"
)

type Broadcaster struct {
	outbox   *exit.WAL
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

func New(outbox *exit.WAL, brokers []string, topic string, interval time.Duration) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Broadcaster{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: interval,
	}, nil
}

func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(rec *exit.Record) error {
		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(keyFor(rec.Seq)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			log.Printf("broadcaster: publish seq %d: %v", rec.Seq, err)
			_ = b.outbox.MarkFailed(rec.Seq)
			return nil // keep draining; the record retries next pass
		}

		return b.outbox.MarkAcked(rec.Seq)
	})
	if err != nil {
		log.Printf("broadcaster: outbox scan: %v", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

// keyFor gives every report a stable key so redeliveries land on the
// same partition and consumers can dedupe by sequence.
func keyFor(seq uint64) string {
	return "fill-" + strconv.FormatUint(seq, 10)
}
