// Package broadcaster drains the trade outbox to Kafka. Delivery is
// at-least-once: an entry is marked SENT before the publish attempt
// and ACKED only after the broker confirms, so a crash between the two
// re-sends rather than loses.
package broadcaster

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	exitwal "github.com/Professor833/order-matching-engine/infra/wal/exit"
)

type Broadcaster struct {
	log      *slog.Logger
	outbox   *exitwal.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

func New(
	log *slog.Logger,
	outbox *exitwal.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		log:      log,
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: interval,
	}, nil
}

// Run drives delivery until ctx is cancelled. Blocking; start it in
// its own goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", "topic", b.topic)

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
	_ = b.outbox.ScanPending(func(rec exitwal.Record) error {
		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(seqKey(rec.Seq)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed, will retry", "seq", rec.Seq, "err", err)
			_ = b.outbox.MarkFailed(rec.Seq)
			return nil
		}

		return b.outbox.MarkAcked(rec.Seq)
	})
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

// seqKey keys messages by sequence so consumers can dedupe redelivered
// trades.
func seqKey(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}
