// Package quotes publishes top-of-book updates to a market-data topic.
// Quotes are ephemeral: no outbox, no retry, the next tick supersedes
// a missed one.
package quotes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Professor833/order-matching-engine/infra/kafka"
	"github.com/Professor833/order-matching-engine/service"
)

type Publisher struct {
	log      *slog.Logger
	svc      *service.OrderService
	producer *kafka.Producer
	interval time.Duration
}

// QuoteEvent is the published top-of-book. Empty sides are encoded as
// empty strings.
type QuoteEvent struct {
	V   int    `json:"v"`
	Ts  int64  `json:"ts"`
	Bid string `json:"bid,omitempty"`
	Ask string `json:"ask,omitempty"`
}

func New(
	log *slog.Logger,
	svc *service.OrderService,
	producer *kafka.Producer,
	interval time.Duration,
) *Publisher {
	return &Publisher{
		log:      log,
		svc:      svc,
		producer: producer,
		interval: interval,
	}
}

// Run publishes until ctx is cancelled. Consecutive identical quotes
// are suppressed.
func (p *Publisher) Run(ctx context.Context) {
	p.log.Info("quote publisher started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastBid, lastAsk string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q := p.svc.Quote()

			var bid, ask string
			if q.HasBid {
				bid = q.Bid.String()
			}
			if q.HasAsk {
				ask = q.Ask.String()
			}
			if bid == lastBid && ask == lastAsk {
				continue
			}

			payload, err := json.Marshal(QuoteEvent{
				V:   1,
				Ts:  time.Now().UnixMicro(),
				Bid: bid,
				Ask: ask,
			})
			if err != nil {
				continue
			}
			if err := p.producer.Send(ctx, nil, payload); err != nil {
				p.log.Warn("quote publish failed", "err", err)
				continue
			}
			lastBid, lastAsk = bid, ask
		}
	}
}
