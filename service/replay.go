package service

import (
	"log/slog"

	"github.com/Professor833/order-matching-engine/domain/orderbook"
	"github.com/Professor833/order-matching-engine/infra/memory"
	"github.com/Professor833/order-matching-engine/infra/sequence"
	entrywal "github.com/Professor833/order-matching-engine/infra/wal/entry"
)

// ReplayFromJournal rebuilds in-memory book state from the request
// journal, starting after the sequence the loaded snapshot covers.
// It must run to completion before the engine accepts traffic.
//
// Fills regenerated during replay are not re-staged in the outbox:
// delivery state belongs to the outbox alone, and re-staging would
// duplicate trades that were already broadcast before the restart.
func ReplayFromJournal(
	log *slog.Logger,
	dir string,
	afterSeq uint64,
	book *orderbook.Orderbook,
	pool *memory.Pool[orderbook.Order],
	seqGen *sequence.Sequencer,
) error {
	replayed := 0
	lastSeq, err := entrywal.Replay(dir, afterSeq, func(rec *entrywal.Record) error {
		o := pool.Get()
		if err := decodeOrder(rec, o); err != nil {
			pool.Put(o)
			return err
		}
		book.SubmitLocked(o)
		replayed++
		return nil
	})
	if err != nil {
		return err
	}

	// Resume sequencing after the last journaled request.
	seqGen.Reset(lastSeq)

	log.Info("journal replay complete",
		"records", replayed, "from_seq", afterSeq, "last_seq", lastSeq)
	return nil
}
