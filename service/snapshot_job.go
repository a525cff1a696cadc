package service

import (
	"context"
	"time"

	"github.com/Professor833/order-matching-engine/snapshot"
)

// StartSnapshotJob periodically persists the resting book and trims
// both logs: journal segments the snapshot covers and outbox entries
// the broker has acked. It returns immediately; the job stops when ctx
// is cancelled.
func (s *OrderService) StartSnapshotJob(
	ctx context.Context,
	dir string,
	interval time.Duration,
) {
	w := &snapshot.Writer{Dir: dir}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.snapshotOnce(w)
			}
		}
	}()
}

// snapshotOnce holds the submit pipeline still while capturing, so the
// snapshot sequence equals exactly the last applied request.
func (s *OrderService) snapshotOnce(w *snapshot.Writer) {
	s.mu.Lock()
	seq := s.seqGen.Current()
	err := w.Write(seq, s.book)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("snapshot write failed", "seq", seq, "err", err)
		return
	}

	if err := s.journal.TruncateBefore(seq); err != nil {
		s.log.Warn("journal truncation failed", "seq", seq, "err", err)
	}
	if err := s.outbox.TruncateAckedUpTo(s.tradeSeq.Current()); err != nil {
		s.log.Warn("outbox truncation failed", "err", err)
	}

	s.log.Info("snapshot written", "seq", seq)
}
