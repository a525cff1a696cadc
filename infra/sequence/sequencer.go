// Package sequence issues the strictly monotonic ids used to key
// journal records and outbox entries. Sequences are deterministic and
// replay-safe: after a journal replay the sequencer resumes from the
// last replayed id.
package sequence

import "sync/atomic"

type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. Fresh start uses 0; after replay, the last
// replayed sequence.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence id.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset moves the sequencer to v. Only used after journal replay.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
