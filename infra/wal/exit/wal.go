// Package exit implements the trade outbox: executed trades are
// recorded durably before they are broadcast, and their delivery state
// is tracked so a crashed broadcaster can resume without losing or
// duplicating fills.
package exit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is one outbox entry. Payload is the encoded trade event,
// opaque to this package.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < 13 {
		return Record{}, errors.New("invalid outbox record length")
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// -------------------- Outbox --------------------

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // durability is the whole point
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (w *Outbox) Close() error {
	return w.db.Close()
}

// -------------------- API --------------------

// PutNew inserts a fresh entry (called on the submit path).
func (w *Outbox) PutNew(seq uint64, payload []byte) error {
	rec := Record{
		Seq:     seq,
		State:   StateNew,
		Payload: payload,
	}
	return w.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkSent transitions an entry to SENT before the publish attempt.
func (w *Outbox) MarkSent(seq uint64) error {
	return w.transition(seq, StateSent)
}

// MarkAcked transitions an entry to ACKED after the broker confirms.
func (w *Outbox) MarkAcked(seq uint64) error {
	return w.transition(seq, StateAcked)
}

// MarkFailed records a delivery failure; the entry stays eligible for
// rescan.
func (w *Outbox) MarkFailed(seq uint64) error {
	return w.transition(seq, StateFailed)
}

func (w *Outbox) transition(seq uint64, state State) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return w.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for a sequence.
func (w *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := w.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// -------------------- Scan --------------------

// ScanPending visits every entry that has not been acked, in sequence
// order. The broadcaster drives delivery from here.
func (w *Outbox) ScanPending(fn func(rec Record) error) error {
	return w.scan(func(rec Record) error {
		if rec.State == StateAcked {
			return nil
		}
		return fn(rec)
	})
}

// MaxSeq returns the highest sequence present, or zero when the outbox
// is empty. Used to resume trade sequencing after a restart.
func (w *Outbox) MaxSeq() (uint64, error) {
	var max uint64
	err := w.scan(func(rec Record) error {
		if rec.Seq > max {
			max = rec.Seq
		}
		return nil
	})
	return max, err
}

// TruncateAckedUpTo deletes ACKED entries with seq <= max (snapshot
// cleanup).
func (w *Outbox) TruncateAckedUpTo(max uint64) error {
	var doomed []uint64
	err := w.scan(func(rec Record) error {
		if rec.State == StateAcked && rec.Seq <= max {
			doomed = append(doomed, rec.Seq)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, seq := range doomed {
		if err := w.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

func (w *Outbox) scan(fn func(rec Record) error) error {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const keyPrefix = "trade/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
