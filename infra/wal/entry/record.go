// Package entry implements the request journal: a segmented
// append-only log of every inbound order request, written before the
// request reaches the book and replayed on startup to rebuild it.
package entry

type RecordType uint8

const (
	RecordLimit RecordType = iota
	RecordMarket
	RecordCancel
)

// Record is one journaled request. Time carries the order's original
// microsecond timestamp so a replayed book reproduces the same
// priority ordering.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, time int64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time,
		Data: data,
	}
}
