package snapshot

import "time"

// Snapshot is the on-disk image of every resting order at a journal
// sequence. Replay resumes after Seq.
type Snapshot struct {
	Seq     uint64
	Created time.Time
	Orders  []OrderEntry
}

// OrderEntry is the serialized form of one resting limit order.
// Price is kept as its exact decimal string.
type OrderEntry struct {
	ID        uint64
	Timestamp int64
	Side      uint8
	Size      int64
	Remaining int64
	Price     string
}
