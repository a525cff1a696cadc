package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/Professor833/order-matching-engine/domain/orderbook"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write captures every resting order and persists it atomically: the
// image is written to a temp file and renamed over the previous one, so
// a crash mid-write never leaves a torn snapshot.
func (w *Writer) Write(seq uint64, book *orderbook.Orderbook) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	s := Snapshot{
		Seq:     seq,
		Created: time.Now(),
		Orders:  make([]OrderEntry, 0, 1024),
	}

	collect := func(lvl *orderbook.PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			s.Orders = append(s.Orders, OrderEntry{
				ID:        o.ID,
				Timestamp: o.Timestamp,
				Side:      uint8(o.Side),
				Size:      o.Size,
				Remaining: o.Remaining,
				Price:     o.Price.String(),
			})
		}
		return true
	}
	book.WalkBids(collect)
	book.WalkAsks(collect)

	tmp := filepath.Join(w.Dir, fileName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(w.Dir, fileName))
}
