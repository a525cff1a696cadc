package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/Professor833/order-matching-engine/domain/orderbook"
	"github.com/Professor833/order-matching-engine/infra/memory"
)

// Load restores resting orders from the snapshot in dir, if one exists,
// and returns the sequence the journal should replay from. A missing
// snapshot is not an error: the journal simply replays from zero.
//
// Entries carry their original timestamps, so restored orders keep the
// book priority they had when the snapshot was taken. Snapshotted sides
// never cross, so re-submitting produces no fills.
func Load(
	dir string,
	book *orderbook.Orderbook,
	pool *memory.Pool[orderbook.Order],
) (uint64, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return 0, fmt.Errorf("snapshot: decode: %w", err)
	}

	for _, e := range s.Orders {
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			return 0, fmt.Errorf("snapshot: bad price %q: %w", e.Price, err)
		}

		o := pool.Get()
		*o = orderbook.Order{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Kind:      orderbook.KindLimit,
			Side:      orderbook.Side(e.Side),
			Size:      e.Size,
			Remaining: e.Remaining,
			Price:     price,
		}
		book.SubmitLocked(o)
	}

	return s.Seq, nil
}
