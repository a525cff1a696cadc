package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Professor833/order-matching-engine/domain/orderbook"
	entrywal "github.com/Professor833/order-matching-engine/infra/wal/entry"
)

// Journal payload formats, pipe-delimited:
//
//	limit:  id|side|size|price
//	market: id|side|size
//	cancel: id
//
// The record header carries kind, sequence, and timestamp.

func encodeOrder(o *orderbook.Order) []byte {
	switch o.Kind {
	case orderbook.KindLimit:
		return []byte(fmt.Sprintf("%d|%d|%d|%s", o.ID, o.Side, o.Size, o.Price))
	case orderbook.KindMarket:
		return []byte(fmt.Sprintf("%d|%d|%d", o.ID, o.Side, o.Size))
	default:
		return []byte(strconv.FormatUint(o.ID, 10))
	}
}

func recordType(k orderbook.Kind) entrywal.RecordType {
	switch k {
	case orderbook.KindLimit:
		return entrywal.RecordLimit
	case orderbook.KindMarket:
		return entrywal.RecordMarket
	default:
		return entrywal.RecordCancel
	}
}

// decodeOrder rebuilds the order a journal record described, keeping
// the original timestamp so replay reproduces book priority exactly.
func decodeOrder(rec *entrywal.Record, o *orderbook.Order) error {
	parts := strings.Split(string(rec.Data), "|")

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return fmt.Errorf("journal payload %q: %w", rec.Data, err)
	}

	switch rec.Type {
	case entrywal.RecordCancel:
		*o = orderbook.Order{ID: id, Timestamp: rec.Time, Kind: orderbook.KindCancel}
		return nil

	case entrywal.RecordMarket:
		if len(parts) != 3 {
			return fmt.Errorf("malformed market payload: %q", rec.Data)
		}
		side, size, err := parseSideSize(parts[1], parts[2])
		if err != nil {
			return err
		}
		*o = orderbook.Order{
			ID:        id,
			Timestamp: rec.Time,
			Kind:      orderbook.KindMarket,
			Side:      side,
			Size:      size,
			Remaining: size,
		}
		return nil

	case entrywal.RecordLimit:
		if len(parts) != 4 {
			return fmt.Errorf("malformed limit payload: %q", rec.Data)
		}
		side, size, err := parseSideSize(parts[1], parts[2])
		if err != nil {
			return err
		}
		price, err := decimal.NewFromString(parts[3])
		if err != nil {
			return fmt.Errorf("journal price %q: %w", parts[3], err)
		}
		*o = orderbook.Order{
			ID:        id,
			Timestamp: rec.Time,
			Kind:      orderbook.KindLimit,
			Side:      side,
			Size:      size,
			Remaining: size,
			Price:     price,
		}
		return nil

	default:
		return fmt.Errorf("unknown journal record type %d", rec.Type)
	}
}

func parseSideSize(sideStr, sizeStr string) (orderbook.Side, int64, error) {
	side, err := strconv.Atoi(sideStr)
	if err != nil {
		return 0, 0, fmt.Errorf("journal side %q: %w", sideStr, err)
	}
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("journal size %q: %w", sizeStr, err)
	}
	return orderbook.Side(side), size, nil
}

// TradeEvent is the outbox and feed representation of one fill.
type TradeEvent struct {
	V         int    `json:"v"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"ts"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      int64  `json:"size"`
	TakerID   uint64 `json:"taker_id"`
	MakerID   uint64 `json:"maker_id"`
}

func encodeTrade(seq uint64, t orderbook.Trade) ([]byte, error) {
	return json.Marshal(TradeEvent{
		V:         1,
		Seq:       seq,
		Timestamp: t.Timestamp,
		Side:      t.Side.String(),
		Price:     t.Price.String(),
		Size:      t.Size,
		TakerID:   t.TakerID,
		MakerID:   t.MakerID,
	})
}
