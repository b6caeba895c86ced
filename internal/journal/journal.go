package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"sleipnir/internal/common"

	"github.com/cockroachdb/pebble"
)

// Journal is a durable, sequence-ordered record of executed trades.
// Sequence numbers are assigned on append and survive restarts.
type Journal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// binary encoding: [bidID:8][bidPrice:8][bidQty:8][askID:8][askPrice:8][askQty:8]
const recordLen = 6 * 8

var ErrCorruptRecord = errors.New("corrupt journal record")

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append assigns the trade the next sequence number and stores it
// synchronously.
func (j *Journal) Append(trade common.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	return j.db.Set(keyFor(j.seq), encodeTrade(trade), pebble.Sync)
}

// Consume satisfies the server's trade sink interface.
func (j *Journal) Consume(trade common.Trade) error {
	return j.Append(trade)
}

// Scan replays every journaled trade in sequence order.
func (j *Journal) Scan(fn func(seq uint64, trade common.Trade) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
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

		trade, err := decodeTrade(iter.Value())
		if err != nil {
			return err
		}

		if err := fn(seq, trade); err != nil {
			return err
		}
	}
	return iter.Error()
}

// recoverSeq positions the sequence counter after the last stored
// trade.
func (j *Journal) recoverSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		j.seq = seq
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return fmt.Appendf(nil, "trade/%020d", seq)
}

func parseKey(key []byte) (uint64, error) {
	var seq uint64
	if _, err := fmt.Sscanf(string(key), "trade/%d", &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func encodeTrade(trade common.Trade) []byte {
	buf := make([]byte, recordLen)
	binary.BigEndian.PutUint64(buf[0:8], uint64(trade.Bid.OrderID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(trade.Bid.Price))
	binary.BigEndian.PutUint64(buf[16:24], uint64(trade.Bid.Quantity))
	binary.BigEndian.PutUint64(buf[24:32], uint64(trade.Ask.OrderID))
	binary.BigEndian.PutUint64(buf[32:40], uint64(trade.Ask.Price))
	binary.BigEndian.PutUint64(buf[40:48], uint64(trade.Ask.Quantity))
	return buf
}

func decodeTrade(buf []byte) (common.Trade, error) {
	if len(buf) != recordLen {
		return common.Trade{}, ErrCorruptRecord
	}
	return common.Trade{
		Bid: common.TradeLeg{
			OrderID:  common.OrderID(binary.BigEndian.Uint64(buf[0:8])),
			Price:    common.Price(binary.BigEndian.Uint64(buf[8:16])),
			Quantity: common.Quantity(binary.BigEndian.Uint64(buf[16:24])),
		},
		Ask: common.TradeLeg{
			OrderID:  common.OrderID(binary.BigEndian.Uint64(buf[24:32])),
			Price:    common.Price(binary.BigEndian.Uint64(buf[32:40])),
			Quantity: common.Quantity(binary.BigEndian.Uint64(buf[40:48])),
		},
	}, nil
}
