package feed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sleipnir/internal/common"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	messages []kafka.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	return nil
}

func TestPublisher_Consume(t *testing.T) {
	writer := &captureWriter{}
	p := &Publisher{writer: writer, timeout: time.Second}

	trade := common.Trade{
		Bid: common.TradeLeg{OrderID: 7, Price: 105, Quantity: 10},
		Ask: common.TradeLeg{OrderID: 9, Price: 100, Quantity: 10},
	}
	require.NoError(t, p.Consume(trade))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "7", string(msg.Key))

	var event tradeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, uint64(7), event.BidOrderID)
	assert.Equal(t, uint64(105), event.BidPrice)
	assert.Equal(t, uint64(9), event.AskOrderID)
	assert.Equal(t, uint64(100), event.AskPrice)
	assert.Equal(t, uint64(10), event.Quantity)
}

func TestPublisher_ConsumePropagatesWriteError(t *testing.T) {
	writeErr := errors.New("broker unreachable")
	p := &Publisher{writer: &captureWriter{err: writeErr}, timeout: time.Second}

	err := p.Consume(common.Trade{})
	assert.ErrorIs(t, err, writeErr)
}
