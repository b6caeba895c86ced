package net

import (
	"encoding/binary"
	"errors"
	"testing"

	"sleipnir/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_NewOrder(t *testing.T) {
	buf := make([]byte, BaseMessageHeaderLen+NewOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], 42)
	binary.BigEndian.PutUint16(buf[10:12], uint16(common.GFD))
	buf[12] = byte(common.Sell)
	binary.BigEndian.PutUint64(buf[13:21], 101)
	binary.BigEndian.PutUint64(buf[21:29], 7)

	msg, err := parseMessage(buf)
	require.NoError(t, err)

	newOrder, ok := msg.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, NewOrder, newOrder.GetType())

	order := newOrder.Order()
	assert.Equal(t, common.OrderID(42), order.ID)
	assert.Equal(t, common.GFD, order.Type)
	assert.Equal(t, common.Sell, order.Side)
	assert.Equal(t, common.Price(101), order.LimitPrice)
	assert.Equal(t, common.Quantity(7), order.Remaining)
}

func TestParseMessage_CancelOrder(t *testing.T) {
	buf := make([]byte, BaseMessageHeaderLen+CancelOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], 99)

	msg, err := parseMessage(buf)
	require.NoError(t, err)

	cancel, ok := msg.(CancelOrderMessage)
	require.True(t, ok)
	assert.Equal(t, common.OrderID(99), cancel.OrderID)
}

func TestParseMessage_ModifyOrder(t *testing.T) {
	buf := make([]byte, BaseMessageHeaderLen+ModifyOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(ModifyOrder))
	binary.BigEndian.PutUint64(buf[2:10], 13)
	buf[10] = byte(common.Buy)
	binary.BigEndian.PutUint64(buf[11:19], 105)
	binary.BigEndian.PutUint64(buf[19:27], 20)

	msg, err := parseMessage(buf)
	require.NoError(t, err)

	modify, ok := msg.(ModifyOrderMessage)
	require.True(t, ok)
	assert.Equal(t, common.OrderID(13), modify.OrderID)

	change := modify.Change()
	assert.Equal(t, common.Buy, change.Side)
	assert.Equal(t, common.Price(105), change.Price)
	assert.Equal(t, common.Quantity(20), change.Remaining)
}

func TestParseMessage_HeaderOnlyTypes(t *testing.T) {
	for _, typeOf := range []MessageType{Heartbeat, LogBook} {
		buf := make([]byte, BaseMessageHeaderLen)
		binary.BigEndian.PutUint16(buf, uint16(typeOf))

		msg, err := parseMessage(buf)
		require.NoError(t, err)
		assert.Equal(t, typeOf, msg.GetType())
	}
}

func TestParseMessage_TooShort(t *testing.T) {
	_, err := parseMessage([]byte{0x00})
	assert.True(t, errors.Is(err, ErrMessageTooShort))

	// A valid type header with a truncated body.
	buf := make([]byte, BaseMessageHeaderLen+NewOrderMessageLen-1)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	_, err = parseMessage(buf)
	assert.True(t, errors.Is(err, ErrMessageTooShort))
}

func TestParseMessage_InvalidType(t *testing.T) {
	buf := make([]byte, BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf, 0xFFFF)

	_, err := parseMessage(buf)
	assert.True(t, errors.Is(err, ErrInvalidMessageType))
}

func TestReport_Serialize(t *testing.T) {
	report := errorReport(5, errors.New("boom"))
	buf := report.Serialize()

	require.Len(t, buf, ReportFixedHeaderLen+4)
	assert.Equal(t, byte(ErrorReport), buf[0])
	assert.Equal(t, uint64(5), binary.BigEndian.Uint64(buf[2:10]))
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(buf[26:30]))
	assert.Equal(t, "boom", string(buf[ReportFixedHeaderLen:]))
}

func TestLegReports_CarryOwnPrices(t *testing.T) {
	trade := common.Trade{
		Bid: common.TradeLeg{OrderID: 1, Price: 105, Quantity: 10},
		Ask: common.TradeLeg{OrderID: 2, Price: 100, Quantity: 10},
	}

	bid, ask := legReports(trade)
	assert.Equal(t, common.Buy, bid.Side)
	assert.Equal(t, common.Price(105), bid.Price)
	assert.Equal(t, common.Sell, ask.Side)
	assert.Equal(t, common.Price(100), ask.Price)
	assert.Equal(t, bid.Quantity, ask.Quantity)
}
