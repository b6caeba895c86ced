package net

import (
	"encoding/binary"
	"errors"

	"sleipnir/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	ModifyOrder
	LogBook
)

type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants. All integers are big endian; the 2-byte
// type header precedes every body.
const (
	BaseMessageHeaderLen  = 2
	NewOrderMessageLen    = 8 + 2 + 1 + 8 + 8
	CancelOrderMessageLen = 8
	ModifyOrderMessageLen = 8 + 1 + 8 + 8
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case ModifyOrder:
		return parseModifyOrder(msg)
	case Heartbeat, LogBook:
		return BaseMessage{TypeOf: typeOf}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	OrderID   common.OrderID   // 8 bytes
	OrderType common.OrderType // 2 bytes
	Side      common.Side      // 1 byte
	Price     common.Price     // 8 bytes
	Quantity  common.Quantity  // 8 bytes
}

// Order builds the engine's order record from the wire message.
func (m NewOrderMessage) Order() common.Order {
	return common.Order{
		ID:         m.OrderID,
		Type:       m.OrderType,
		Side:       m.Side,
		LimitPrice: m.Price,
		Remaining:  m.Quantity,
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		OrderID:     common.OrderID(binary.BigEndian.Uint64(msg[0:8])),
		OrderType:   common.OrderType(binary.BigEndian.Uint16(msg[8:10])),
		Side:        common.Side(msg[10]),
		Price:       common.Price(binary.BigEndian.Uint64(msg[11:19])),
		Quantity:    common.Quantity(binary.BigEndian.Uint64(msg[19:27])),
	}, nil
}

type CancelOrderMessage struct {
	BaseMessage
	OrderID common.OrderID // 8 bytes
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		OrderID:     common.OrderID(binary.BigEndian.Uint64(msg[0:8])),
	}, nil
}

type ModifyOrderMessage struct {
	BaseMessage
	OrderID  common.OrderID  // 8 bytes
	Side     common.Side     // 1 byte
	Price    common.Price    // 8 bytes
	Quantity common.Quantity // 8 bytes
}

// Change builds the engine's cancel-replace record. The order's type is
// not on the wire; a modify keeps the original type.
func (m ModifyOrderMessage) Change() common.Change {
	return common.Change{
		Side:      m.Side,
		Price:     m.Price,
		Remaining: m.Quantity,
	}
}

func parseModifyOrder(msg []byte) (ModifyOrderMessage, error) {
	if len(msg) < ModifyOrderMessageLen {
		return ModifyOrderMessage{}, ErrMessageTooShort
	}
	return ModifyOrderMessage{
		BaseMessage: BaseMessage{TypeOf: ModifyOrder},
		OrderID:     common.OrderID(binary.BigEndian.Uint64(msg[0:8])),
		Side:        common.Side(msg[8]),
		Price:       common.Price(binary.BigEndian.Uint64(msg[9:17])),
		Quantity:    common.Quantity(binary.BigEndian.Uint64(msg[17:25])),
	}, nil
}

// Report is the wire form of an execution or error report pushed back
// to a session.
type Report struct {
	MessageType ReportMessageType // 1 byte
	Side        common.Side       // 1 byte
	OrderID     common.OrderID    // 8 bytes
	Price       common.Price      // 8 bytes
	Quantity    common.Quantity   // 8 bytes
	ErrStrLen   uint32            // 4 bytes
	Err         string            // n bytes
}

const ReportFixedHeaderLen = 1 + 1 + 8 + 8 + 8 + 4

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() []byte {
	buf := make([]byte, ReportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.OrderID))
	binary.BigEndian.PutUint64(buf[10:18], uint64(r.Price))
	binary.BigEndian.PutUint64(buf[18:26], uint64(r.Quantity))
	binary.BigEndian.PutUint32(buf[26:30], r.ErrStrLen)
	copy(buf[ReportFixedHeaderLen:], r.Err)
	return buf
}

// legReports builds the two execution reports for one trade, each
// addressed to the owner of that leg's order and carrying that leg's
// own price.
func legReports(trade common.Trade) (bid, ask Report) {
	bid = Report{
		MessageType: ExecutionReport,
		Side:        common.Buy,
		OrderID:     trade.Bid.OrderID,
		Price:       trade.Bid.Price,
		Quantity:    trade.Bid.Quantity,
	}
	ask = Report{
		MessageType: ExecutionReport,
		Side:        common.Sell,
		OrderID:     trade.Ask.OrderID,
		Price:       trade.Ask.Price,
		Quantity:    trade.Ask.Quantity,
	}
	return bid, ask
}

func errorReport(id common.OrderID, err error) Report {
	msg := err.Error()
	return Report{
		MessageType: ErrorReport,
		OrderID:     id,
		ErrStrLen:   uint32(len(msg)),
		Err:         msg,
	}
}
