package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"sleipnir/internal/common"

	"github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 5 * time.Second

// messageWriter is the slice of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher pushes executed trades onto a kafka topic for downstream
// market-data consumers.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// tradeEvent is the published payload; both legs keep their own price.
type tradeEvent struct {
	BidOrderID uint64 `json:"bid_order_id"`
	BidPrice   uint64 `json:"bid_price"`
	AskOrderID uint64 `json:"ask_order_id"`
	AskPrice   uint64 `json:"ask_price"`
	Quantity   uint64 `json:"quantity"`
}

func New(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{
		writer:  writer,
		timeout: defaultWriteTimeout,
	}
}

// Consume publishes one trade, keyed by the bid order so a consumer
// partitions consistently per aggressor-side identity.
func (p *Publisher) Consume(trade common.Trade) error {
	payload, err := json.Marshal(tradeEvent{
		BidOrderID: uint64(trade.Bid.OrderID),
		BidPrice:   uint64(trade.Bid.Price),
		AskOrderID: uint64(trade.Ask.OrderID),
		AskPrice:   uint64(trade.Ask.Price),
		Quantity:   uint64(trade.Bid.Quantity),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(trade.Bid.OrderID), 10)),
		Value: payload,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
