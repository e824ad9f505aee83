package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultOrderTopic = "order.placed"

type OrderPlacedLine struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	SellerID    uint   `json:"seller_id"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
}

type OrderPlacedEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		OrderID   string            `json:"order_id"`
		BuyerID   uint              `json:"buyer_id"`
		BuyerName string            `json:"buyer_name"`
		PlacedAt  string            `json:"placed_at"`
		Lines     []OrderPlacedLine `json:"lines"`
	} `json:"data"`
}

// EventPublisher announces completed checkouts to other systems.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, r *Receipt) error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) EventPublisher {
	if topic == "" {
		topic = DefaultOrderTopic
	}
	return &kafkaPublisher{producer: producer, topic: topic}
}

// NewSyncProducer dials the brokers with settings suitable for order events.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "start kafka producer")
	}
	return p, nil
}

func buildOrderPlacedEvent(r *Receipt) OrderPlacedEvent {
	var ev OrderPlacedEvent
	ev.EventType = DefaultOrderTopic
	ev.Data.OrderID = r.OrderID
	ev.Data.BuyerID = r.BuyerID
	ev.Data.BuyerName = r.BuyerName
	ev.Data.PlacedAt = r.PlacedAt.UTC().Format(time.RFC3339)
	for _, l := range r.Lines {
		ev.Data.Lines = append(ev.Data.Lines, OrderPlacedLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			SellerID:    l.SellerID,
			Price:       l.Price.StringFixed(2),
			Quantity:    l.Quantity,
		})
	}
	return ev
}

func (p *kafkaPublisher) PublishOrderPlaced(_ context.Context, r *Receipt) error {
	data, err := json.Marshal(buildOrderPlacedEvent(r))
	if err != nil {
		return errors.Wrap(err, "marshal order.placed")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(r.OrderID),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrap(err, "send order.placed")
	}
	zap.L().Debug("published order.placed",
		zap.String("order_id", r.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

type noopPublisher struct{}

// NoopPublisher drops events; used when no brokers are configured.
func NoopPublisher() EventPublisher { return noopPublisher{} }

func (noopPublisher) PublishOrderPlaced(context.Context, *Receipt) error { return nil }
