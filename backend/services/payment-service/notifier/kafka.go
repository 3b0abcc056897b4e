package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier produces order_paid events keyed by order id.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func NewKafkaNotifier(writer MessageWriter, topic string, logger *zap.Logger) *KafkaNotifier {
	logger.Info("Kafka order event producer initialized", zap.String("topic", topic))
	return &KafkaNotifier{writer: writer, topic: topic, logger: logger, now: time.Now}
}

func (n *KafkaNotifier) NotifyOrderPaid(ctx context.Context, orderID int64, customerEmail string) error {
	event := newOrderPaidEvent(orderID, customerEmail, n.now())
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", n.topic, err)
	}

	n.logger.Debug("Sent order paid event", zap.Int64("order_id", orderID), zap.String("event_id", event.EventID))
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
