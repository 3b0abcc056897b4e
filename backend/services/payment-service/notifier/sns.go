package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	awspkg "github.com/printforge/storefront/backend/pkg/aws"
	"github.com/printforge/storefront/backend/services/payment-service/models"
)

// SNSNotifier publishes an order_paid event to a topic.
type SNSNotifier struct {
	publisher awspkg.SNSPublisher
	topicArn  string
	now       func() time.Time
}

func NewSNSNotifier(publisher awspkg.SNSPublisher, topicArn string) *SNSNotifier {
	return &SNSNotifier{publisher: publisher, topicArn: topicArn, now: time.Now}
}

func (n *SNSNotifier) NotifyOrderPaid(ctx context.Context, orderID int64, customerEmail string) error {
	event := newOrderPaidEvent(orderID, customerEmail, n.now())
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order paid event: %w", err)
	}
	attrs := map[string]string{
		"event_type": event.Type,
		"order_id":   strconv.FormatInt(orderID, 10),
	}
	if err := n.publisher.Publish(ctx, n.topicArn, body, attrs); err != nil {
		return fmt.Errorf("publish order paid event: %w", err)
	}
	return nil
}

func newOrderPaidEvent(orderID int64, email string, now time.Time) models.OrderPaidEvent {
	return models.OrderPaidEvent{
		EventID:       uuid.NewString(),
		Type:          models.EventTypeOrderPaid,
		OrderID:       orderID,
		CustomerEmail: email,
		Timestamp:     now.UTC(),
	}
}
