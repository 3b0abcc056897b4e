package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"github.com/printforge/storefront/backend/services/payment-service/notifier"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrders struct {
	order *models.Order
	err   error
}

func (f *fakeOrders) Get(_ context.Context, id int64) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type sentEmail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) SendEmail(_ context.Context, to, subject, body string) (notifier.SendResult, error) {
	if f.err != nil {
		return notifier.SendResult{}, f.err
	}
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return notifier.SendResult{MessageID: "msg-1"}, nil
}

type published struct {
	topic string
	body  []byte
	attrs map[string]string
}

type fakePublisher struct {
	calls []published
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topicArn string, message []byte, attrs map[string]string) error {
	f.calls = append(f.calls, published{topicArn, message, attrs})
	return f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type funcNotifier func(ctx context.Context, orderID int64, email string) error

func (f funcNotifier) NotifyOrderPaid(ctx context.Context, orderID int64, email string) error {
	return f(ctx, orderID, email)
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            42,
		CustomerName:  "Ada <Lovelace>",
		CustomerEmail: "ada@example.com",
		Address:       "1 Analytical St",
		City:          "London",
		TotalCents:    2599,
		Items: []models.OrderItem{
			{ProductName: "Desk lamp", Quantity: 1, UnitPriceCents: 2599},
		},
	}
}

func TestEmailNotifier_SendsConfirmation(t *testing.T) {
	sender := &fakeSender{}
	n := notifier.NewEmailNotifier(&fakeOrders{order: sampleOrder()}, sender, zap.NewNop())

	require.NoError(t, n.NotifyOrderPaid(context.Background(), 42, "buyer@example.com"))

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "buyer@example.com", mail.to)
	assert.Equal(t, "Order #42 confirmed", mail.subject)
	assert.Contains(t, mail.body, "#42")
	assert.Contains(t, mail.body, "Desk lamp")
	assert.Contains(t, mail.body, "25.99")
	assert.Contains(t, mail.body, "Ada &lt;Lovelace&gt;")
}

func TestEmailNotifier_FallsBackToOrderEmail(t *testing.T) {
	sender := &fakeSender{}
	n := notifier.NewEmailNotifier(&fakeOrders{order: sampleOrder()}, sender, zap.NewNop())

	require.NoError(t, n.NotifyOrderPaid(context.Background(), 42, ""))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].to)
}

func TestEmailNotifier_NoRecipient(t *testing.T) {
	order := sampleOrder()
	order.CustomerEmail = ""
	sender := &fakeSender{}
	n := notifier.NewEmailNotifier(&fakeOrders{order: order}, sender, zap.NewNop())

	err := n.NotifyOrderPaid(context.Background(), 42, "")
	assert.ErrorContains(t, err, "no customer email")
	assert.Empty(t, sender.sent)
}

func TestEmailNotifier_OrderLookupFails(t *testing.T) {
	n := notifier.NewEmailNotifier(&fakeOrders{err: errors.New("db down")}, &fakeSender{}, zap.NewNop())

	err := n.NotifyOrderPaid(context.Background(), 42, "buyer@example.com")
	assert.ErrorContains(t, err, "db down")
}

func TestSNSNotifier_PublishesOrderPaidEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := notifier.NewSNSNotifier(pub, "arn:aws:sns:eu-west-2:000000000000:order-events")

	require.NoError(t, n.NotifyOrderPaid(context.Background(), 7, "buyer@example.com"))

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, "arn:aws:sns:eu-west-2:000000000000:order-events", call.topic)
	assert.Equal(t, "order_paid", call.attrs["event_type"])
	assert.Equal(t, "7", call.attrs["order_id"])

	var event models.OrderPaidEvent
	require.NoError(t, json.Unmarshal(call.body, &event))
	assert.Equal(t, int64(7), event.OrderID)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
	assert.NotEmpty(t, event.EventID)
}

func TestSNSNotifier_PublishError(t *testing.T) {
	n := notifier.NewSNSNotifier(&fakePublisher{err: errors.New("throttled")}, "arn")
	assert.ErrorContains(t, n.NotifyOrderPaid(context.Background(), 7, ""), "throttled")
}

func TestKafkaNotifier_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	n := notifier.NewKafkaNotifier(w, "order-events", zap.NewNop())

	require.NoError(t, n.NotifyOrderPaid(context.Background(), 99, "buyer@example.com"))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "99", string(w.msgs[0].Key))
	var event models.OrderPaidEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, models.EventTypeOrderPaid, event.Type)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := notifier.NewKafkaNotifier(&fakeWriter{err: errors.New("leader not available")}, "order-events", zap.NewNop())
	assert.ErrorContains(t, n.NotifyOrderPaid(context.Background(), 1, ""), "leader not available")
}

func TestMulti_AttemptsAllAndJoinsErrors(t *testing.T) {
	var calls []string
	first := funcNotifier(func(context.Context, int64, string) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	second := funcNotifier(func(context.Context, int64, string) error {
		calls = append(calls, "second")
		return nil
	})

	err := notifier.Multi{first, second}.NotifyOrderPaid(context.Background(), 1, "a@b.c")

	assert.Equal(t, []string{"first", "second"}, calls)
	assert.ErrorContains(t, err, "smtp down")
}

func TestCombine(t *testing.T) {
	assert.IsType(t, notifier.Noop{}, notifier.Combine())

	single := &fakePublisher{}
	sns := notifier.NewSNSNotifier(single, "arn")
	assert.Same(t, sns, notifier.Combine(sns))

	assert.IsType(t, notifier.Multi{}, notifier.Combine(sns, notifier.Noop{}))
}
