package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	awspkg "github.com/printforge/storefront/backend/pkg/aws"
	"go.uber.org/zap"
)

// Poller is satisfied by *aws.SQSConsumer.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// WebhookRelayConsumer processes webhook bodies relayed through SQS (optionally
// fanned out from SNS) with the same pipeline as the HTTP endpoint.
type WebhookRelayConsumer struct {
	poller    Poller
	processor *WebhookProcessor
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewWebhookRelayConsumer(poller Poller, processor *WebhookProcessor, metrics MetricsRecorder, logger *zap.Logger) *WebhookRelayConsumer {
	return &WebhookRelayConsumer{
		poller:    poller,
		processor: processor,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start polls until ctx is cancelled.
func (c *WebhookRelayConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting WebhookRelayConsumer (SQS)")

	err := c.poller.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("SQS consumer error", zap.Error(err))
	}
}

// HandleMessage processes one queued delivery. Deliveries that can never succeed are
// dropped (nil) so they leave the queue; downstream failures are returned so SQS
// redelivers the message.
func (c *WebhookRelayConsumer) HandleMessage(ctx context.Context, body string) error {
	payload := unwrapSNSEnvelope(body)

	result, err := c.processor.Process(ctx, []byte(payload))
	if c.metrics != nil {
		if mErr := c.metrics.RecordCount(ctx, awspkg.MetricSQSMessages, map[string]string{"Service": "payment-service"}); mErr != nil {
			c.logger.Debug("Failed to record metric", zap.Error(mErr))
		}
	}
	switch {
	case err == nil:
		c.logger.Info("Relayed payment webhook processed",
			zap.String("event", result.Event),
			zap.String("outcome", string(result.Outcome)),
			zap.Int64("order_id", result.OrderID))
		return nil
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrInvalidSignature):
		c.logger.Warn("Dropping relayed payment webhook", zap.Error(err))
		return nil
	default:
		return err
	}
}

// unwrapSNSEnvelope returns the Message of an SNS notification, or body unchanged when
// it is not one.
func unwrapSNSEnvelope(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return body
	}
	if envelope.Type == "Notification" && envelope.Message != "" {
		return envelope.Message
	}
	return body
}
