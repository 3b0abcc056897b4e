package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

const defaultPollErrorBackoff = 5 * time.Second

// SQSAPI is the subset of *sqs.Client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer long-polls a single queue and hands message bodies to a handler.
type SQSConsumer struct {
	client            SQSAPI
	queueURL          string
	visibilityTimeout int32
	errorBackoff      time.Duration
	logger            *zap.Logger
}

// NewSQSConsumer creates a new SQS consumer for the given queue URL
func NewSQSConsumer(cfg sdkaws.Config, queueURL string, visibilityTimeout int32, logger *zap.Logger) *SQSConsumer {
	return NewSQSConsumerFromClient(sqs.NewFromConfig(cfg), queueURL, visibilityTimeout, logger)
}

func NewSQSConsumerFromClient(client SQSAPI, queueURL string, visibilityTimeout int32, logger *zap.Logger) *SQSConsumer {
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30
	}
	return &SQSConsumer{
		client:            client,
		queueURL:          queueURL,
		visibilityTimeout: visibilityTimeout,
		errorBackoff:      defaultPollErrorBackoff,
		logger:            logger,
	}
}

// WithErrorBackoff sets the pause after a failed receive.
func (c *SQSConsumer) WithErrorBackoff(d time.Duration) *SQSConsumer {
	if d > 0 {
		c.errorBackoff = d
	}
	return c
}

// MessageHandler processes one message body. A non-nil error leaves the message on
// the queue so it is redelivered after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// StartPolling polls until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting SQS polling", zap.String("queue_url", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS polling stopped", zap.String("queue_url", c.queueURL))
			return ctx.Err()
		default:
			err := c.pollOnce(ctx, handler)
			if err == nil || ctx.Err() != nil {
				continue
			}
			c.logger.Warn("Error polling SQS", zap.Error(err), zap.Duration("retry_in", c.errorBackoff))
			select {
			case <-ctx.Done():
			case <-time.After(c.errorBackoff):
			}
		}
	}
}

func (c *SQSConsumer) pollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   c.visibilityTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}

		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("Failed to process SQS message, leaving it for redelivery",
				zap.String("message_id", sdkaws.ToString(msg.MessageId)),
				zap.Error(err),
			)
			continue
		}

		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Warn("Failed to delete SQS message", zap.Error(err))
		}
	}

	return nil
}
