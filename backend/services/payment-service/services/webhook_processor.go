package services

import (
	"context"
	"fmt"
	"time"

	awspkg "github.com/printforge/storefront/backend/pkg/aws"
	"github.com/printforge/storefront/backend/services/payment-service/models"
	"go.uber.org/zap"
)

// OutcomeDuplicate: the delivery was already processed and was acknowledged without a write.
const OutcomeDuplicate ReconcileOutcome = "duplicate"

// DeliveryGuard suppresses repeated deliveries of the same event.
type DeliveryGuard interface {
	// Claim reports whether key was unclaimed and is now held by the caller.
	Claim(ctx context.Context, key string) (bool, error)
	// Release frees key so a later retry can be processed.
	Release(ctx context.Context, key string) error
}

type ProcessResult struct {
	Event           string
	Outcome         ReconcileOutcome
	OrderID         int64
	State           models.OrderState
	Unauthenticated bool
}

// WebhookProcessor runs a raw webhook body through parse, verify, extract and
// reconcile. Shared by the HTTP endpoint and the SQS relay.
type WebhookProcessor struct {
	verifier   *SignatureVerifier
	reconciler *Reconciler
	guard      DeliveryGuard
	metrics    MetricsRecorder
	logger     *zap.Logger
}

// NewWebhookProcessor wires a processor. guard and metrics may be nil.
func NewWebhookProcessor(verifier *SignatureVerifier, reconciler *Reconciler, guard DeliveryGuard, metrics MetricsRecorder, logger *zap.Logger) *WebhookProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookProcessor{
		verifier:   verifier,
		reconciler: reconciler,
		guard:      guard,
		metrics:    metrics,
		logger:     logger,
	}
}

// Process handles one delivery. Errors wrap ErrMalformedEvent or ErrInvalidSignature
// for deliveries that must be rejected, and ErrOrderNotFound or ErrStoreFailure for
// downstream failures the sender should retry.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte) (*ProcessResult, error) {
	p.record(ctx, awspkg.MetricWebhookReceived)

	event, err := ParseEvent(body)
	if err != nil {
		p.record(ctx, awspkg.MetricWebhookRejected)
		return nil, err
	}

	verdict, err := p.verifier.Verify(event)
	if err != nil {
		p.logger.Warn("Rejected payment webhook with invalid signature",
			zap.String("event", event.Event),
			zap.Error(err))
		p.record(ctx, awspkg.MetricWebhookRejected)
		return nil, err
	}
	result := &ProcessResult{Event: event.Event, Unauthenticated: verdict == VerifyUnauthenticated}
	if result.Unauthenticated {
		p.logger.Warn("Accepting unsigned payment webhook: no webhook secret configured",
			zap.String("event", event.Event))
	}

	if event.Event != models.EventTransactionUpdated {
		p.logger.Info("Acknowledging non-actionable payment event", zap.String("event", event.Event))
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	tx := event.Data.Transaction
	if tx == nil {
		p.record(ctx, awspkg.MetricWebhookRejected)
		return nil, fmt.Errorf("%w: transaction missing", ErrMalformedEvent)
	}
	orderID, err := ExtractOrderID(tx.Reference)
	if err != nil {
		p.record(ctx, awspkg.MetricWebhookRejected)
		return nil, err
	}
	result.OrderID = orderID

	key := deliveryKey(tx, event.Timestamp)
	if p.guard != nil {
		claimed, err := p.guard.Claim(ctx, key)
		switch {
		case err != nil:
			p.logger.Warn("Delivery guard unavailable, processing without dedupe",
				zap.Int64("order_id", orderID),
				zap.Error(err))
			key = ""
		case !claimed:
			p.logger.Info("Duplicate payment webhook acknowledged",
				zap.Int64("order_id", orderID),
				zap.String("transaction_id", tx.ID))
			p.record(ctx, awspkg.MetricWebhookDuplicate)
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
	}

	rec, err := p.reconciler.Reconcile(ctx, event, orderID)
	if err != nil {
		p.logger.Error("Failed to reconcile payment event",
			zap.Int64("order_id", orderID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		p.record(ctx, awspkg.MetricReconcileFailed)
		if p.guard != nil && key != "" {
			if relErr := p.guard.Release(context.WithoutCancel(ctx), key); relErr != nil {
				p.logger.Warn("Failed to release delivery key", zap.String("key", key), zap.Error(relErr))
			}
		}
		return nil, err
	}

	result.Outcome = rec.Outcome
	result.State = rec.State
	if rec.Outcome == OutcomeApplied {
		switch rec.State {
		case models.StatePaid:
			p.record(ctx, awspkg.MetricPaymentSucceeded)
		case models.StatePaymentDeclined, models.StatePaymentVoided, models.StatePaymentError:
			p.record(ctx, awspkg.MetricPaymentFailed)
		}
	}
	return result, nil
}

// deliveryKey identifies one delivery of one transaction status.
func deliveryKey(tx *models.Transaction, timestamp int64) string {
	return fmt.Sprintf("%s:%s:%d", tx.ID, tx.Status, timestamp)
}

func (p *WebhookProcessor) record(ctx context.Context, metric string) {
	if p.metrics == nil {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.metrics.RecordCount(mctx, metric, map[string]string{"Service": "payment-service"}); err != nil {
			p.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
		}
	}()
}
