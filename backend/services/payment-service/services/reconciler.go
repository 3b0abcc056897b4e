package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	awspkg "github.com/printforge/storefront/backend/pkg/aws"
	"github.com/printforge/storefront/backend/services/payment-service/models"
	"github.com/printforge/storefront/backend/services/payment-service/repository"
	"go.uber.org/zap"
)

const defaultNotifyTimeout = 10 * time.Second

// OrderPaidNotifier is the side channel invoked when an order becomes paid.
type OrderPaidNotifier interface {
	NotifyOrderPaid(ctx context.Context, orderID int64, customerEmail string) error
}

// MetricsRecorder records business counters. *aws.MetricsClient satisfies it.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type ReconcilerConfig struct {
	// NotifyTimeout bounds each notification call. Zero means 10s.
	NotifyTimeout time.Duration
	// EnforceOrdering skips events older than the last one applied to the order.
	EnforceOrdering bool
}

// ReconcileOutcome describes what a reconciliation did to the order.
type ReconcileOutcome string

const (
	OutcomeApplied ReconcileOutcome = "applied"
	OutcomeIgnored ReconcileOutcome = "ignored"
	OutcomeStale   ReconcileOutcome = "stale"
)

type ReconcileResult struct {
	Outcome  ReconcileOutcome
	OrderID  int64
	State    models.OrderState
	Notified bool
}

// Reconciler projects processor transaction updates onto order records.
type Reconciler struct {
	store    repository.OrderStore
	notifier OrderPaidNotifier
	metrics  MetricsRecorder
	logger   *zap.Logger
	cfg      ReconcilerConfig
	now      func() time.Time

	inflight sync.WaitGroup
}

func NewReconciler(store repository.OrderStore, notifier OrderPaidNotifier, metrics MetricsRecorder, logger *zap.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for UpdatedAt. Intended for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile applies one verified event to order orderID. The write is a full overwrite
// of the payment fields, so replaying the same event leaves the order unchanged.
// Notification runs in the background and never affects the result.
func (r *Reconciler) Reconcile(ctx context.Context, event *models.PaymentEvent, orderID int64) (*ReconcileResult, error) {
	if event.Event != models.EventTransactionUpdated {
		r.logger.Info("Ignoring non-actionable payment event", zap.String("event", event.Event))
		return &ReconcileResult{Outcome: OutcomeIgnored, OrderID: orderID}, nil
	}
	tx := event.Data.Transaction
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction missing", ErrMalformedEvent)
	}

	state := MapTransactionStatus(tx.Status)

	if r.cfg.EnforceOrdering {
		current, err := r.store.Get(ctx, orderID)
		if err != nil {
			return nil, r.storeError(orderID, err)
		}
		if current.PaymentEventAt > event.Timestamp {
			r.logger.Warn("Skipping out-of-order payment event",
				zap.Int64("order_id", orderID),
				zap.String("transaction_id", tx.ID),
				zap.Int64("event_timestamp", event.Timestamp),
				zap.Int64("applied_timestamp", current.PaymentEventAt))
			return &ReconcileResult{Outcome: OutcomeStale, OrderID: orderID, State: current.State}, nil
		}
	}

	update := models.PaymentUpdate{
		State:                state,
		PaymentTransactionID: tx.ID,
		PaymentMethod:        tx.PaymentMethodType,
		PaymentStatusRaw:     string(tx.Status),
		PaymentEventAt:       event.Timestamp,
		UpdatedAt:            r.now().UTC(),
	}
	if _, err := r.store.UpdatePayment(ctx, orderID, update); err != nil {
		return nil, r.storeError(orderID, err)
	}

	r.logger.Info("Order payment state reconciled",
		zap.Int64("order_id", orderID),
		zap.String("transaction_id", tx.ID),
		zap.String("status", string(tx.Status)),
		zap.String("state", string(state)))

	result := &ReconcileResult{Outcome: OutcomeApplied, OrderID: orderID, State: state}
	if state == models.StatePaid && r.notifier != nil {
		r.notifyAsync(ctx, orderID, tx.CustomerEmail)
		result.Notified = true
	}
	return result, nil
}

// Wait blocks until all in-flight notifications have returned.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}

func (r *Reconciler) storeError(orderID int64, err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
	}
	return fmt.Errorf("%w: order %d: %v", ErrStoreFailure, orderID, err)
}

func (r *Reconciler) notifyAsync(parent context.Context, orderID int64, email string) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Order paid notifier panicked", zap.Int64("order_id", orderID), zap.Any("panic", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.cfg.NotifyTimeout)
		defer cancel()

		if err := r.notifier.NotifyOrderPaid(ctx, orderID, email); err != nil {
			r.logger.Error("Failed to send order paid notification",
				zap.Int64("order_id", orderID),
				zap.Error(err))
			r.count(context.WithoutCancel(parent), awspkg.MetricNotificationFailed, orderID)
			return
		}
		r.logger.Info("Order paid notification sent", zap.Int64("order_id", orderID))
	}()
}

func (r *Reconciler) count(ctx context.Context, metric string, orderID int64) {
	if r.metrics == nil {
		return
	}
	if err := r.metrics.RecordCount(ctx, metric, map[string]string{"Service": "payment-service"}); err != nil {
		r.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Int64("order_id", orderID), zap.Error(err))
	}
}
