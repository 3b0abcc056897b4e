package repository

import (
	"context"
	"errors"

	"github.com/printforge/storefront/backend/services/payment-service/models"
)

// ErrOrderNotFound is returned when no order exists for the given id.
var ErrOrderNotFound = errors.New("order not found")

// OrderStore is the persisted order collaborator used by reconciliation. Each call is
// atomic on its own; no multi-row transactions are required.
type OrderStore interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
	UpdatePayment(ctx context.Context, id int64, update models.PaymentUpdate) (*models.Order, error)
}
