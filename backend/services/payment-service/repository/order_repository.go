package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderStore on PostgreSQL through GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Get loads an order with its line items.
func (r *GormOrderRepository) Get(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &order, nil
}

// UpdatePayment overwrites the payment fields of one order in a single UPDATE and
// returns the resulting row (without line items).
func (r *GormOrderRepository) UpdatePayment(ctx context.Context, id int64, update models.PaymentUpdate) (*models.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":                  update.State,
			"payment_transaction_id": update.PaymentTransactionID,
			"payment_method":         update.PaymentMethod,
			"payment_status_raw":     update.PaymentStatusRaw,
			"payment_event_at":       update.PaymentEventAt,
			"updated_at":             update.UpdatedAt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update payment for order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("reload order %d: %w", id, err)
	}
	return &order, nil
}
