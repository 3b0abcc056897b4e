package controllers

import (
	"context"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"github.com/printforge/storefront/backend/services/payment-service/services"
	"go.uber.org/zap"
)

// maxWebhookBody caps processor deliveries.
const maxWebhookBody = 1 << 20

// WebhookProcessor is satisfied by *services.WebhookProcessor.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte) (*services.ProcessResult, error)
}

// OrderReader is satisfied by every repository.OrderStore.
type OrderReader interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
}

type PaymentController struct {
	Processor WebhookProcessor
	Orders    OrderReader
	Logger    *zap.Logger
}

func NewPaymentController(processor WebhookProcessor, orders OrderReader, logger *zap.Logger) *PaymentController {
	return &PaymentController{
		Processor: processor,
		Orders:    orders,
		Logger:    logger,
	}
}
