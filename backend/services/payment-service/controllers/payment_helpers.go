package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	apperrors "github.com/printforge/storefront/backend/services/common/errors"
	"github.com/printforge/storefront/backend/services/common/logger"
	"github.com/printforge/storefront/backend/services/payment-service/services"
	"go.uber.org/zap"
)

// classifyWebhookError maps pipeline errors onto HTTP statuses.
func classifyWebhookError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, services.ErrMalformedEvent):
		return apperrors.BadRequest("malformed payment event", err)
	case errors.Is(err, services.ErrInvalidSignature):
		return apperrors.Unauthorized("invalid signature", err)
	case errors.Is(err, services.ErrOrderNotFound):
		return apperrors.Internal("order not found", err)
	default:
		return apperrors.Internal("failed to process payment event", err)
	}
}

// respondError logs and writes {"success": false, "error": msg}. Server errors log at
// error level, client errors at warn.
func (pc *PaymentController) respondError(c *gin.Context, appErr *apperrors.Error) {
	log := logger.ForRequest(pc.Logger, c)
	if appErr.Code >= 500 {
		log.Error(appErr.Message, zap.Int("status", appErr.Code), zap.Error(appErr.Err))
	} else {
		log.Warn(appErr.Message, zap.Int("status", appErr.Code), zap.Error(appErr.Err))
	}
	c.JSON(appErr.Code, gin.H{"success": false, "error": appErr.Message})
}
