package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/printforge/storefront/backend/services/common/errors"
	"github.com/printforge/storefront/backend/services/common/logger"
	"go.uber.org/zap"
)

// PaymentWebhook receives processor events. It needs no session auth: the body carries
// its own signature. Downstream failures answer 500 so the processor retries.
func (pc *PaymentController) PaymentWebhook(c *gin.Context) {
	log := logger.ForRequest(pc.Logger, c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pc.respondError(c, apperrors.New(http.StatusRequestEntityTooLarge, "payload too large", err))
			return
		}
		pc.respondError(c, apperrors.BadRequest("unreadable body", err))
		return
	}

	result, err := pc.Processor.Process(c.Request.Context(), body)
	if err != nil {
		pc.respondError(c, classifyWebhookError(err))
		return
	}

	log.Info("Payment webhook processed",
		zap.String("event", result.Event),
		zap.String("outcome", string(result.Outcome)),
		zap.Int64("order_id", result.OrderID),
		zap.String("state", string(result.State)),
	)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
