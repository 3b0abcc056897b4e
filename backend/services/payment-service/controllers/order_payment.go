package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/printforge/storefront/backend/services/common/errors"
	"github.com/printforge/storefront/backend/services/payment-service/repository"
)

// GetOrderPayment returns the payment projection of one order (admin).
func (pc *PaymentController) GetOrderPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		pc.respondError(c, apperrors.BadRequest("invalid order id", err))
		return
	}

	order, err := pc.Orders.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			pc.respondError(c, apperrors.NotFound("order not found", err))
			return
		}
		pc.respondError(c, apperrors.Internal("failed to load order", err))
		return
	}

	c.JSON(http.StatusOK, order.PaymentView())
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "payment-service"})
}
