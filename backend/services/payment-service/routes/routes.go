package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/printforge/storefront/backend/pkg/aws"
	applog "github.com/printforge/storefront/backend/services/common/logger"
	commonmw "github.com/printforge/storefront/backend/services/common/middleware"
	"github.com/printforge/storefront/backend/services/payment-service/controllers"
	"github.com/printforge/storefront/backend/services/payment-service/middleware"
	"go.uber.org/zap"
)

// RegisterPaymentRoutes mounts the webhook, the admin read and the health check.
// adminLimiter may be nil.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, adminLimiter *commonmw.RateLimiter) {
	r.GET("/health", controllers.Health)

	// Processor webhook (no auth, body is signed)
	r.POST("/payments/webhook", pc.PaymentWebhook)

	admin := r.Group("/admin")
	if adminLimiter != nil {
		admin.Use(adminLimiter.Middleware())
	}
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole(middleware.RoleAdmin))
	admin.GET("/orders/:id/payment", pc.GetOrderPayment)
}

// NewRouter builds the engine with the service's global middleware and routes.
func NewRouter(logger *zap.Logger, metricsClient *awspkg.MetricsClient, pc *controllers.PaymentController, adminLimiter *commonmw.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(applog.RequestID())
	r.Use(commonmw.RequestLogger(logger))
	r.Use(commonmw.MetricsMiddleware(metricsClient, "payment-service"))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.RequestTimeout(30 * time.Second))

	RegisterPaymentRoutes(r, pc, adminLimiter)
	return r
}
