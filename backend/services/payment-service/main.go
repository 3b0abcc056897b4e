package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awspkg "github.com/printforge/storefront/backend/pkg/aws"
	applog "github.com/printforge/storefront/backend/services/common/logger"
	commonmw "github.com/printforge/storefront/backend/services/common/middleware"
	"github.com/printforge/storefront/backend/services/payment-service/config"
	"github.com/printforge/storefront/backend/services/payment-service/controllers"
	"github.com/printforge/storefront/backend/services/payment-service/database"
	"github.com/printforge/storefront/backend/services/payment-service/dedupe"
	"github.com/printforge/storefront/backend/services/payment-service/notifier"
	"github.com/printforge/storefront/backend/services/payment-service/repository"
	"github.com/printforge/storefront/backend/services/payment-service/routes"
	"github.com/printforge/storefront/backend/services/payment-service/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// AWS is optional until a component needs it.
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)

	var logSink io.Writer
	if cfg.CloudWatchEnabled && awsErr == nil {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, cfg.ServiceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch Logs disabled: %v\n", err)
		} else {
			logSink = cwLogs
		}
	}
	logger := applog.MustNew(cfg.Env, logSink)
	defer logger.Sync()

	if awsErr != nil {
		logger.Warn("AWS config unavailable; AWS-backed components disabled", zap.Error(awsErr))
	}

	if cfg.UseSecrets {
		if awsErr != nil {
			logger.Fatal("AWS_USE_SECRETS=true but AWS config failed", zap.Error(awsErr))
		}
		if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			logger.Fatal("Failed to load secrets", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("PAYMENT_WEBHOOK_SECRET not set: unsigned webhooks will be accepted (development only)")
	}

	metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled && awsErr == nil)

	// Order store
	var db *gorm.DB
	var store repository.OrderStore
	switch cfg.OrderStore {
	case config.StoreDynamoDB:
		if awsErr != nil {
			logger.Fatal("ORDER_STORE=dynamodb requires AWS config", zap.Error(awsErr))
		}
		store = repository.NewDynamoOrderRepository(awspkg.NewDynamoDBClient(awsCfg), cfg.OrdersDynamoTable)
		logger.Info("Using DynamoDB order store", zap.String("table", cfg.OrdersDynamoTable))
	default:
		db, err = database.ConnectPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("DB connection failed", zap.Error(err))
		}
		store = repository.NewGormOrderRepository(db)
	}

	// Notifiers
	orderNotifier, closeNotifiers := buildNotifier(cfg, awsCfg, awsErr, store, logger)
	defer closeNotifiers()

	// Delivery dedupe
	var guard services.DeliveryGuard
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = dedupe.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, webhook dedupe disabled", zap.Error(err))
		} else {
			guard = dedupe.NewRedisGuard(redisClient, cfg.DedupeTTL)
			logger.Info("Webhook delivery dedupe enabled", zap.Duration("ttl", cfg.DedupeTTL))
		}
	}

	reconciler := services.NewReconciler(store, orderNotifier, metricsClient, logger, services.ReconcilerConfig{
		NotifyTimeout:   cfg.NotifyTimeout,
		EnforceOrdering: cfg.EnforceEventOrdering,
	})
	processor := services.NewWebhookProcessor(services.NewSignatureVerifier(cfg.WebhookSecret), reconciler, guard, metricsClient, logger)
	paymentController := controllers.NewPaymentController(processor, store, logger)

	backgroundCtx, backgroundCancel := context.WithCancel(ctx)
	defer backgroundCancel()

	adminLimiter := commonmw.NewRateLimiter(rate.Limit(cfg.AdminRateLimit), cfg.AdminRateBurst, 10*time.Minute)
	go adminLimiter.Run(backgroundCtx)

	// SQS relay
	relayDone := make(chan struct{})
	if cfg.WebhookQueueURL != "" && awsErr == nil {
		sqsConsumer := awspkg.NewSQSConsumer(awsCfg, cfg.WebhookQueueURL, cfg.WebhookVisibilityTimeout, logger)
		relay := services.NewWebhookRelayConsumer(sqsConsumer, processor, metricsClient, logger)
		go func() {
			defer close(relayDone)
			relay.Start(backgroundCtx)
		}()
	} else {
		close(relayDone)
	}

	r := routes.NewRouter(logger, metricsClient, paymentController, adminLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Payment service started", zap.String("port", cfg.Port), zap.String("order_store", cfg.OrderStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	backgroundCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	<-relayDone
	reconciler.Wait()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("Payment service stopped gracefully")
}

// buildNotifier assembles every configured notification channel.
func buildNotifier(cfg *config.Config, awsCfg sdkaws.Config, awsErr error, store repository.OrderStore, logger *zap.Logger) (notifier.Notifier, func()) {
	var channels []notifier.Notifier
	closers := []func(){}

	if cfg.SMTPHost != "" {
		sender, err := notifier.NewSMTPSender(notifier.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			logger.Fatal("Failed to init SMTP sender", zap.Error(err))
		}
		channels = append(channels, notifier.NewEmailNotifier(store, sender, logger))
	}

	if cfg.OrderEventsTopicARN != "" {
		if awsErr != nil {
			logger.Fatal("ORDER_EVENTS_SNS_TOPIC_ARN set but AWS config failed", zap.Error(awsErr))
		}
		channels = append(channels, notifier.NewSNSNotifier(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicARN))
	}

	if len(cfg.KafkaBrokers) > 0 {
		kn := notifier.NewKafkaNotifier(notifier.NewKafkaWriter(cfg.KafkaBrokers, cfg.OrderEventsKafkaTopic), cfg.OrderEventsKafkaTopic, logger)
		channels = append(channels, kn)
		closers = append(closers, func() {
			if err := kn.Close(); err != nil {
				logger.Warn("Kafka writer close error", zap.Error(err))
			}
		})
	}

	if len(channels) == 0 {
		logger.Warn("No order notification channel configured; paid orders will not be announced")
	}
	return notifier.Combine(channels...), func() {
		for _, c := range closers {
			c()
		}
	}
}
