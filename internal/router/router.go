package router

import (
	"log"
	"net/http"
	"time"

	"counsel/config"
	"counsel/internal/handler"
	"counsel/internal/middleware"
	"counsel/internal/repository"
	"counsel/internal/service"
	"counsel/pkg/mailer"
	"counsel/pkg/processor"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// External collaborators
	proc := newProcessor(&cfg.Stripe)
	smtp := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	notifSvc := service.NewNotificationService(smtp, cfg.Billing.LawyerEmail)
	paymentSvc := service.NewPaymentService(proc, paymentRepo, userRepo)
	webhookSvc := service.NewWebhookService(paymentRepo, userRepo, notifSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	webhookHandler := handler.NewStripeWebhookHandler(proc, webhookSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("/create-payment-intent", paymentHandler.CreateIntent)
			payments.POST("/confirm-payment", paymentHandler.Confirm)
			payments.GET("/history", paymentHandler.History)
			payments.POST("/:paymentId/refund", paymentHandler.Refund)
		}
	}

	// Outside the rate-limited group: processor retries must never be throttled.
	r.POST("/api/v1/webhooks/stripe", webhookHandler.Handle)

	return r
}

// newProcessor picks the payment processor: Stripe when a secret key is
// configured, the in-memory stub otherwise so local development works without
// credentials.
func newProcessor(cfg *config.StripeConfig) processor.Processor {
	if cfg.SecretKey == "" {
		log.Println("[Router] STRIPE_SECRET_KEY not set, using stub payment processor")
		return processor.NewStubProcessor()
	}
	return processor.NewStripeProcessor(cfg.SecretKey, cfg.WebhookSecret)
}
