package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tradorr/api/internal/checkout"
	"tradorr/api/internal/config"
	"tradorr/api/internal/entitlement"
	"tradorr/api/internal/events"
	"tradorr/api/internal/google"
	"tradorr/api/internal/middleware"
	"tradorr/api/internal/payment"
	"tradorr/api/internal/repository"
	"tradorr/api/internal/service"
	"tradorr/api/internal/storage"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	entitlements *entitlement.Service
	checkouts    *checkout.Service
	bus          *events.Broadcaster
	db           *pgxpool.Pool
	cache        *redis.Client
	users        *repository.UserRepository
	sessions     *repository.SessionRepository
	checkoutRepo *repository.CheckoutRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, receiptStore *storage.ReceiptStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)
	checkoutRepo := repository.NewCheckoutRepository(db)

	bus := events.NewBroadcaster(cache, log)
	entitlements := entitlement.NewService(entitlementRepo, bus, cfg.Billing, log)

	providers := payment.NewRegistry(
		payment.NewStripeProvider(cfg.Payments.Stripe),
		payment.NewRazorpayProvider(cfg.Payments.Razorpay),
		payment.NewCryptoProvider(cfg.Payments.Crypto),
	)

	var receipts checkout.Receipts
	if receiptStore != nil {
		receipts = receiptStore
	}
	checkouts := checkout.NewService(checkoutRepo, entitlements, providers, receipts, bus, log)

	verifier := google.NewVerifier(cfg.Google.Issuer, cfg.Google.ClientID)
	auth := service.NewAuthService(userRepo, sessionRepo, verifier, entitlements, bus, cfg, log)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  auth,
		entitlements: entitlements,
		checkouts:    checkouts,
		bus:          bus,
		db:           db,
		cache:        cache,
		users:        userRepo,
		sessions:     sessionRepo,
		checkoutRepo: checkoutRepo,
	}
}

// Entitlements exposes the entitlement service for background jobs.
func (h HandlerSet) Entitlements() *entitlement.Service {
	return h.entitlements
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/google", h.LoginGoogle)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)

	// Plan catalog is public: the pricing page renders before sign-in.
	v1.GET("/plans", h.ListPlans)
	v1.GET("/plans/costs", h.TokenCosts)

	// Provider callbacks authenticate by signature, not by session.
	v1.POST("/payments/:provider/webhook", h.PaymentWebhook)

	guard := middleware.Auth(h.cfg, h.users, h.sessions)

	authed := v1.Group("")
	authed.Use(guard)
	authed.GET("/auth/me", h.Me)
	authed.GET("/entitlement", h.GetEntitlement)
	authed.POST("/analysis", h.Analyze)
	authed.GET("/events", h.StreamEvents)
	authed.POST("/checkout", h.StartCheckout)
	authed.GET("/checkout/:id", h.GetCheckout)
	authed.POST("/checkout/:id/method", h.SelectMethod)
	authed.POST("/checkout/:id/cancel", h.CancelCheckout)

	admin := v1.Group("/admin")
	admin.Use(guard, middleware.RequireAdmin())
	admin.GET("/users", h.AdminListUsers)
	admin.GET("/checkouts", h.AdminListCheckouts)
	admin.POST("/users/:id/tokens", h.AdminAdjustTokens)
	admin.POST("/users/:id/status", h.AdminUpdateUserStatus)
}
