package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/courseforge/billing-api/internal/config"
	"github.com/courseforge/billing-api/internal/domain/account"
	"github.com/courseforge/billing-api/internal/domain/catalog"
	"github.com/courseforge/billing-api/internal/domain/ledger"
	"github.com/courseforge/billing-api/internal/domain/payment"
	"github.com/courseforge/billing-api/internal/domain/referral"
	"github.com/courseforge/billing-api/internal/middleware"
	"github.com/courseforge/billing-api/internal/pkg/database"
	"github.com/courseforge/billing-api/internal/pkg/jwt"
	"github.com/courseforge/billing-api/internal/pkg/logger"
	"github.com/courseforge/billing-api/internal/pkg/razorpay"
	"github.com/courseforge/billing-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting CourseForge billing API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	gatewayCfg := razorpay.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		BaseURL:       cfg.RazorpayBaseURL,
		Timeout:       cfg.RazorpayTimeout,
	}
	gateway := razorpay.NewClient(gatewayCfg)

	// ---------- Services ----------
	ledgerStore := ledger.NewStore(db)
	balanceCache := ledger.NewBalanceCache(redis, cfg.BalanceCacheTTL)
	ledgerSvc := ledger.NewService(ledgerStore, balanceCache, cfg.CreditLotExpiryDays)

	accountSvc := account.NewService(account.NewRepository(db))
	catalogSvc := catalog.NewService(catalog.NewRepository(db))
	referralSvc := referral.NewService(referral.NewRepository(db), ledgerSvc, cfg.ReferralBonusPercent)
	paymentSvc := payment.NewService(payment.NewRepository(db), ledgerSvc, referralSvc, catalogSvc, gateway, gatewayCfg)

	// ---------- Handlers ----------
	accountHandler := account.NewHandler(accountSvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc, catalogSvc)
	catalogHandler := catalog.NewHandler(catalogSvc)
	referralHandler := referral.NewHandler(referralSvc)
	paymentHandler := payment.NewHandler(paymentSvc)

	authMiddleware := middleware.Auth(jwtService)
	adminOnly := middleware.RequireRole("admin")

	// ---------- Background workers ----------
	expiryWorker := ledger.NewWorker(ledgerSvc, cfg.ExpirySweepInterval)
	expiryWorker.Start()
	defer expiryWorker.Stop()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/account", accountHandler.Routes(authMiddleware))
		r.Mount("/credits", ledgerHandler.Routes(authMiddleware, adminOnly))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/referrals", referralHandler.Routes(authMiddleware))
		r.Mount("/catalog", catalogHandler.Routes())

		// gateway webhooks authenticate by signature, not by JWT
		r.Post("/webhooks/razorpay", paymentHandler.Webhook)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
