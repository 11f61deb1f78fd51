package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andescare/careline/internal/config"
	"github.com/andescare/careline/internal/dialogue"
	"github.com/andescare/careline/internal/directory"
	"github.com/andescare/careline/internal/handler"
	"github.com/andescare/careline/internal/middleware"
	natsclient "github.com/andescare/careline/internal/nats"
	"github.com/andescare/careline/internal/notify"
	"github.com/andescare/careline/internal/router"
	"github.com/andescare/careline/internal/store"
	"github.com/andescare/careline/internal/video"
	"github.com/andescare/careline/internal/whatsapp"
	"github.com/andescare/careline/pkg/logger"
	"github.com/andescare/careline/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "careline-api", cfg.TracingEndpoint)
		if err != nil {
			log.Error("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	nc, err := natsclient.Connect(natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	st := store.New(log)
	dir := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryToken, cfg.DirectoryTimeout, log)
	links := video.NewLinkBuilder(cfg.VideoBaseURL, cfg.VideoSubject)
	engine := dialogue.NewEngine(dir, links, log)
	sender := whatsapp.NewSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, log)
	publisher := notify.NewPublisher(nc, log)
	rt := router.New(st, engine, sender, publisher, log)

	healthHandler := handler.NewHealthHandler(nc)
	webhookHandler := handler.NewWebhookHandler(rt, st, sender, cfg.WhatsAppVerifyToken, log)
	operatorHandler := handler.NewOperatorHandler(rt, st, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Channel webhook. Authenticated by the verify token handshake, not JWT.
	r.Route("/webhook", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Get("/whatsapp", webhookHandler.Verify)
		r.Post("/whatsapp", webhookHandler.Receive)
		r.Get("/stats", webhookHandler.Stats)
		r.Post("/send-test", webhookHandler.SendTest)
	})

	// Operator console API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/operators/register", operatorHandler.Register)
		r.Delete("/operators/register", operatorHandler.Deregister)

		r.Get("/conversations/waiting", operatorHandler.ListWaiting)
		r.Get("/conversations/mine", operatorHandler.ListMine)
		r.Get("/conversations/{id}", operatorHandler.Get)
		r.Post("/conversations/{id}/take", operatorHandler.Take)
		r.Post("/conversations/{id}/messages", operatorHandler.SendMessage)
		r.Post("/conversations/{id}/release", operatorHandler.Release)
		r.Post("/conversations/{id}/close", operatorHandler.Close)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
