// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency — the Mongo store, the
// token and password services, the mailer, the metrics collector, the
// services and handlers — is constructed and wired here, in one place,
// rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/pastebin/internal/auth"
	"github.com/sakif/pastebin/internal/handler"
	"github.com/sakif/pastebin/internal/mailer"
	"github.com/sakif/pastebin/internal/metrics"
	"github.com/sakif/pastebin/internal/middleware"
	mongorepo "github.com/sakif/pastebin/internal/repository/mongo"
	"github.com/sakif/pastebin/internal/service"
)

// Config holds server configuration, loaded from the environment by main.
type Config struct {
	Port        int
	BaseURL     string
	TemplateDir string
	StaticDir   string

	// Three logically separate document stores.
	UsersURI    string
	PoolURI     string
	MessagesURI string

	JWTSecret    string
	JWTAlgorithm string        // HS256 or HS512
	SessionTTL   time.Duration // access token lifetime

	Mail mailer.Config
}

// Server owns the router and every resource that must be released on
// shutdown: the Mongo clients and the rate limiter's cleanup goroutine.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	store   *mongorepo.Store
	limiter *middleware.RateLimiter
}

// New creates a Server with all dependencies wired.
//
// DEPENDENCY CHAIN:
//
//	mongo.Store → repositories
//	repositories + TokenService/PasswordService → services
//	services + Renderer/mailer/metrics → handlers
//	handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below the handlers touches
// HTTP.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	store, err := mongorepo.New(ctx, mongorepo.Config{
		UsersURI:    cfg.UsersURI,
		PoolURI:     cfg.PoolURI,
		MessagesURI: cfg.MessagesURI,
	})
	if err != nil {
		return nil, fmt.Errorf("opening stores: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, handlers, and routes.
//
// ROUTE STRUCTURE:
//
//	GET  /                         → landing page (session; triggers pool growth)
//	GET  /static/*                 → static assets
//	GET  /metrics                  → Prometheus metrics
//	GET  /auth/register            → registration form
//	POST /auth/register            → create inactive account, send mail
//	GET  /auth/confirm/{token}     → activate account
//	GET  /auth/login               → login form
//	POST /auth/login               → issue session cookie
//	GET  /auth/logout              → clear session cookie
//	GET  /auth/users/me            → current user (JSON, session)
//	GET  /pastbin/create_message   → compose form (session)
//	POST /pastbin/create_message   → publish a message (session)
//	GET  /pastbin/message/{id}     → view one message (public)
//	GET  /pastbin/all_messages     → view all messages (session)
func (s *Server) setupRoutes() error {
	// Global middleware, in order. RealIP must precede the rate limiter,
	// which keys on client address.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Metrics registry + collector shared by services and the mailer.
	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)
	s.router.Handle("/metrics", metrics.Handler(registry))

	// Static files.
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	renderer, err := handler.NewRenderer(s.config.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.JWTAlgorithm)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	sender, err := mailer.NewSMTPSender(s.config.Mail)
	if err != nil {
		return fmt.Errorf("creating mailer: %w", err)
	}

	authSvc := service.NewAuthService(s.store.Users, tokens, passwords, s.config.SessionTTL, s.logger)
	poolSvc := service.NewPoolService(s.store.Slots, collector, s.logger)
	messageSvc := service.NewMessageService(s.store.Messages, poolSvc, collector, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, sender, collector, renderer, s.config.BaseURL, s.logger)
	homeHandler := handler.NewHomeHandler(poolSvc, renderer, s.logger)
	pastbinHandler := handler.NewPastbinHandler(messageSvc, renderer, s.config.BaseURL, s.logger)

	requirePage := auth.RequirePage(tokens, s.store.Users)
	requireAuth := auth.RequireAuth(tokens, s.store.Users)

	// Credential endpoints run bcrypt; rate-limit them per client IP.
	s.limiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), s.logger)
	limited := s.limiter.Middleware()

	s.router.With(requirePage).Get("/", homeHandler.HandleIndex)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/register", authHandler.HandleRegisterPage)
		r.With(limited).Post("/register", authHandler.HandleRegister)
		r.Get("/confirm/{token}", authHandler.HandleConfirm)
		r.Get("/login", authHandler.HandleLoginPage)
		r.With(limited).Post("/login", authHandler.HandleLogin)
		r.Get("/logout", authHandler.HandleLogout)
		r.With(requireAuth).Get("/users/me", authHandler.HandleMe)
	})

	s.router.Route("/pastbin", func(r chi.Router) {
		r.With(requirePage).Get("/create_message", pastbinHandler.HandleCreatePage)
		r.With(requirePage).Post("/create_message", pastbinHandler.HandleCreate)
		r.Get("/message/{id}", pastbinHandler.HandleMessage)
		r.With(requirePage).Get("/all_messages", pastbinHandler.HandleAllMessages)
	})

	return nil
}

// Start runs the HTTP server and handles graceful shutdown.
//
// SHUTDOWN ORDER:
//  1. Stop accepting new connections
//  2. Wait (up to 30s) for in-flight requests
//  3. Stop the rate limiter's cleanup goroutine
//  4. Disconnect the Mongo clients
func (s *Server) Start() error {
	defer s.store.Close()
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("baseURL", s.config.BaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
