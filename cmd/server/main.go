// Package main is the entry point for the pastebin server.
//
// Its job is deliberately small: read configuration from the environment,
// build the logger, and hand both to internal/server. All actual logic lives
// in the imported packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sakif/pastebin/internal/mailer"
	"github.com/sakif/pastebin/internal/server"
)

// envStr returns the environment value or a default when unset.
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt returns the environment value parsed as int, or a default. A value
// that is set but unparseable is a configuration error worth dying over.
func envInt(logger *slog.Logger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Error("invalid integer in environment",
			slog.String("key", key),
			slog.String("value", v),
		)
		os.Exit(1)
	}
	return n
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := envInt(logger, "PORT", 8000)

	// JWT_SECRET has no default on purpose — a guessable signing secret
	// makes every session forgeable.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET must be set (e.g. JWT_SECRET=$(openssl rand -hex 32))")
		os.Exit(1)
	}

	templateDir, _ := filepath.Abs(envStr("TEMPLATE_DIR", "web/templates"))
	staticDir, _ := filepath.Abs(envStr("STATIC_DIR", "web/static"))

	cfg := server.Config{
		Port:        port,
		BaseURL:     envStr("BASE_URL", "http://127.0.0.1:8000"),
		TemplateDir: templateDir,
		StaticDir:   staticDir,

		// Three logically separate stores; in development all three URIs
		// usually point at the same local mongod.
		UsersURI:    envStr("DB_USERS_URI", "mongodb://localhost:27017"),
		PoolURI:     envStr("DB_POOL_URI", "mongodb://localhost:27017"),
		MessagesURI: envStr("DB_MESSAGES_URI", "mongodb://localhost:27017"),

		JWTSecret:    jwtSecret,
		JWTAlgorithm: envStr("JWT_ALGORITHM", "HS256"),
		SessionTTL:   time.Duration(envInt(logger, "ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,

		Mail: mailer.Config{
			Host:     envStr("MAIL_SERVER", "smtp.example.com"),
			Port:     envInt(logger, "MAIL_PORT", 465),
			Username: envStr("MAIL_USERNAME", ""),
			Password: envStr("MAIL_PASSWORD", ""),
			From:     envStr("MAIL_FROM", envStr("MAIL_USERNAME", "")),
		},
	}

	ctx := context.Background()
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
