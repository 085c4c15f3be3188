package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	authhandler "github.com/L1oneSs/AuthTemplate/internal/auth/handler"
	authservice "github.com/L1oneSs/AuthTemplate/internal/auth/service"
	"github.com/L1oneSs/AuthTemplate/internal/config"
	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/db"
	"github.com/L1oneSs/AuthTemplate/internal/logging"
	"github.com/L1oneSs/AuthTemplate/internal/mail"
	recoveryhandler "github.com/L1oneSs/AuthTemplate/internal/recovery/handler"
	recoveryservice "github.com/L1oneSs/AuthTemplate/internal/recovery/service"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	"github.com/L1oneSs/AuthTemplate/internal/server"
	sessionrepo "github.com/L1oneSs/AuthTemplate/internal/session/repository"
	userrepo "github.com/L1oneSs/AuthTemplate/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.JWTSecretKey == "" {
		logger.Fatal("JWT_SECRET_KEY is required")
	}
	if cfg.TokenSalt == "" {
		logger.Fatal("TOKEN_SALT is required")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)

	hasher := security.NewHasher(cfg.BcryptCost)
	credentials := credential.NewStore(hasher, users)
	tokens := security.NewTokenProvider(
		[]byte(cfg.JWTSecretKey), cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL())
	codec := security.NewIntegrityCodec(cfg.TokenSalt, cfg.RecoveryTokenTTL())

	var sender mail.Sender
	if cfg.EnableEmail && cfg.SMTPServer != "" {
		from := cfg.SenderEmail
		if from == "" {
			from = cfg.SMTPUsername
		}
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     from,
			Timeout:  time.Duration(cfg.SMTPTimeout) * time.Second,
		}, logger)
	} else {
		sender = mail.NewDisabledSender(logger)
	}
	mailer := mail.NewRecoveryMailer(sender, cfg.FrontendURL)

	authSvc := authservice.NewAuthService(users, sessions, credentials, tokens)
	recoverySvc := recoveryservice.NewRecoveryService(users, credentials, codec, mailer, logger)

	sources := server.TokenSources{Headers: cfg.UseHeaders(), Cookies: cfg.UseCookies()}
	var corsOrigins []string
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	router := server.NewRouter(logger, tokens, sources, corsOrigins,
		authhandler.New(authSvc, sources, logger),
		recoveryhandler.New(recoverySvc, logger))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}
