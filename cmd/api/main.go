package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/shop-auth-api/internal/application/notification"
	"github.com/shop-auth-api/internal/config"
	"github.com/shop-auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/shop-auth-api/internal/infrastructure/jwt"
	"github.com/shop-auth-api/internal/infrastructure/memory"
	"github.com/shop-auth-api/internal/infrastructure/postmark"
	redisinfra "github.com/shop-auth-api/internal/infrastructure/redis"
	s3infra "github.com/shop-auth-api/internal/infrastructure/s3"
	"github.com/shop-auth-api/internal/infrastructure/smtp"
	"github.com/shop-auth-api/internal/infrastructure/sns"
	"github.com/shop-auth-api/internal/logging"
	transporthttp "github.com/shop-auth-api/internal/transport/http"
	appmiddleware "github.com/shop-auth-api/internal/transport/http/middleware"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// AWS config is loaded on first use; the memory backend with a non-SNS
	// notifier never touches AWS.
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := dynamo.LoadAWSConfig(ctx, cfg)
			if err != nil {
				return aws.Config{}, err
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	deps := &transporthttp.Deps{}

	switch cfg.StoreBackend {
	case config.StoreDynamo:
		ac, err := loadAWS()
		if err != nil {
			return err
		}
		client := dynamo.NewClient(ac, cfg.AWSEndpointURL)
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		deps.UserRepo = dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
		deps.VerificationRepo = dynamo.NewVerificationRepo(client, cfg.DynamoTables.UserVerifications)
		deps.CartRepo = dynamo.NewCartRepo(client, cfg.DynamoTables.Carts)
		deps.Avatars = s3infra.NewStore(s3infra.NewClient(ac, cfg.AWSEndpointURL), cfg.S3BucketName, cfg.AWSRegion, cfg.AWSEndpointURL)
	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		deps.UserRepo = memory.NewUserStore()
		deps.VerificationRepo = memory.NewVerificationStore()
		deps.CartRepo = memory.NewCartStore()
		deps.Avatars = memory.NewObjectStore()
	}

	mailer, err := newMailer(cfg, loadAWS)
	if err != nil {
		return err
	}
	deps.Mailer = mailer

	tokens, err := newTokenProvider(cfg)
	if err != nil {
		return err
	}
	deps.Tokens = tokens

	if cfg.RedisURL != "" {
		client, err := redisinfra.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Revoker = redisinfra.NewDenylist(client)
		slog.Info("token revocation enabled")
	}

	limiter := appmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxyHops)
	defer limiter.Stop()
	deps.RateLimiter = limiter

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend, "notifier", cfg.NotifierBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newMailer(cfg *config.Config, loadAWS func() (aws.Config, error)) (notification.Mailer, error) {
	switch cfg.NotifierBackend {
	case config.NotifierPostmark:
		m, err := postmark.NewMailer(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.NotifierSNS:
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return sns.NewTopicMailer(ac, cfg.SNSRegion, cfg.SNSTopicARN), nil
	case config.NotifierLog:
		return notification.LogMailer{Logger: slog.Default()}, nil
	default:
		return smtp.NewMailer(cfg), nil
	}
}

// newTokenProvider loads the RS256 key pair. Outside production a missing
// key pair falls back to an ephemeral key, so tokens do not survive restarts.
func newTokenProvider(cfg *config.Config) (*jwtinfra.Provider, error) {
	p, err := jwtinfra.NewProvider(cfg)
	if err == nil {
		return p, nil
	}
	if cfg.AppEnv == "production" {
		return nil, fmt.Errorf("jwt provider: %w", err)
	}
	slog.Warn("jwt key pair not available, using an ephemeral key", "error", err)
	key, genErr := rsa.GenerateKey(rand.Reader, 2048)
	if genErr != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", genErr)
	}
	return jwtinfra.NewProviderWithKey(key, cfg.JWTIssuer), nil
}
