package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/httpapi"
	"github.com/dsirine/StretchShop/internal/invoice"
	"github.com/dsirine/StretchShop/internal/payments"
	"github.com/dsirine/StretchShop/internal/plancache"
	"github.com/dsirine/StretchShop/internal/publisher"
	"github.com/dsirine/StretchShop/internal/repository"
	"github.com/dsirine/StretchShop/internal/subscriptions"
	"github.com/dsirine/StretchShop/internal/webhook"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	MigrationsDirPath string

	RedisAddr    string
	KafkaBrokers string

	GatewayBaseURL  string
	GatewayClientID string
	GatewaySecret   string
	GatewayEnv      string
	WebhookID       string

	SiteURL       string
	SiteName      string
	URLPathPrefix string
	InvoiceDir    string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "payments"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		GatewayBaseURL:  getEnv("PAYPAL_BASE_URL", "https://api.sandbox.paypal.com"),
		GatewayClientID: getEnv("PAYPAL_CLIENT_ID", ""),
		GatewaySecret:   getEnv("PAYPAL_SECRET", ""),
		GatewayEnv:      getEnv("PAYPAL_ENV", "sandbox"),
		WebhookID:       getEnv("PAYPAL_WEBHOOK_ID", ""),

		SiteURL:       getEnv("SITE_URL", "https://stretchshop.app"),
		SiteName:      getEnv("SITE_NAME", "StretchShop"),
		URLPathPrefix: getEnv("URL_PATH_PREFIX", "/"),
		InvoiceDir:    getEnv("INVOICE_DIR", "invoices"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	repo, err := repository.NewRepository(cred)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cred); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	gw := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.GatewayBaseURL,
		ClientID:    cfg.GatewayClientID,
		Secret:      cfg.GatewaySecret,
		Environment: cfg.GatewayEnv,
		WebhookID:   cfg.WebhookID,
		SiteURL:     cfg.SiteURL,
		SiteName:    cfg.SiteName,
		Timeout:     cfg.RequestTimeout,
	})

	invoices, err := invoice.NewHTMLGenerator(cfg.InvoiceDir)
	if err != nil {
		log.Fatalf("failed to set up invoice generator: %v", err)
	}

	notifier := publisher.NewOutboxNotifier(repo)
	poller := publisher.NewOutboxPoller(repo, strings.Split(cfg.KafkaBrokers, ",")...)
	postPaid := payments.LogPostPaid{}

	subsService := subscriptions.NewService(
		subscriptions.Config{SiteURL: cfg.SiteURL, URLPathPrefix: cfg.URLPathPrefix},
		repo, repo, gw,
		plancache.NewRedisCache(redisClient),
		invoices, notifier, postPaid,
	)
	paymentsService := payments.NewService(
		payments.Config{SiteURL: cfg.SiteURL, SiteName: cfg.SiteName, URLPathPrefix: cfg.URLPathPrefix},
		repo, gw, invoices, notifier, postPaid, subsService,
	)
	dispatcher := webhook.NewDispatcher(gw, repo, subsService)

	router := httpapi.NewRouter(
		httpapi.NewPaymentsHandler(paymentsService, subsService, cfg.RequestTimeout),
		httpapi.NewSubscriptionsHandler(subsService, cfg.RequestTimeout),
		httpapi.NewWebhookHandler(dispatcher, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("payment service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		poller.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
