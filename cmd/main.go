package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/billingkit/wallet-service/internal/handlers"
	"github.com/billingkit/wallet-service/internal/jwt"
	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/middlewares"
	"github.com/billingkit/wallet-service/internal/repositories"
	"github.com/billingkit/wallet-service/internal/services"

	_ "github.com/billingkit/wallet-service/docs"
	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title wallet-service API
// @version 1.0.0
// @description Wallet balance ledger for the billing platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword, idempotencyTTL,
		kafkaBrokers, alertTopic, transactionTopic,
		jwtSecret, jwtExp,
		retryMaxAttempts, retryBaseDelay, retryMaxDelay,
		err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(),
		appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword, idempotencyTTL,
		kafkaBrokers, alertTopic, transactionTopic,
		jwtSecret, jwtExp,
		retryMaxAttempts, retryBaseDelay, retryMaxDelay,
	); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns all
// application, database, Redis, Kafka, JWT and retry-loop configuration.
func parseConfig(path string) (
	appHost, appPort, logLevel string,
	pgHost string, pgPort int, pgUser, pgPassword, pgDB string,
	pgMaxOpenConns, pgMaxIdleConns int,
	redisHost string, redisPort, redisDB int, redisPassword string, idempotencyTTL time.Duration,
	kafkaBrokers []string, alertTopic, transactionTopic string,
	jwtSecret string, jwtExp time.Duration,
	retryMaxAttempts int, retryBaseDelay, retryMaxDelay time.Duration,
	err error,
) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	// Application config
	appHost = getEnv("APP_HOST", "localhost")
	appPort = getEnv("APP_PORT", "8080")
	logLevel = getEnv("APP_LOG_LEVEL", "info")

	// PostgreSQL config
	pgHost = getEnv("POSTGRES_HOST", "localhost")
	pgUser = getEnv("POSTGRES_USER", "user")
	pgPassword = getEnv("POSTGRES_PASSWORD", "password")
	pgDB = getEnv("POSTGRES_DB", "wallets")
	if pgPort, err = strconv.Atoi(getEnv("POSTGRES_PORT", "5432")); err != nil {
		return
	}
	if pgMaxOpenConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_OPEN_CONNS", "16")); err != nil {
		return
	}
	if pgMaxIdleConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_IDLE_CONNS", "8")); err != nil {
		return
	}

	// Redis config
	redisHost = getEnv("REDIS_HOST", "localhost")
	if redisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return
	}
	if redisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return
	}
	redisPassword = getEnv("REDIS_PASSWORD", "")
	var ttlSecond int
	if ttlSecond, err = strconv.Atoi(getEnv("IDEMPOTENCY_CACHE_TTL_SECOND", "86400")); err != nil {
		return
	}
	idempotencyTTL = time.Duration(ttlSecond) * time.Second

	// Kafka config
	kafkaBrokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	alertTopic = getEnv("KAFKA_ALERT_TOPIC", "wallet.low-balance-alerts")
	transactionTopic = getEnv("KAFKA_TRANSACTION_TOPIC", "wallet.transactions")

	// JWT config
	jwtSecret = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	var jwtExpSecond int
	if jwtExpSecond, err = strconv.Atoi(getEnv("JWT_EXP_SECOND", "3600")); err != nil {
		return
	}
	jwtExp = time.Duration(jwtExpSecond) * time.Second

	// Retry-loop config
	if retryMaxAttempts, err = strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "5")); err != nil {
		return
	}
	var baseMs, maxMs int
	if baseMs, err = strconv.Atoi(getEnv("RETRY_BASE_DELAY_MS", "20")); err != nil {
		return
	}
	if maxMs, err = strconv.Atoi(getEnv("RETRY_MAX_DELAY_MS", "500")); err != nil {
		return
	}
	retryBaseDelay = time.Duration(baseMs) * time.Millisecond
	retryMaxDelay = time.Duration(maxMs) * time.Millisecond

	return
}

// run initializes the logger, database, Redis, Kafka, and HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context,
	appHost, appPort, logLevel string,
	pgHost string, pgPort int, pgUser, pgPassword, pgDB string,
	pgMaxOpenConns, pgMaxIdleConns int,
	redisHost string, redisPort, redisDB int, redisPassword string, idempotencyTTL time.Duration,
	kafkaBrokers []string, alertTopic, transactionTopic string,
	jwtSecret string, jwtExp time.Duration,
	retryMaxAttempts int, retryBaseDelay, retryMaxDelay time.Duration,
) error {
	// Initialize logger
	log, err := logger.New(logLevel)
	if err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer log.Sync()
	log.Infof("Logger initialized with level %s", logLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		pgUser, pgPassword, pgHost, pgPort, pgDB)
	log.Infof("Connecting to PostgreSQL at %s:%d", pgHost, pgPort)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		log.Fatal("PostgreSQL connection error:", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("PostgreSQL ping failed:", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisHost, redisPort),
		Password: redisPassword,
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection error:", err)
	}
	defer rdb.Close()

	// Kafka writer for ledger events
	kafkaWriter := &kafka.Writer{
		Addr:         kafka.TCP(kafkaBrokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer kafkaWriter.Close()

	// Initialize JWT verifier
	tokener := jwt.New(jwtSecret, jwtExp)

	// Initialize repositories
	walletReadRepo := repositories.NewWalletReadRepository(db)
	walletWriteRepo := repositories.NewWalletWriteRepository(db)
	txnReadRepo := repositories.NewTransactionReadRepository(db)
	txnWriteRepo := repositories.NewTransactionWriteRepository(db)
	idempotencyCache := repositories.NewIdempotencyCacheRepository(rdb, idempotencyTTL)
	txRunner := repositories.NewTxRunner(db)

	// Initialize services
	alertService := services.NewAlertService(kafkaWriter, alertTopic, transactionTopic)
	walletService := services.NewWalletService(walletReadRepo, walletWriteRepo, txnReadRepo)
	processor := services.NewTransactionProcessor(
		walletStore{walletReadRepo, walletWriteRepo},
		txnStore{txnWriteRepo, txnReadRepo},
		idempotencyCache,
		txRunner,
		alertService,
		services.ProcessorConfig{
			MaxAttempts: retryMaxAttempts,
			BaseDelay:   retryBaseDelay,
			MaxDelay:    retryMaxDelay,
		},
	)

	// Initialize handlers
	createWalletHandler := handlers.NewCreateWalletHandler(walletService)
	balanceHandler := handlers.NewBalanceHandler(walletService)
	transactionHandler := handlers.NewTransactionHandler(processor)
	historyHandler := handlers.NewTransactionHistoryHandler(walletService)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(log))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(tokener))
		r.Post("/wallets", createWalletHandler)
		r.Get("/wallets/{walletID}/balance", balanceHandler)
		r.Post("/wallets/{walletID}/transactions", transactionHandler)
		r.Get("/wallets/{walletID}/transactions", historyHandler)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", appHost, appPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", appHost, appPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		log.Infof("HTTP server listening on %s:%s", appHost, appPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	}

	log.Info("HTTP server stopped gracefully")
	return nil
}

// walletStore combines the wallet read and write repositories into the
// processor's WalletStore.
type walletStore struct {
	*repositories.WalletReadRepository
	*repositories.WalletWriteRepository
}

// txnStore combines the transaction write and read repositories into the
// processor's TransactionStore.
type txnStore struct {
	*repositories.TransactionWriteRepository
	*repositories.TransactionReadRepository
}
