package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"misa/internal/ai"
	"misa/internal/config"
	"misa/internal/database"
	"misa/internal/events"
	"misa/internal/logger"
	"misa/internal/repository"
	"misa/internal/server"
	"misa/internal/services"
	"misa/internal/validator"
)

// @title           Misa API
// @version         1.0
// @description     Personal finance ledger with monthly budgets, spending analytics and an AI assistant.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeStores, err := openStores(appConfig)
	if err != nil {
		return err
	}
	defer closeStores()

	deps.Categorizer, deps.Assistant, err = newCapabilities(ctx, appConfig)
	if err != nil {
		return err
	}

	deps.Publisher = newPublisher(appConfig)
	defer deps.Publisher.Close()

	deps.AntThreshold = appConfig.AntThreshold
	deps.PipelineAPIKey = appConfig.PipelineAPIKey

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Misa backend server on port %s (%s backend)", appConfig.Port, appConfig.DataBackend)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStores picks the repositories for cfg.DataBackend.
func openStores(cfg *config.Config) (server.Dependencies, func(), error) {
	if cfg.DataBackend == config.BackendFile {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return server.Dependencies{}, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return server.Dependencies{
			Transactions: repository.NewCSVTransactionRepository(cfg.TransactionsFile).WithLegacyOwner(cfg.LegacyOwner),
			Users:        repository.NewJSONUserRepository(cfg.CredentialsFile),
			Audit:        services.NewLogAuditService(),
		}, func() {}, nil
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return server.Dependencies{}, nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		dbManager.Close()
		return server.Dependencies{}, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	closeDB := func() {
		if err := dbManager.Close(); err != nil {
			logger.Get().Warnw("failed to close database", "error", err)
		}
	}
	return server.Dependencies{
		Transactions: repository.NewGormTransactionRepository(db),
		Users:        repository.NewGormUserRepository(db),
		Audit:        services.NewAuditService(db),
	}, closeDB, nil
}

// newCapabilities uses Gemini when an API key is configured. Without one,
// classification falls back to keyword rules and the assistant reports
// itself unavailable.
func newCapabilities(ctx context.Context, cfg *config.Config) (*ai.Categorizer, *ai.Assistant, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Get().Warn("GEMINI_API_KEY not set, using keyword classification and no assistant")
		return ai.NewCategorizer(ai.NewKeywordClassifier(), cfg.AITimeout), ai.NewAssistant(nil, cfg.AITimeout), nil
	}

	client, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, err
	}
	return ai.NewCategorizer(ai.NewGeminiClassifier(client, cfg.GeminiModel), cfg.AITimeout),
		ai.NewAssistant(ai.NewGeminiAnalyst(client, cfg.GeminiModel), cfg.AITimeout),
		nil
}

// newPublisher connects to RabbitMQ when AMQP_URL is set. A broker that is
// down at startup disables events instead of failing the server.
func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.Noop{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Get().Warnw("event publishing disabled", "error", err)
		return events.Noop{}
	}
	return publisher
}
