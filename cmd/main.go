package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "loan-tracker/docs"
	"loan-tracker/internal/api"
	"loan-tracker/internal/api/middleware"
	"loan-tracker/internal/batch"
	"loan-tracker/internal/config"
	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/user"
	"loan-tracker/internal/event"
	"loan-tracker/internal/infrastructure/database/memory"
	"loan-tracker/internal/infrastructure/database/postgres"
	"loan-tracker/internal/infrastructure/lock"
	"loan-tracker/internal/infrastructure/logging"
	"loan-tracker/internal/infrastructure/session"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// @title Loan Tracker API
// @version 1.0
// @description Loans with French amortization schedules, payments, overdue tracking and client management.
// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	repos, err := initializeRepositories(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer repos.close()

	rabbitMQConn := initializeRabbitMQ(cfg, logger)
	redisClient := initializeRedisClient(cfg, logger)
	rateLimiter := initializeRateLimiter(cfg, redisClient, logger)
	publisher := initializeEventPublisher(cfg, rabbitMQConn, logger)

	svcs := initializeServices(cfg, repos, redisClient, publisher, logger)
	seedDefaultUser(cfg, svcs.auth, logger)

	sweepJob := batch.NewOverdueSweepJob(svcs.loans, logger)
	cronScheduler := startBatchJobs(cfg, logger, sweepJob)
	router := api.SetupRouter(svcs.loans, svcs.clients, svcs.auth, rateLimiter, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rateLimiter, rabbitMQConn, redisClient, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", cfg.Source())

	return cfg, logger
}

// repositories groups the storage implementations selected by database.driver.
type repositories struct {
	loans   loanStore
	clients client.ClientRepository
	users   user.Repository
	close   func()
}

type loanStore interface {
	loan.Repository
	client.ActiveLoanChecker
}

func initializeRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DatabaseDriverMemory:
		logger.Warn("Using in-memory storage, data will be lost on restart.")
		return &repositories{
			loans:   memory.NewLoanRepository(),
			clients: memory.NewClientRepository(),
			users:   memory.NewUserRepository(),
			close:   func() {},
		}, nil
	case config.DatabaseDriverPostgres, "":
		if cfg.Database.Migrate {
			logger.Info("Applying database migrations...")
			if err := postgres.MigrateURL(cfg.Database.URL); err != nil {
				return nil, err
			}
		}

		logger.Info("Initializing database connection pool...")
		dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return &repositories{
			loans:   postgres.NewLoanRepository(dbPool, logger),
			clients: postgres.NewClientRepository(dbPool, logger),
			users:   postgres.NewUserRepository(dbPool, logger),
			close: func() {
				logger.Info("Closing database connection pool...")
				dbPool.Close()
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

type services struct {
	loans   loan.LoanService
	clients client.ClientService
	auth    user.AuthService
}

func initializeServices(cfg *config.Config, repos *repositories, redisClient *redis.Client, publisher event.EventPublisher, logger *slog.Logger) services {
	logger.Info("Initializing application components...")

	var (
		limiter  user.LoginLimiter
		sessions user.SessionStore
	)
	authCfg := cfg.Server.Auth
	if redisClient != nil {
		limiter = session.NewRedisLoginLimiter(redisClient, authCfg.MaxLoginAttempts, authCfg.LockoutDuration)
		sessions = session.NewRedisSessionStore(redisClient)
	} else {
		limiter = session.NewMemoryLoginLimiter(authCfg.MaxLoginAttempts, authCfg.LockoutDuration)
		sessions = session.NewMemorySessionStore()
	}

	clientService := client.NewClientService(repos.clients, repos.loans, publisher, logger)
	loanService := loan.NewLoanService(repos.loans, clientService, buildLocker(cfg, redisClient, logger), publisher, logger)
	authService := user.NewAuthService(repos.users, limiter, sessions, authCfg, logger)

	return services{loans: loanService, clients: clientService, auth: authService}
}

func buildLocker(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) loan.Locker {
	if cfg.Lock.Driver == config.LockDriverRedis {
		if redisClient != nil {
			logger.Info("Using Redis distributed loan locks.")
			return lock.NewRedisLocker(redisClient, cfg.Lock, logger)
		}
		logger.Warn("Redis lock driver requested but Redis is disabled, falling back to local locks.")
	}
	return loan.NewKeyedLocker()
}

func seedDefaultUser(cfg *config.Config, auth user.AuthService, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := auth.EnsureDefaultUser(ctx, cfg.Server.Auth.DefaultUser); err != nil {
		logger.Error("Failed to seed default user", "username", cfg.Server.Auth.DefaultUser.Username, "error", err)
		os.Exit(1)
	}
}

func initializeRateLimiter(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *middleware.RateLimiterMiddleware {
	if !cfg.Server.RateLimit.Enabled {
		logger.Info("Rate limiting disabled.")
		return nil
	}
	// A typed nil client must not reach the middleware as a non-nil interface.
	if redisClient == nil {
		return middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, nil, logger)
	}
	return middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger)
}

func initializeEventPublisher(cfg *config.Config, rabbitConn *amqp.Connection, logger *slog.Logger) event.EventPublisher {
	if rabbitConn == nil {
		logger.Info("Event publishing disabled.")
		return event.NopPublisher{}
	}
	publisher, err := event.NewRabbitMQEventPublisher(rabbitConn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize RabbitMQ publisher, events will be dropped", "error", err)
		return event.NopPublisher{}
	}
	return publisher
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rateLimiter *middleware.RateLimiterMiddleware,
	rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
		return
	}
	if rabbitConn.IsClosed() {
		logger.Info("RabbitMQ connection already closed, skipping close.")
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := rabbitConn.Close(); err != nil {
		logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
	} else {
		logger.Info("RabbitMQ connection closed.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled, using in-process sessions, login limits and rate limits.")
		return nil
	}

	logger.Info("Initializing central Redis client...")
	if cfg.Redis.Addr == "" {
		logger.Error("Redis address (addr) is not configured.")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Error("Failed to connect to Redis", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		os.Exit(1)
	}

	logger.Info("Central Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		logger.Info("Redis client was not initialized, skipping close.")
		return
	}
	logger.Info("Closing central Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close central Redis client connection gracefully", "error", err)
	} else {
		logger.Info("Central Redis client connection closed.")
	}
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, sweepJob *batch.OverdueSweepJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.OverdueSweepSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 * * * *"
		logger.Warn("Overdue sweep schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.OverdueSweepTimeout
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "OverdueSweep")
		jobLogger.Info("Cron triggered: Running overdue sweep.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := sweepJob.Run(ctx); runErr != nil {
			jobLogger.Error("Overdue sweep finished with error", slog.Any("error", runErr))
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule overdue sweep", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled overdue sweep", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

func rabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", errors.New("RabbitMQ host is not configured")
	}
	port := cfg.Port
	if port == 0 {
		port = 5672
	}

	switch {
	case cfg.Username != "" && cfg.Password != "":
		return fmt.Sprintf("amqp://%s:%s@%s:%d", cfg.Username, cfg.Password, cfg.Host, port), nil
	case cfg.Username != "" || cfg.Password != "":
		return "", errors.New("RabbitMQ username and password must be provided together")
	default:
		return fmt.Sprintf("amqp://%s:%d", cfg.Host, port), nil
	}
}

// initializeRabbitMQ returns nil when publishing is disabled or the broker is
// unreachable; the service keeps running without events in that case.
func initializeRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.RabbitMQ.Enabled {
		return nil
	}

	uri, err := rabbitMQURI(cfg.RabbitMQ)
	if err != nil {
		logger.Error("Invalid RabbitMQ configuration", "error", err)
		return nil
	}

	conn, err := connectRabbitMQ(uri, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		return nil
	}
	return conn
}
