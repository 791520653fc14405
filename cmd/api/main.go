package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/wallet-api/internal/application/services"
	"github.com/bimakw/wallet-api/internal/config"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
	"github.com/bimakw/wallet-api/internal/infrastructure/cache"
	"github.com/bimakw/wallet-api/internal/infrastructure/database"
	"github.com/bimakw/wallet-api/internal/infrastructure/mongodb"
	"github.com/bimakw/wallet-api/internal/infrastructure/redisstore"
	"github.com/bimakw/wallet-api/internal/presentation/handlers"
	"github.com/bimakw/wallet-api/internal/presentation/middleware"
	"github.com/bimakw/wallet-api/internal/presentation/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting wallet API",
		zap.Int("port", cfg.API.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Wallet API stopped with error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Connect to the wallet store
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Connect to Redis cache (optional)
	var redisCache *cache.RedisCache
	if cfg.API.CacheTTL > 0 {
		client, err := cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		} else {
			redisCache = cache.NewRedisCache(client, cfg.API.CacheTTL, logger)
			defer redisCache.Close()
		}
	}

	walletMetrics := middleware.NewWalletMetrics(prometheus.DefaultRegisterer)

	walletService := services.NewWalletService(repo, redisCache, logger,
		services.WithMetrics(walletMetrics),
		services.WithMintMissingAssetIDs(cfg.Wallet.MintMissingAssetIDs),
	)

	initCtx, cancel := context.WithTimeout(ctx, cfg.Wallet.InitTimeout)
	err = walletService.EnsureInitialized(initCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize wallet: %w", err)
	}

	var cacheChecker handlers.HealthChecker
	if redisCache != nil {
		cacheChecker = redisCache
	}

	handler := router.New(router.Options{
		Logger:  logger,
		API:     cfg.API,
		CORS:    cfg.CORS,
		Health:  handlers.NewHealthHandler(repo, cfg.Store.Driver, cacheChecker),
		Wallet:  handlers.NewWalletHandler(walletService, logger, cfg.API.StrictJSON),
		Metrics: promhttp.Handler(),
	})

	server := &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("API server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects the configured wallet backend
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.WalletRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgresDB(cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := database.NewWalletRepo(db.DB())
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to prepare schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil

	case config.DriverMongo:
		client, err := mongodb.NewClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
			defer cancel()
			_ = client.Close(closeCtx)
		}
		repo := mongodb.NewWalletRepo(client, cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil

	case config.DriverRedis:
		client, err := cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis store: %w", err)
		}
		return redisstore.NewWalletRepo(client, cfg.Redis.WalletKey), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func setupLogger(cfg config.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch cfg.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
