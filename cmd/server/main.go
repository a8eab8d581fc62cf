package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"multisig-hub.backend/internal/config"
	"multisig-hub.backend/internal/infrastructure/jobs"
	"multisig-hub.backend/internal/infrastructure/models"
	"multisig-hub.backend/internal/infrastructure/repositories"
	"multisig-hub.backend/internal/interfaces/http/handlers"
	"multisig-hub.backend/internal/interfaces/http/middleware"
	"multisig-hub.backend/internal/usecases"
	"multisig-hub.backend/pkg/jwt"
	"multisig-hub.backend/pkg/logger"
	"multisig-hub.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	migrateDB = func(db *gorm.DB) error {
		return db.AutoMigrate(&models.TrackedWallet{}, &models.TrackedWalletOwner{}, &models.Notification{})
	}
	newChain  = buildChainStack
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	bg := context.Background()
	logger.Info(bg, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(bg, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(bg, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.Warn(bg, "Database not available, persistence endpoints will return errors", zap.Error(err))
	} else if err := migrateDB(db); err != nil {
		logger.Warn(bg, "Database schema migration failed", zap.Error(err))
	} else {
		logger.Info(bg, "Connected to PostgreSQL via GORM")
	}

	ctx, cancel := context.WithCancel(bg)
	defer cancel()

	chain, err := newChain(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize chain access: %w", err)
	}
	defer chain.close()

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	trackedRepo := repositories.NewTrackedWalletRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	ledger := usecases.NewStateLedger()
	bridges := usecases.NewBridgeManager(chain.events, chain.reader, chain.invalidator, trackedRepo, notificationRepo, ledger, cfg.JWT.RefreshExpiry)
	defer bridges.StopAll()

	authUsecase := usecases.NewAuthUsecase(redis.NewNonceStore(), jwtService, bridges, cfg.JWT.NonceTTL)
	walletUsecase := usecases.NewWalletUsecase(chain.reader, chain.invalidator, trackedRepo, ledger, cfg.Chain.MaxConcurrency)
	pendingUsecase := usecases.NewPendingWorkUsecase(chain.reader, trackedRepo, cfg.Chain.MaxConcurrency)
	notificationUsecase := usecases.NewNotificationUsecase(notificationRepo)
	actionUsecase := usecases.NewActionUsecase(chain.reader, chain.invalidator, chain.broadcaster, notificationRepo, cfg.Chain.ReceiptTimeout)
	defer actionUsecase.Wait()

	refreshJob := jobs.NewRefreshJob(trackedRepo, chain.reader, chain.invalidator, bridges, cfg.Refresh.Interval, cfg.Chain.MaxConcurrency)
	go refreshJob.Start(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		authHandler:         handlers.NewAuthHandler(authUsecase),
		walletHandler:       handlers.NewWalletHandler(walletUsecase),
		pendingWorkHandler:  handlers.NewPendingWorkHandler(pendingUsecase),
		notificationHandler: handlers.NewNotificationHandler(notificationUsecase),
		actionHandler:       handlers.NewActionHandler(actionUsecase),
		authMiddleware:      middleware.AuthMiddleware(jwtService),
	})

	for _, route := range r.Routes() {
		logger.Debug(bg, "route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info(bg, "Shutting down server")
		refreshJob.Stop()
		cancel()
	}()

	logger.Info(bg, "Multisig hub starting",
		zap.String("port", cfg.Server.Port),
		zap.Bool("demo", cfg.Demo.Enabled),
		zap.Bool("read_only", !chain.canSign),
	)
	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
