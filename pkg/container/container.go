package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"epay-gateway/internal/config"
	"epay-gateway/internal/domains/payment/gateway"
	"epay-gateway/internal/domains/payment/gateway/epay"
	paymentHandler "epay-gateway/internal/domains/payment/handler"
	paymentRepo "epay-gateway/internal/domains/payment/repository"
	paymentService "epay-gateway/internal/domains/payment/service"
	infraCache "epay-gateway/internal/infrastructure/cache"
	"epay-gateway/internal/infrastructure/database"
	"epay-gateway/internal/infrastructure/queue"
	"epay-gateway/pkg/cache"
	"epay-gateway/pkg/jwt"
	"epay-gateway/pkg/logger"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa tất cả dependencies dùng chung giữa cmd/api và cmd/worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	SQLDB       *sql.DB
	Redis       *infraCache.RedisClient
	Cache       *infraCache.RedisCache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	TaskClient  *queue.TaskClient

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	OrderStore     paymentRepo.OrderStore
	ConfigProvider epay.ConfigProvider

	// ========================================
	// SERVICE LAYER
	// ========================================
	EpayGateway    gateway.EpayGateway
	PaymentService paymentService.PaymentService
	Reconciler     *paymentService.Reconciler

	// ========================================
	// HANDLER LAYER
	// ========================================
	PaymentHandler *paymentHandler.PaymentHandler
}

// NewContainer builds the dependency graph in order:
// config -> infrastructure -> repositories -> services -> handlers.
func NewContainer() (*Container, error) {
	logger.Info("🔧 Initializing DI Container...", nil)

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment)
	logger.Info("✅ Config loaded", map[string]interface{}{
		"environment":      cfg.App.Environment,
		"reconcile_mode":   cfg.Reconcile.Mode,
		"epay_config_from": cfg.Epay.Source,
	})

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	db := database.NewPostgresDB(cfg.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	sqlDB, err := db.SQL()
	if err != nil {
		return nil, err
	}
	c.SQLDB = sqlDB
	logger.Info("✅ Database connected", nil)

	// ========================================
	// STEP 3: INITIALIZE REDIS + QUEUE CLIENT
	// ========================================
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		// Redis failure không critical cho API: pay/notify vẫn chạy,
		// chỉ mất cache và task queue.
		logger.Error("⚠️  Redis connection failed (non-critical)", err)
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client, cfg.Redis.KeyPrefix)

	c.AsynqClient = asynq.NewClient(c.RedisOpt())
	c.TaskClient = queue.NewTaskClient(c.AsynqClient)

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	// ========================================
	// STEP 4-6: REPOSITORIES, SERVICES, HANDLERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("🎉 DI Container initialized successfully", nil)
	return c, nil
}

// RedisOpt is the asynq connection option shared by client, server and
// scheduler.
func (c *Container) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

func (c *Container) initRepositories() {
	c.OrderStore = paymentRepo.NewOrderStore(c.SQLDB)

	switch c.Config.Epay.Source {
	case config.EpaySourcePlugin:
		c.ConfigProvider = paymentRepo.NewPluginConfigRepository(
			c.SQLDB,
			c.Cache,
			c.Config.Epay.PluginCode,
			c.Config.Epay.PluginCacheTTL,
		)
	default:
		c.ConfigProvider = config.NewEnvProvider()
	}
}

func (c *Container) initServices() {
	c.EpayGateway = epay.NewClient()

	c.PaymentService = paymentService.NewPaymentService(
		c.OrderStore,
		c.EpayGateway,
		c.ConfigProvider,
		c.TaskClient,
	)

	var locker cache.Locker
	if c.Config.Reconcile.LockEnabled {
		locker = c.Cache
	}

	c.Reconciler = paymentService.NewReconciler(
		c.OrderStore,
		c.EpayGateway,
		c.ConfigProvider,
		locker,
		paymentService.ReconcilerConfig{
			Workers:   c.Config.Reconcile.Workers,
			Window:    c.Config.Reconcile.Window,
			RateLimit: c.Config.Reconcile.RateLimit,
			LockTTL:   c.Config.Reconcile.LockTTL,
		},
	)
}

func (c *Container) initHandlers() {
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService)
}

// Cleanup dọn dẹp resources khi shutdown
func (c *Container) Cleanup() {
	logger.Info("🧹 Cleaning up container resources...", nil)

	if c.TaskClient != nil {
		if err := c.TaskClient.Close(); err != nil {
			logger.Error("⚠️  Failed to close asynq client", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("⚠️  Failed to close Redis", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("⚠️  Failed to close database", err)
		}
	}

	logger.Info("✅ Container cleanup completed", nil)
}
