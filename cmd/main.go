package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_v1_202610/internal/config"
	"storefront_v1_202610/internal/controller"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/internal/router"
	"storefront_v1_202610/internal/service"
	"storefront_v1_202610/internal/task"
	"storefront_v1_202610/pkg/database"
	"storefront_v1_202610/pkg/logger"
	"storefront_v1_202610/pkg/paygate"
)

func main() {
	// 1. 加载配置 & 日志
	cfg, err := config.Load()
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}
	initLogger(cfg)
	defer func() { _ = logger.L().Sync() }()

	// 2. 初始化数据库
	db := initDatabase(cfg)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db)

	// 4. 启动定时任务
	tm := initTasks(deps)

	// 5. 初始化路由
	r := router.SetupRouter(deps.Controllers, &router.Options{
		Limiters:  deps.Limiters,
		UploadDir: deps.UploadDir,
		UploadURL: cfg.Storage.PublicURL,
		Health: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
	})

	// 6. 启动服务
	startServer(cfg, r, func() {
		tm.Stop()
		deps.Notifier.Wait()
	})
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Uow         *repository.UnitOfWork
	Services    *Services
	Controllers *router.Controllers
	Limiters    *router.Limiters
	Notifier    *service.Notifier
	UploadDir   string
}

// Services 服务集合
type Services struct {
	Auth     *service.AuthService
	Product  *service.ProductService
	Category *service.CategoryService
	Cart     *service.CartService
	Payment  *service.PaymentService
	Order    *service.OrderService
	Content  *service.ContentService
	Telegram *service.TelegramService
	Storage  *service.StorageService
}

// ==================== 初始化函数 ====================

func initLogger(cfg *config.Config) {
	l, err := logger.New(cfg.Env)
	if err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	logger.SetGlobal(l)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
}

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	db, err := database.InitDB(cfg.DB.DSN, database.ParseLogLevel(cfg.DB.LogLevel), model.AllModels()...)
	if err != nil {
		logger.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		logger.L().Fatal("注册审计回调失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	if err := middleware.RegisterValidators(); err != nil {
		logger.L().Fatal("注册校验器失败", zap.Error(err))
	}
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenTTL:  cfg.JWT.AccessTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTTL,
		Issuer:          "storefront",
	})

	// -------- Repo 层 --------
	uow := repository.NewUnitOfWork(db)

	// -------- 基础服务 --------
	messenger := initMessenger(cfg)
	notifier := service.NewNotifier(messenger, uow.Users, cfg.Telegram.AdminChatIDs)
	gateway := paygate.NewClient(paygate.Config{
		BaseURL:       cfg.Paygate.BaseURL,
		APIKey:        cfg.Paygate.APIKey,
		ShopID:        cfg.Paygate.ShopID,
		WebhookSecret: cfg.Paygate.WebhookSecret,
		SuccessURL:    cfg.Paygate.SuccessURL,
		FailURL:       cfg.Paygate.FailURL,
	})
	storageSvc, uploadDir := initStorageService(cfg)

	// -------- 业务服务 --------
	services := &Services{Storage: storageSvc}
	services.Auth = service.NewAuthService(uow, notifier)
	services.Product = service.NewProductService(uow)
	services.Category = service.NewCategoryService(uow)
	services.Cart = service.NewCartService(uow, cfg.Currency)
	services.Order = service.NewOrderService(uow, notifier)
	services.Payment = service.NewPaymentService(uow, services.Cart, gateway, notifier, service.PaymentConfig{
		DraftTTL:      cfg.DraftTTL,
		Currency:      cfg.Currency,
		WebhookSecret: cfg.Paygate.WebhookSecret,
	})
	services.Content = service.NewContentService(
		repository.NewBannerRepository(db),
		repository.NewMarqueeRepository(db),
	)
	services.Telegram = service.NewTelegramService(uow, services.Order, messenger, cfg.Telegram.BotName)

	if cfg.Admin.Email != "" {
		if err := services.Auth.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.L().Fatal("初始化管理员失败", zap.Error(err))
		}
	}

	// -------- Controller 层 --------
	controllers := initControllers(cfg, services)

	return &Dependencies{
		DB:          db,
		Uow:         uow,
		Services:    services,
		Controllers: controllers,
		Limiters:    router.NewLimiters(),
		Notifier:    notifier,
		UploadDir:   uploadDir,
	}
}

// initMessenger 未配置 Bot Token 时退化为只记日志
func initMessenger(cfg *config.Config) service.Messenger {
	if cfg.Telegram.BotToken == "" {
		logger.L().Warn("未配置 TELEGRAM_BOT_TOKEN，Telegram 通知已禁用")
		return service.NopMessenger{}
	}
	m, err := service.NewTelebotMessenger(cfg.Telegram.BotToken)
	if err != nil {
		logger.L().Fatal("Telegram Bot 初始化失败", zap.Error(err))
	}
	return m
}

// initStorageService 初始化存储服务，本地存储时返回静态目录
func initStorageService(cfg *config.Config) (*service.StorageService, string) {
	sc := cfg.Storage
	storageSvc, err := service.NewStorageService(service.StorageConfig{
		Provider:  sc.Provider,
		LocalDir:  sc.LocalDir,
		PublicURL: sc.PublicURL,
		Bucket:    sc.Bucket,
		Region:    sc.Region,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
		Endpoint:  sc.Endpoint,
		CDNDomain: sc.CDNDomain,
		BasePath:  sc.BasePath,
		MaxBytes:  cfg.Upload.MaxBytes,
		MaxWidth:  cfg.Upload.MaxWidth,
	})
	if err != nil {
		logger.L().Fatal("存储服务初始化失败", zap.Error(err))
	}

	if local, ok := storageSvc.GetProvider().(*service.LocalStorage); ok {
		return storageSvc, local.Dir()
	}
	return storageSvc, ""
}

// initControllers 初始化所有控制器
func initControllers(cfg *config.Config, svc *Services) *router.Controllers {
	return &router.Controllers{
		Auth:     controller.NewAuthController(svc.Auth),
		Account:  controller.NewAccountController(svc.Auth, svc.Order, svc.Telegram),
		Product:  controller.NewProductController(svc.Product),
		Category: controller.NewCategoryController(svc.Category),
		Payment:  controller.NewPaymentController(svc.Cart, svc.Payment),
		Order:    controller.NewOrderController(svc.Order),
		Content:  controller.NewContentController(svc.Content, svc.Storage),
		Telegram: controller.NewTelegramController(svc.Telegram, cfg.Telegram.WebhookSecret),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) *task.TaskManager {
	tm := task.NewTaskManager(&task.TaskManagerDeps{
		Drafts:   deps.Uow.Drafts,
		Codes:    deps.Uow.Codes,
		Limiters: deps.Limiters.All(),
	}, task.DefaultConfig())

	if err := tm.Start(); err != nil {
		logger.L().Fatal("定时任务启动失败", zap.Error(err))
	}
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后依次关闭 HTTP 与后台任务
func startServer(cfg *config.Config, r *gin.Engine, onShutdown func()) {
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		logger.L().Info("服务启动", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Error("服务强制关闭", zap.Error(err))
	}
	onShutdown()

	logger.L().Info("服务已退出")
}
