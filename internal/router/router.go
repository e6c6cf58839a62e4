package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront_v1_202610/internal/controller"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/model"
)

// Controllers 控制器集合
type Controllers struct {
	Auth     *controller.AuthController
	Account  *controller.AccountController
	Product  *controller.ProductController
	Category *controller.CategoryController
	Payment  *controller.PaymentController
	Order    *controller.OrderController
	Content  *controller.ContentController
	Telegram *controller.TelegramController
}

// Limiters 各分组限流器，由定时任务统一回收空闲桶
type Limiters struct {
	Auth     *middleware.RateLimiter
	Checkout *middleware.RateLimiter
	Webhook  *middleware.RateLimiter
}

// NewLimiters 默认限流参数
func NewLimiters() *Limiters {
	return &Limiters{
		Auth:     middleware.NewRateLimiter(6*time.Second, 10),
		Checkout: middleware.NewRateLimiter(2*time.Second, 20),
		Webhook:  middleware.NewRateLimiter(100*time.Millisecond, 50),
	}
}

// All 返回全部限流器
func (l *Limiters) All() []*middleware.RateLimiter {
	return []*middleware.RateLimiter{l.Auth, l.Checkout, l.Webhook}
}

// Options 路由附加配置
type Options struct {
	Limiters  *Limiters
	UploadDir string // 本地存储目录，空则不挂静态路由
	UploadURL string // 本地存储对外前缀，如 /uploads
	Health    func(ctx context.Context) error
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctls *Controllers, opts *Options) *gin.Engine {
	if opts.Limiters == nil {
		opts.Limiters = NewLimiters()
	}
	lim := opts.Limiters

	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	// 健康检查 & 监控
	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(middleware.MetricsHandler()))

	if opts.UploadDir != "" && strings.HasPrefix(opts.UploadURL, "/") {
		r.Static(opts.UploadURL, opts.UploadDir)
	}

	api := r.Group("/api")
	{
		// auth 认证
		auth := api.Group("/auth", lim.Auth.Middleware("auth"))
		{
			auth.POST("/register", ctls.Auth.Register)
			auth.POST("/login", ctls.Auth.Login)
			auth.POST("/refresh", ctls.Auth.Refresh)

			// 密码重置：验证码通过 Telegram 下发
			auth.POST("/password/forgot", ctls.Auth.ForgotPassword)
			auth.POST("/password/verify", ctls.Auth.VerifyResetCode)
			auth.POST("/password/reset", ctls.Auth.ResetPassword)
		}

		// catalog 前台目录
		api.GET("/categories", ctls.Category.List)
		api.GET("/products", ctls.Product.List)
		api.GET("/products/:slug", ctls.Product.GetBySlug)
		api.GET("/banners", ctls.Content.Banners)
		api.GET("/marquee", ctls.Content.Marquee)

		// checkout 结算，游客可下单
		api.POST("/cart/quote", lim.Checkout.Middleware("checkout"), ctls.Payment.Quote)
		payments := api.Group("/payments")
		{
			payments.POST("/drafts", lim.Checkout.Middleware("checkout"), middleware.OptionalAuth(), ctls.Payment.CreateDraft)
			payments.GET("/drafts/:id", ctls.Payment.DraftStatus)

			// 支付网关回调
			payments.POST("/webhook", lim.Webhook.Middleware("webhook"), ctls.Payment.Webhook)
		}

		// telegram bot 推送
		api.POST("/telegram/webhook", lim.Webhook.Middleware("webhook"), ctls.Telegram.Webhook)

		// account 个人中心
		account := api.Group("/account", middleware.JWTAuth())
		{
			account.GET("", ctls.Account.Me)
			account.PUT("", ctls.Account.UpdateProfile)
			account.POST("/password", ctls.Account.ChangePassword)
			account.GET("/orders", ctls.Account.Orders)
			account.GET("/orders/:id", ctls.Account.Order)
			account.POST("/telegram/link-code", ctls.Account.TelegramLinkCode)
			account.DELETE("/telegram", ctls.Account.TelegramUnlink)
		}

		// admin 后台
		admin := api.Group("/admin",
			middleware.JWTAuth(),
			middleware.RequireRole(model.RoleAdmin),
			middleware.AuditContext(),
		)
		{
			products := admin.Group("/products")
			{
				products.GET("", ctls.Product.AdminList)
				products.GET("/:id", ctls.Product.AdminGet)
				products.POST("", ctls.Product.Create)
				products.PUT("/:id", ctls.Product.Update)
				products.PATCH("/:id/active", ctls.Product.SetActive)
				products.DELETE("/:id", ctls.Product.Delete)
			}

			categories := admin.Group("/categories")
			{
				categories.GET("", ctls.Category.AdminList)
				categories.GET("/:id", ctls.Category.AdminGet)
				categories.POST("", ctls.Category.Create)
				categories.PUT("/:id", ctls.Category.Update)
				categories.DELETE("/:id", ctls.Category.Delete)
			}

			orders := admin.Group("/orders")
			{
				orders.GET("", ctls.Order.List)
				orders.GET("/stats", ctls.Order.Stats)
				orders.GET("/:id", ctls.Order.Get)
				orders.PATCH("/:id/status", ctls.Order.UpdateStatus)
				orders.PATCH("/:id/note", ctls.Order.UpdateNote)
			}

			banners := admin.Group("/banners")
			{
				banners.GET("", ctls.Content.AdminBanners)
				banners.POST("", ctls.Content.CreateBanner)
				banners.PUT("/:id", ctls.Content.UpdateBanner)
				banners.DELETE("/:id", ctls.Content.DeleteBanner)
			}

			admin.PUT("/marquee", ctls.Content.UpdateMarquee)
			admin.POST("/uploads", ctls.Content.Upload)
			admin.GET("/users", ctls.Auth.ListUsers)
		}
	}

	return r
}
