package controller

import (
	"github.com/gin-gonic/gin"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/service"
)

// ==================== AuthController 认证控制器 ====================

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Register 注册
// @Summary 注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册信息"
// @Success 200 {object} dto.LoginResponse
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondCreated(ctx, resp)
}

// Login 用户登录
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.LoginResponse
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// Refresh 刷新 Token
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.authService.Refresh(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// ==================== 密码重置 ====================

// ForgotPassword 申请验证码（结果始终成功）
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	if err := c.authService.RequestReset(ctx.Request.Context(), &req); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"sent": true})
}

// VerifyResetCode 校验验证码，返回一次性重置令牌
func (c *AuthController) VerifyResetCode(ctx *gin.Context) {
	var req dto.VerifyResetCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.authService.VerifyResetCode(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// ResetPassword 设置新密码
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	if err := c.authService.ResetPassword(ctx.Request.Context(), &req); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"reset": true})
}

// ==================== 后台用户 ====================

// ListUsers 用户列表
func (c *AuthController) ListUsers(ctx *gin.Context) {
	var req dto.UserListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.authService.ListUsers(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// ==================== AccountController 个人中心 ====================

type AccountController struct {
	authService     *service.AuthService
	orderService    *service.OrderService
	telegramService *service.TelegramService
}

func NewAccountController(authService *service.AuthService, orderService *service.OrderService, telegramService *service.TelegramService) *AccountController {
	return &AccountController{
		authService:     authService,
		orderService:    orderService,
		telegramService: telegramService,
	}
}

// Me 当前用户信息
// @Summary 当前用户信息
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserInfo
// @Router /account [get]
func (c *AccountController) Me(ctx *gin.Context) {
	info, err := c.authService.Me(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, info)
}

// UpdateProfile 修改资料
func (c *AccountController) UpdateProfile(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	info, err := c.authService.UpdateProfile(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, info)
}

// ChangePassword 修改密码
func (c *AccountController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	if err := c.authService.ChangePassword(ctx.Request.Context(), middleware.GetUserID(ctx), &req); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"changed": true})
}

// Orders 我的订单
func (c *AccountController) Orders(ctx *gin.Context) {
	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.orderService.ListForUser(ctx.Request.Context(), middleware.GetUserID(ctx), req.Page, req.PageSize)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// Order 我的订单详情
func (c *AccountController) Order(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.orderService.GetForUser(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// TelegramLinkCode 生成 Telegram 绑定码
func (c *AccountController) TelegramLinkCode(ctx *gin.Context) {
	resp, err := c.telegramService.CreateLinkCode(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// TelegramUnlink 解绑 Telegram
func (c *AccountController) TelegramUnlink(ctx *gin.Context) {
	if err := c.telegramService.Unlink(ctx.Request.Context(), middleware.GetUserID(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"unlinked": true})
}
