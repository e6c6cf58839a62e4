package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/service"
)

// maxWebhookBody 支付回调请求体上限
const maxWebhookBody = 64 << 10

// ==================== PaymentController 结算与支付 ====================

type PaymentController struct {
	cartService    *service.CartService
	paymentService *service.PaymentService
}

func NewPaymentController(cartService *service.CartService, paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		cartService:    cartService,
		paymentService: paymentService,
	}
}

// Quote 购物车报价（不落库）
// @Summary 购物车报价
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body dto.QuoteRequest true "购物车"
// @Success 200 {object} dto.QuoteResponse
// @Router /cart/quote [post]
func (c *PaymentController) Quote(ctx *gin.Context) {
	var req dto.QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.cartService.Quote(ctx.Request.Context(), req.Items)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// CreateDraft 创建支付草稿并返回支付地址，登录用户会关联到订单
func (c *PaymentController) CreateDraft(ctx *gin.Context) {
	var req dto.CreateDraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	var userID *int64
	if id := middleware.GetUserID(ctx); id > 0 {
		userID = &id
	}

	resp, err := c.paymentService.CreateDraft(ctx.Request.Context(), userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondCreated(ctx, resp)
}

// DraftStatus 支付状态轮询
func (c *PaymentController) DraftStatus(ctx *gin.Context) {
	resp, err := c.paymentService.GetDraftStatus(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// Webhook 支付网关回调，请求体为签名后的 JWT
func (c *PaymentController) Webhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}

	resp, err := c.paymentService.HandleWebhook(ctx.Request.Context(), body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
