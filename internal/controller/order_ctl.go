package controller

import (
	"github.com/gin-gonic/gin"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/service"
)

// ==================== OrderController 后台订单 ====================

type OrderController struct {
	orderService *service.OrderService
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// List 订单列表
// @Summary 订单列表
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态"
// @Param keyword query string false "订单号 / 姓名 / 电话 / 邮箱"
// @Success 200 {object} dto.ListOrdersResponse
// @Router /admin/orders [get]
func (c *OrderController) List(ctx *gin.Context) {
	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.orderService.List(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// Get 订单详情（含状态流水）
func (c *OrderController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.orderService.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// Stats 订单统计
func (c *OrderController) Stats(ctx *gin.Context) {
	stats, err := c.orderService.Stats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, stats)
}

// UpdateStatus 修改订单状态
func (c *OrderController) UpdateStatus(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.orderService.UpdateStatus(ctx.Request.Context(), id, middleware.GetUserID(ctx), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// UpdateNote 修改管理员备注
func (c *OrderController) UpdateNote(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateOrderNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	if err := c.orderService.UpdateNote(ctx.Request.Context(), id, &req); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"id": id, "admin_note": req.AdminNote})
}
