package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront_v1_202610/internal/service"
	"storefront_v1_202610/pkg/logger"
	"storefront_v1_202610/pkg/paygate"
)

// ==================== 统一响应 ====================

func respondOK(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{"data": data})
}

func respondCreated(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, gin.H{"data": data})
}

func respondBadRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
}

// errorStatus 业务错误 -> HTTP 状态码
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidOldPassword, http.StatusBadRequest},
	{service.ErrPasswordTooShort, http.StatusBadRequest},
	{service.ErrInvalidResetCode, http.StatusBadRequest},
	{service.ErrInvalidResetToken, http.StatusBadRequest},
	{paygate.ErrInvalidWebhook, http.StatusBadRequest},

	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrUserDisabled, http.StatusForbidden},

	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrCategoryNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrDraftNotFound, http.StatusNotFound},
	{service.ErrBannerNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},

	{service.ErrSlugExists, http.StatusConflict},
	{service.ErrSKUExists, http.StatusConflict},
	{service.ErrEmailExists, http.StatusConflict},
	{service.ErrCategoryInUse, http.StatusConflict},
	{service.ErrStatusConflict, http.StatusConflict},

	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{service.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
	{service.ErrInvalidTransition, http.StatusUnprocessableEntity},
	{service.ErrAmountMismatch, http.StatusUnprocessableEntity},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests},
	{service.ErrGateway, http.StatusBadGateway},
	{paygate.ErrGateway, http.StatusBadGateway},
}

// respondError 按错误类型返回 {"error": msg}，未知错误记日志并返回 500
func respondError(ctx *gin.Context, err error) {
	var unavailable *service.UnavailableError
	if errors.As(err, &unavailable) {
		ctx.JSON(http.StatusConflict, gin.H{
			"error": unavailable.Error(),
			"lines": unavailable.Lines,
		})
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			ctx.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}

	logger.L().Error("请求处理失败",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
}

// parseID 解析路径参数 :id
func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的ID"})
		return 0, false
	}
	return id, true
}
