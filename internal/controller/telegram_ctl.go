package controller

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"storefront_v1_202610/internal/service"
	"storefront_v1_202610/pkg/logger"
)

// secretHeader Telegram setWebhook 时配置的 secret_token
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// ==================== TelegramController Bot Webhook ====================

type TelegramController struct {
	telegramService *service.TelegramService
	secret          string
}

func NewTelegramController(telegramService *service.TelegramService, secret string) *TelegramController {
	return &TelegramController{
		telegramService: telegramService,
		secret:          secret,
	}
}

// Webhook 接收 Bot 更新。除密钥错误外一律返回 200，避免 Telegram 重复推送
func (c *TelegramController) Webhook(ctx *gin.Context) {
	if c.secret != "" {
		got := ctx.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(c.secret)) != 1 {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
	}

	var update tele.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		logger.L().Warn("Telegram 更新解析失败", zap.Error(err))
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := c.telegramService.HandleUpdate(ctx.Request.Context(), &update); err != nil {
		logger.L().Error("Telegram 更新处理失败", zap.Int("update_id", update.ID), zap.Error(err))
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
