package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/logger"
	"storefront_v1_202610/pkg/utils"
)

// 单次通知超时
const notifyTimeout = 10 * time.Second

// Notifier 异步发送 Telegram 通知，失败只记日志
type Notifier struct {
	messenger    Messenger
	users        repository.UserRepository
	adminChatIDs []int64
	wg           sync.WaitGroup
}

func NewNotifier(messenger Messenger, users repository.UserRepository, adminChatIDs []int64) *Notifier {
	return &Notifier{
		messenger:    messenger,
		users:        users,
		adminChatIDs: adminChatIDs,
	}
}

// OrderCreated 新订单：通知管理员和下单用户
func (n *Notifier) OrderCreated(order *model.Order) {
	snapshot := *order
	n.goSend(func(ctx context.Context) {
		adminText := formatAdminOrder(&snapshot)
		for _, chatID := range n.adminChatIDs {
			n.send(ctx, chatID, adminText)
		}

		if chatID, ok := n.customerChat(ctx, snapshot.UserID); ok {
			n.send(ctx, chatID, fmt.Sprintf("Спасибо! Заказ № <code>%s</code> оплачен на сумму %s.",
				html.EscapeString(snapshot.Number), utils.FormatMoney(snapshot.TotalAmount, snapshot.Currency)))
		}
	})
}

// OrderStatusChanged 状态变化：通知下单用户
func (n *Notifier) OrderStatusChanged(order *model.Order, from string) {
	snapshot := *order
	n.goSend(func(ctx context.Context) {
		chatID, ok := n.customerChat(ctx, snapshot.UserID)
		if !ok {
			return
		}
		n.send(ctx, chatID, fmt.Sprintf("Заказ № <code>%s</code>: статус изменён на «%s».",
			html.EscapeString(snapshot.Number), StatusLabel(snapshot.Status)))
	})
}

// SendResetCode 下发密码重置验证码
func (n *Notifier) SendResetCode(chatID int64, code string) {
	n.goSend(func(ctx context.Context) {
		n.send(ctx, chatID, fmt.Sprintf("Код для сброса пароля: <code>%s</code>\nКод действует %d минут. Никому его не сообщайте.",
			code, int(ResetCodeTTL.Minutes())))
	})
}

// Wait 等待所有后台发送结束（优雅退出 / 测试）
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) goSend(fn func(ctx context.Context)) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.L().Error("通知发送 panic", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) {
	if err := n.messenger.Send(ctx, chatID, text); err != nil {
		logger.L().Warn("Telegram 通知失败", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (n *Notifier) customerChat(ctx context.Context, userID *int64) (int64, bool) {
	if userID == nil || n.users == nil {
		return 0, false
	}
	user, err := n.users.GetByID(ctx, *userID)
	if err != nil {
		logger.L().Warn("查询通知用户失败", zap.Int64("user_id", *userID), zap.Error(err))
		return 0, false
	}
	if user == nil || !user.HasTelegram() {
		return 0, false
	}
	return *user.TelegramChatID, true
}

func formatAdminOrder(o *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Новый заказ № %s</b>\n", html.EscapeString(o.Number))
	fmt.Fprintf(&b, "%s, %s\n", html.EscapeString(o.CustomerName), html.EscapeString(o.Phone))
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s (%s / %s) × %d\n",
			html.EscapeString(it.ProductName), html.EscapeString(it.Size), html.EscapeString(it.Color), it.Quantity)
	}
	fmt.Fprintf(&b, "Итого: <b>%s</b>", utils.FormatMoney(o.TotalAmount, o.Currency))
	if o.StockShortage {
		b.WriteString("\n⚠️ Не хватило остатков, проверьте склад.")
	}
	return b.String()
}
