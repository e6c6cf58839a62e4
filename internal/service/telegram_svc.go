package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/logger"
	"storefront_v1_202610/pkg/utils"
)

// 绑定码参数
const (
	LinkCodeTTL    = 10 * time.Minute
	LinkCodeLength = 6
)

// ==================== Messenger 消息发送 ====================

// Messenger 向 Telegram chat 发送 HTML 消息
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// TelebotMessenger 基于 telebot 的实现，不启动长轮询，更新由 webhook 推送
type TelebotMessenger struct {
	bot *tele.Bot
}

// NewTelebotMessenger 创建 Telegram 发送端
func NewTelebotMessenger(token string) (*TelebotMessenger, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 Telegram Bot 失败: %w", err)
	}
	return &TelebotMessenger{bot: bot}, nil
}

func (m *TelebotMessenger) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.bot.Send(tele.ChatID(chatID), text, tele.ModeHTML, tele.NoPreview)
	return err
}

// NopMessenger 未配置 Bot Token 时使用，只记录日志
type NopMessenger struct{}

func (NopMessenger) Send(_ context.Context, chatID int64, _ string) error {
	logger.L().Debug("Telegram 未配置，跳过发送", zap.Int64("chat_id", chatID))
	return nil
}

// ==================== TelegramService 账号绑定与机器人命令 ====================

type TelegramService struct {
	uow       *repository.UnitOfWork
	orders    *OrderService
	messenger Messenger
	botName   string
	now       func() time.Time
}

func NewTelegramService(uow *repository.UnitOfWork, orders *OrderService, messenger Messenger, botName string) *TelegramService {
	return &TelegramService{
		uow:       uow,
		orders:    orders,
		messenger: messenger,
		botName:   strings.TrimPrefix(botName, "@"),
		now:       time.Now,
	}
}

// CreateLinkCode 生成绑定码，旧的未使用绑定码作废
func (s *TelegramService) CreateLinkCode(ctx context.Context, userID int64) (*dto.TelegramLinkCodeResponse, error) {
	user, err := s.uow.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	code, err := utils.RandomCode(LinkCodeLength)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(LinkCodeTTL)

	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		if err := tx.Codes.DeleteUnusedLinkCodes(ctx, userID); err != nil {
			return err
		}
		return tx.Codes.CreateLinkCode(ctx, &model.TgLinkCode{
			Code:      code,
			UserID:    userID,
			ExpiresAt: expiresAt,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.TelegramLinkCodeResponse{Code: code, ExpiresAt: expiresAt}
	if s.botName != "" {
		resp.DeepLink = "https://t.me/" + s.botName + "?start=" + code
	}
	return resp, nil
}

// Unlink 解绑
func (s *TelegramService) Unlink(ctx context.Context, userID int64) error {
	user, err := s.uow.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.uow.Users.UnlinkTelegram(ctx, userID)
}

// HandleUpdate 处理 webhook 推送的一条更新，回复发送失败只记日志
func (s *TelegramService) HandleUpdate(ctx context.Context, update *tele.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	chatID := msg.Chat.ID
	username := ""
	if msg.Sender != nil {
		username = msg.Sender.Username
	}

	cmd, arg := parseCommand(msg.Text)

	var reply string
	var err error
	switch cmd {
	case "/start", "/link":
		if arg == "" {
			reply = textWelcome
			break
		}
		reply, err = s.linkChat(ctx, chatID, username, arg)
	case "/orders":
		reply, err = s.recentOrders(ctx, chatID)
	case "/unlink":
		reply, err = s.unlinkChat(ctx, chatID)
	default:
		reply = textHelp
	}
	if err != nil {
		return err
	}

	if sendErr := s.messenger.Send(ctx, chatID, reply); sendErr != nil {
		logger.L().Warn("Telegram 回复失败", zap.Int64("chat_id", chatID), zap.Error(sendErr))
	}
	return nil
}

func (s *TelegramService) linkChat(ctx context.Context, chatID int64, username, rawCode string) (string, error) {
	now := s.now()
	var email string

	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		code, err := tx.Codes.GetLinkCode(ctx, strings.ToUpper(rawCode))
		if err != nil {
			return err
		}
		if code == nil || !code.IsUsable(now) {
			return errLinkCodeInvalid
		}

		user, err := tx.Users.GetByID(ctx, code.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return errLinkCodeInvalid
		}

		ok, err := tx.Codes.MarkLinkCodeUsed(ctx, code.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLinkCodeInvalid
		}

		// 该 chat 已绑定其他账号时转移到当前账号
		if err := tx.Users.UnlinkTelegramChat(ctx, chatID); err != nil {
			return err
		}
		if err := tx.Users.LinkTelegram(ctx, user.ID, chatID, username); err != nil {
			return err
		}
		email = user.Email
		return nil
	})
	if errors.Is(err, errLinkCodeInvalid) {
		return textLinkInvalid, nil
	}
	if err != nil {
		return "", err
	}

	logger.L().Info("Telegram 已绑定", zap.Int64("chat_id", chatID), zap.String("email", email))
	return fmt.Sprintf(textLinked, html.EscapeString(email)), nil
}

func (s *TelegramService) recentOrders(ctx context.Context, chatID int64) (string, error) {
	user, err := s.uow.Users.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return textNotLinked, nil
	}

	orders, err := s.orders.RecentForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return textNoOrders, nil
	}

	var b strings.Builder
	b.WriteString("<b>Ваши последние заказы:</b>\n")
	for i := range orders {
		o := &orders[i]
		fmt.Fprintf(&b, "\n№ <code>%s</code> · %s · %s",
			html.EscapeString(o.Number),
			StatusLabel(o.Status),
			utils.FormatMoney(o.TotalAmount, o.Currency))
	}
	return b.String(), nil
}

func (s *TelegramService) unlinkChat(ctx context.Context, chatID int64) (string, error) {
	user, err := s.uow.Users.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return textNotLinked, nil
	}
	if err := s.uow.Users.UnlinkTelegram(ctx, user.ID); err != nil {
		return "", err
	}
	return textUnlinked, nil
}

// parseCommand 拆出命令和第一个参数，去掉 /cmd@botname 的后缀
func parseCommand(text string) (string, string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	return cmd, arg
}

// StatusLabel 订单状态的俄文名称
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

var statusLabels = map[string]string{
	model.OrderStatusPaid:       "оплачен",
	model.OrderStatusProcessing: "в обработке",
	model.OrderStatusShipped:    "отправлен",
	model.OrderStatusDelivered:  "доставлен",
	model.OrderStatusCancelled:  "отменён",
	model.OrderStatusReturned:   "возвращён",
}

// ==================== 文案 ====================

const (
	textWelcome     = "Привет! Чтобы получать уведомления о заказах, привяжите аккаунт: откройте ссылку из личного кабинета или отправьте <code>/link КОД</code>."
	textHelp        = "Команды:\n/orders · последние заказы\n/unlink · отвязать аккаунт\n/link КОД · привязать аккаунт"
	textLinked      = "Аккаунт <b>%s</b> привязан. Теперь мы будем присылать сюда статусы заказов."
	textLinkInvalid = "Код недействителен или истёк. Получите новый код в личном кабинете."
	textNotLinked   = "Этот чат не привязан к аккаунту. Используйте <code>/link КОД</code>."
	textNoOrders    = "У вас пока нет заказов."
	textUnlinked    = "Аккаунт отвязан."
)

var errLinkCodeInvalid = errors.New("绑定码无效")
