package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/logger"
	"storefront_v1_202610/pkg/paygate"
)

// 回调处理结果（同时作为 storefront_webhook_events_total 的 result 标签）
const (
	WebhookResultPaid      = "paid"
	WebhookResultDuplicate = "duplicate"
	WebhookResultFailed    = "failed"
	WebhookResultIgnored   = "ignored"
	WebhookResultInvalid   = "invalid"
	WebhookResultNotFound  = "not_found"
	WebhookResultMismatch  = "mismatch"
	WebhookResultError     = "error"
)

// PaymentGateway 支付网关
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req paygate.InvoiceRequest) (*paygate.Invoice, error)
}

// OrderNotifier 订单通知（异步，不阻塞主流程）
type OrderNotifier interface {
	OrderCreated(order *model.Order)
	OrderStatusChanged(order *model.Order, from string)
}

// PaymentConfig 支付相关配置
type PaymentConfig struct {
	DraftTTL      time.Duration
	Currency      string
	WebhookSecret string
}

// ==================== PaymentService 支付 ====================

type PaymentService struct {
	uow      *repository.UnitOfWork
	cart     *CartService
	gateway  PaymentGateway
	notifier OrderNotifier
	cfg      PaymentConfig
	now      func() time.Time
}

func NewPaymentService(uow *repository.UnitOfWork, cart *CartService, gateway PaymentGateway, notifier OrderNotifier, cfg PaymentConfig) *PaymentService {
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 30 * time.Minute
	}
	return &PaymentService{
		uow:      uow,
		cart:     cart,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateDraft 报价、保存草稿并向网关申请支付单
func (s *PaymentService) CreateDraft(ctx context.Context, userID *int64, req *dto.CreateDraftRequest) (*dto.CreateDraftResponse, error) {
	quote, err := s.cart.Quote(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if !quote.AllAvailable {
		var lines []dto.QuoteLine
		for _, l := range quote.Lines {
			if !l.Available {
				lines = append(lines, l)
			}
		}
		return nil, &UnavailableError{Lines: lines}
	}

	items := make([]model.DraftLine, len(quote.Lines))
	for i, l := range quote.Lines {
		items[i] = model.DraftLine{
			VariantID:   l.VariantID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Size:        l.Size,
			Color:       l.Color,
			Price:       l.Price,
			Quantity:    l.Quantity,
		}
	}

	now := s.now()
	draft := &model.PaymentDraft{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           datatypes.JSONSlice[model.DraftLine](items),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		Phone:           strings.TrimSpace(req.Phone),
		Email:           normalizeEmail(req.Email),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Comment:         strings.TrimSpace(req.Comment),
		TotalAmount:     quote.Total,
		Currency:        s.cfg.Currency,
		Status:          model.DraftStatusPending,
		ExpiresAt:       now.Add(s.cfg.DraftTTL),
	}
	if err := s.uow.Drafts.Create(ctx, draft); err != nil {
		return nil, err
	}

	invoice, err := s.gateway.CreateInvoice(ctx, paygate.InvoiceRequest{
		OrderID:     draft.ID,
		Amount:      draft.TotalAmount,
		Currency:    draft.Currency,
		Description: "Заказ " + shortDraftID(draft.ID),
		Email:       draft.Email,
	})
	if err != nil {
		logger.L().Error("创建支付单失败", zap.String("draft_id", draft.ID), zap.Error(err))
		if uerr := s.uow.Drafts.UpdateFields(ctx, draft.ID, map[string]interface{}{
			"status":      model.DraftStatusFailed,
			"fail_reason": truncate(err.Error(), 255),
		}); uerr != nil {
			logger.L().Error("标记草稿失败出错", zap.String("draft_id", draft.ID), zap.Error(uerr))
		}
		return nil, ErrGateway
	}

	if err := s.uow.Drafts.UpdateFields(ctx, draft.ID, map[string]interface{}{
		"provider_payment_id": invoice.PaymentID,
		"payment_url":         invoice.PaymentURL,
	}); err != nil {
		return nil, err
	}

	return &dto.CreateDraftResponse{
		DraftID:    draft.ID,
		PaymentURL: invoice.PaymentURL,
		Total:      draft.TotalAmount,
		Currency:   draft.Currency,
		ExpiresAt:  draft.ExpiresAt,
	}, nil
}

// GetDraftStatus 回跳页面轮询
func (s *PaymentService) GetDraftStatus(ctx context.Context, id string) (*dto.DraftStatusResponse, error) {
	draft, err := s.uow.Drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}

	resp := &dto.DraftStatusResponse{
		DraftID:  draft.ID,
		Status:   draft.Status,
		Total:    draft.TotalAmount,
		Currency: draft.Currency,
		OrderID:  draft.OrderID,
	}
	if draft.IsExpired(s.now()) {
		resp.Status = model.DraftStatusExpired
	}
	if draft.OrderID != nil {
		order, err := s.uow.Orders.GetByID(ctx, *draft.OrderID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			resp.OrderNumber = order.Number
		}
	}
	return resp, nil
}

// ==================== 支付回调 ====================

// HandleWebhook 校验签名后按状态处理
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte) (*dto.WebhookResponse, error) {
	claims, err := paygate.ParseWebhook(body, s.cfg.WebhookSecret)
	if err != nil {
		middleware.RecordWebhookEvent(WebhookResultInvalid)
		logger.L().Warn("支付回调校验失败", zap.Error(err))
		return nil, err
	}

	log := logger.L().With(
		zap.String("draft_id", claims.OrderID),
		zap.String("payment_id", claims.PaymentID),
		zap.String("status", claims.Status),
	)

	var resp *dto.WebhookResponse
	switch claims.Status {
	case paygate.StatusSuccess:
		resp, err = s.handleSuccess(ctx, claims)
	case paygate.StatusFail:
		resp, err = s.handleFail(ctx, claims)
	default:
		resp, err = s.handlePending(ctx, claims)
	}

	if err != nil {
		result := WebhookResultError
		switch {
		case errors.Is(err, ErrDraftNotFound):
			result = WebhookResultNotFound
		case errors.Is(err, ErrAmountMismatch):
			result = WebhookResultMismatch
		}
		middleware.RecordWebhookEvent(result)
		log.Warn("支付回调处理失败", zap.String("result", result), zap.Error(err))
		return nil, err
	}

	middleware.RecordWebhookEvent(resp.Result)
	log.Info("支付回调已处理", zap.String("result", resp.Result), zap.String("order_number", resp.OrderNumber))
	return resp, nil
}

func (s *PaymentService) handleSuccess(ctx context.Context, claims *paygate.WebhookClaims) (*dto.WebhookResponse, error) {
	order, created, err := s.CreateOrderFromDraft(ctx, claims)
	if err != nil {
		return nil, err
	}

	if !created {
		return &dto.WebhookResponse{Result: WebhookResultDuplicate, OrderNumber: order.Number}, nil
	}

	middleware.RecordOrderCreated()
	if s.notifier != nil {
		s.notifier.OrderCreated(order)
	}
	return &dto.WebhookResponse{Result: WebhookResultPaid, OrderNumber: order.Number}, nil
}

func (s *PaymentService) handleFail(ctx context.Context, claims *paygate.WebhookClaims) (*dto.WebhookResponse, error) {
	var result string
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		draft, err := tx.Drafts.GetByIDForUpdate(ctx, claims.OrderID)
		if err != nil {
			return err
		}
		if draft == nil {
			return ErrDraftNotFound
		}
		if draft.Status == model.DraftStatusPaid {
			result = WebhookResultIgnored
			return nil
		}
		result = WebhookResultFailed
		return tx.Drafts.UpdateFields(ctx, draft.ID, map[string]interface{}{
			"status":      model.DraftStatusFailed,
			"fail_reason": "payment failed",
		})
	})
	if err != nil {
		return nil, err
	}
	return &dto.WebhookResponse{Result: result}, nil
}

func (s *PaymentService) handlePending(ctx context.Context, claims *paygate.WebhookClaims) (*dto.WebhookResponse, error) {
	draft, err := s.uow.Drafts.GetByID(ctx, claims.OrderID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	return &dto.WebhookResponse{Result: WebhookResultIgnored}, nil
}

// CreateOrderFromDraft 在同一事务内锁定草稿、扣减库存并生成订单
// 该草稿已有订单时直接返回（created=false），不会重复扣库存
func (s *PaymentService) CreateOrderFromDraft(ctx context.Context, claims *paygate.WebhookClaims) (*model.Order, bool, error) {
	var order *model.Order
	created := false

	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		draft, err := tx.Drafts.GetByIDForUpdate(ctx, claims.OrderID)
		if err != nil {
			return err
		}
		if draft == nil {
			return ErrDraftNotFound
		}

		existing, err := tx.Orders.GetByDraftID(ctx, draft.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			order = existing
			return nil
		}

		if claims.Amount != draft.TotalAmount {
			return fmt.Errorf("%w: 期望 %d，实际 %d", ErrAmountMismatch, draft.TotalAmount, claims.Amount)
		}
		if claims.Currency != "" && draft.Currency != "" && !strings.EqualFold(claims.Currency, draft.Currency) {
			return fmt.Errorf("%w: 币种 %s 与 %s 不一致", ErrAmountMismatch, claims.Currency, draft.Currency)
		}

		// 按 id 升序加锁
		ids := make([]int64, 0, len(draft.Items))
		seen := make(map[int64]bool)
		for _, line := range draft.Items {
			if !seen[line.VariantID] {
				seen[line.VariantID] = true
				ids = append(ids, line.VariantID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if _, err := tx.Products.LockVariants(ctx, ids); err != nil {
			return err
		}

		shortage := false
		items := make([]model.OrderItem, 0, len(draft.Items))
		for _, line := range draft.Items {
			reserved := line.Quantity
			ok, err := tx.Products.DecrementStock(ctx, line.VariantID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// 库存不足按 0 截断，订单照常生成并标记
				shortage = true
				if reserved, err = tx.Products.DrainStock(ctx, line.VariantID); err != nil {
					return err
				}
			}
			items = append(items, model.OrderItem{
				ProductID:   line.ProductID,
				VariantID:   line.VariantID,
				ProductName: line.ProductName,
				Size:        line.Size,
				Color:       line.Color,
				Price:       line.Price,
				Quantity:    line.Quantity,
				Reserved:    reserved,
			})
		}

		now := s.now()
		paymentID := claims.PaymentID
		if paymentID == "" {
			paymentID = draft.ProviderPaymentID
		}
		order = &model.Order{
			Number:            orderNumber(now, draft.ID),
			DraftID:           draft.ID,
			UserID:            draft.UserID,
			Status:            model.OrderStatusPaid,
			CustomerName:      draft.CustomerName,
			Phone:             draft.Phone,
			Email:             draft.Email,
			DeliveryAddress:   draft.DeliveryAddress,
			Comment:           draft.Comment,
			TotalAmount:       draft.TotalAmount,
			Currency:          draft.Currency,
			ProviderPaymentID: paymentID,
			StockShortage:     shortage,
			PaidAt:            &now,
			Items:             items,
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		note := "payment confirmed"
		if shortage {
			note = "payment confirmed, stock shortage"
		}
		if err := tx.Orders.CreateEvent(ctx, &model.OrderEvent{
			OrderID:    order.ID,
			FromStatus: "",
			ToStatus:   model.OrderStatusPaid,
			Note:       note,
		}); err != nil {
			return err
		}

		created = true
		return tx.Drafts.UpdateFields(ctx, draft.ID, map[string]interface{}{
			"status":              model.DraftStatusPaid,
			"order_id":            order.ID,
			"paid_at":             now,
			"provider_payment_id": paymentID,
			"fail_reason":         "",
		})
	})
	if err != nil {
		return nil, false, err
	}

	if created && order.StockShortage {
		logger.L().Warn("订单库存不足，已按 0 截断", zap.String("order_number", order.Number))
	}
	return order, created, nil
}

// ==================== 辅助方法 ====================

// orderNumber 形如 261014-3F2A9C1B
func orderNumber(now time.Time, draftID string) string {
	return now.Format("060102") + "-" + shortDraftID(draftID)
}

func shortDraftID(draftID string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(draftID) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
			if b.Len() == 8 {
				break
			}
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ==================== 错误定义 ====================

var (
	ErrCartUnavailable = errors.New("部分商品库存不足或已下架")
	ErrDraftNotFound   = errors.New("支付草稿不存在")
	ErrAmountMismatch  = errors.New("支付金额与订单不一致")
	ErrGateway         = errors.New("支付网关暂时不可用")
)
