package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/testutil"
	"storefront_v1_202610/pkg/paygate"
)

func draftRequest(items ...dto.CartItem) *dto.CreateDraftRequest {
	return &dto.CreateDraftRequest{
		Items:           items,
		CustomerName:    "Иван",
		Phone:           "+79990000000",
		Email:           "Ivan@Example.com",
		DeliveryAddress: "Москва, ул. Пушкина, 1",
	}
}

func variantStock(t *testing.T, env *testEnv, id int64) int {
	t.Helper()
	var v model.Variant
	require.NoError(t, env.db.First(&v, id).Error)
	return v.Stock
}

func TestPaymentService_CreateDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 5, 1)

	resp, err := env.payments.CreateDraft(ctx, nil, draftRequest(
		dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 2},
		dto.CartItem{VariantID: p.Variants[1].ID, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(3000), resp.Total)
	assert.Equal(t, "RUB", resp.Currency)
	assert.Equal(t, "https://pay.example/"+resp.DraftID, resp.PaymentURL)

	require.Len(t, env.gateway.requests, 1)
	assert.Equal(t, resp.DraftID, env.gateway.requests[0].OrderID)
	assert.Equal(t, int64(3000), env.gateway.requests[0].Amount)

	draft, err := env.uow.Drafts.GetByID(ctx, resp.DraftID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, model.DraftStatusPending, draft.Status)
	assert.Equal(t, "ivan@example.com", draft.Email)
	assert.NotEmpty(t, draft.ProviderPaymentID)
	assert.Len(t, draft.Items, 2)
	assert.True(t, draft.ExpiresAt.After(draft.CreatedAt))

	// 创建草稿不扣库存
	assert.Equal(t, 5, variantStock(t, env, p.Variants[0].ID))
}

func TestPaymentService_CreateDraft_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 1)

	_, err := env.payments.CreateDraft(context.Background(), nil, draftRequest(
		dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 2},
		dto.CartItem{VariantID: 424242, Quantity: 1},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCartUnavailable))

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Len(t, unavailable.Lines, 2)
	assert.Empty(t, env.gateway.requests)
}

func TestPaymentService_CreateDraft_GatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.err = fmt.Errorf("%w: connection refused", paygate.ErrGateway)
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 3)

	_, err := env.payments.CreateDraft(context.Background(), nil, draftRequest(
		dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 1},
	))
	assert.ErrorIs(t, err, ErrGateway)

	var draft model.PaymentDraft
	require.NoError(t, env.db.First(&draft).Error)
	assert.Equal(t, model.DraftStatusFailed, draft.Status)
	assert.Contains(t, draft.FailReason, "connection refused")
}

func TestPaymentService_Webhook_CreatesOrderOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 5, 1)
	user := testutil.SeedUser(t, env.db, "buyer@example.com", testutil.Int64Ptr(777))

	draft, err := env.payments.CreateDraft(ctx, &user.ID, draftRequest(
		dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 2},
		dto.CartItem{VariantID: p.Variants[1].ID, Quantity: 1},
	))
	require.NoError(t, err)

	body := signedWebhook(t, paygate.WebhookClaims{
		OrderID:   draft.DraftID,
		PaymentID: "pay_1",
		Status:    paygate.StatusSuccess,
		Amount:    3000,
		Currency:  "RUB",
	})

	first, err := env.payments.HandleWebhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, WebhookResultPaid, first.Result)
	assert.NotEmpty(t, first.OrderNumber)

	assert.Equal(t, 3, variantStock(t, env, p.Variants[0].ID))
	assert.Equal(t, 0, variantStock(t, env, p.Variants[1].ID))

	// 重复回调：返回同一订单，不再扣库存
	second, err := env.payments.HandleWebhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, WebhookResultDuplicate, second.Result)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, 3, variantStock(t, env, p.Variants[0].ID))
	assert.Equal(t, 0, variantStock(t, env, p.Variants[1].ID))

	var count int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	order, err := env.uow.Orders.GetByDraftID(ctx, draft.DraftID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Equal(t, "pay_1", order.ProviderPaymentID)
	assert.False(t, order.StockShortage)
	assert.Len(t, order.Items, 2)
	require.NotNil(t, order.UserID)
	assert.Equal(t, user.ID, *order.UserID)

	var events []model.OrderEvent
	require.NoError(t, env.db.Where("order_id = ?", order.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, model.OrderStatusPaid, events[0].ToStatus)

	status, err := env.payments.GetDraftStatus(ctx, draft.DraftID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPaid, status.Status)
	assert.Equal(t, first.OrderNumber, status.OrderNumber)

	// 通知：管理员 + 顾客
	env.notifier.Wait()
	assert.Len(t, env.messenger.To(testAdminChat), 1)
	require.Len(t, env.messenger.To(777), 1)
	assert.Contains(t, env.messenger.To(777)[0].Text, first.OrderNumber)
}

func TestPaymentService_Webhook_JSONWrappedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1500, 2)

	draft, err := env.payments.CreateDraft(ctx, nil, draftRequest(dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 1}))
	require.NoError(t, err)

	token := signedWebhook(t, paygate.WebhookClaims{OrderID: draft.DraftID, Status: paygate.StatusSuccess, Amount: 1500})
	resp, err := env.payments.HandleWebhook(ctx, []byte(`{"token":"`+string(token)+`"}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookResultPaid, resp.Result)
}

func TestPaymentService_Webhook_AmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 5)

	draft, err := env.payments.CreateDraft(ctx, nil, draftRequest(dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{
		OrderID: draft.DraftID,
		Status:  paygate.StatusSuccess,
		Amount:  1,
	}))
	assert.ErrorIs(t, err, ErrAmountMismatch)

	stored, err := env.uow.Drafts.GetByID(ctx, draft.DraftID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPending, stored.Status)
	assert.Equal(t, 5, variantStock(t, env, p.Variants[0].ID))

	var count int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPaymentService_Webhook_StockShortage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 2)

	draft, err := env.payments.CreateDraft(ctx, nil, draftRequest(dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 2}))
	require.NoError(t, err)

	// 支付期间被其他订单买走一件
	require.NoError(t, env.db.Model(&model.Variant{}).Where("id = ?", p.Variants[0].ID).Update("stock", 1).Error)

	resp, err := env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{
		OrderID: draft.DraftID,
		Status:  paygate.StatusSuccess,
		Amount:  2000,
	}))
	require.NoError(t, err)
	assert.Equal(t, WebhookResultPaid, resp.Result)
	assert.Equal(t, 0, variantStock(t, env, p.Variants[0].ID))

	order, err := env.uow.Orders.GetByDraftID(ctx, draft.DraftID)
	require.NoError(t, err)
	assert.True(t, order.StockShortage)

	env.notifier.Wait()
	admin := env.messenger.To(testAdminChat)
	require.Len(t, admin, 1)
	assert.True(t, strings.Contains(admin[0].Text, "Не хватило"))
}

func TestPaymentService_ShortageCancelRestocksTakenOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 3)
	vid := p.Variants[0].ID

	draft, err := env.payments.CreateDraft(ctx, nil, draftRequest(dto.CartItem{VariantID: vid, Quantity: 3}))
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&model.Variant{}).Where("id = ?", vid).Update("stock", 1).Error)

	_, err = env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{
		OrderID: draft.DraftID,
		Status:  paygate.StatusSuccess,
		Amount:  3000,
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, variantStock(t, env, vid))

	order, err := env.uow.Orders.GetByDraftID(ctx, draft.DraftID)
	require.NoError(t, err)
	require.True(t, order.StockShortage)

	_, err = env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, 1, variantStock(t, env, vid), "只回补实际扣减的数量")
}

func TestPaymentService_Webhook_ExpiredDraftHonoured(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 2)

	draft, err := env.payments.CreateDraft(ctx, nil, draftRequest(dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 1}))
	require.NoError(t, err)
	require.NoError(t, env.uow.Drafts.UpdateFields(ctx, draft.DraftID, map[string]interface{}{"status": model.DraftStatusExpired}))

	resp, err := env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{
		OrderID: draft.DraftID,
		Status:  paygate.StatusSuccess,
		Amount:  1000,
	}))
	require.NoError(t, err)
	assert.Equal(t, WebhookResultPaid, resp.Result)
}

func TestPaymentService_Webhook_FailAndPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 2)

	draft, err := env.payments.CreateDraft(ctx, nil, draftRequest(dto.CartItem{VariantID: p.Variants[0].ID, Quantity: 1}))
	require.NoError(t, err)

	resp, err := env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{OrderID: draft.DraftID, Status: paygate.StatusPending}))
	require.NoError(t, err)
	assert.Equal(t, WebhookResultIgnored, resp.Result)

	resp, err = env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{OrderID: draft.DraftID, Status: paygate.StatusFail}))
	require.NoError(t, err)
	assert.Equal(t, WebhookResultFailed, resp.Result)

	stored, err := env.uow.Drafts.GetByID(ctx, draft.DraftID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusFailed, stored.Status)

	// 失败后又确认支付：照常生成订单，之后的 fail 不回退
	_, err = env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{OrderID: draft.DraftID, Status: paygate.StatusSuccess, Amount: 1000}))
	require.NoError(t, err)

	resp, err = env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{OrderID: draft.DraftID, Status: paygate.StatusFail}))
	require.NoError(t, err)
	assert.Equal(t, WebhookResultIgnored, resp.Result)

	stored, err = env.uow.Drafts.GetByID(ctx, draft.DraftID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPaid, stored.Status)
}

func TestPaymentService_Webhook_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("签名错误", func(t *testing.T) {
		token, err := paygate.SignWebhook(paygate.WebhookClaims{OrderID: "x", Status: paygate.StatusSuccess}, "other-secret")
		require.NoError(t, err)
		_, err = env.payments.HandleWebhook(ctx, []byte(token))
		assert.ErrorIs(t, err, paygate.ErrInvalidWebhook)
	})

	t.Run("非 JWT", func(t *testing.T) {
		_, err := env.payments.HandleWebhook(ctx, []byte("hello"))
		assert.ErrorIs(t, err, paygate.ErrInvalidWebhook)
	})

	t.Run("草稿不存在", func(t *testing.T) {
		_, err := env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{OrderID: "missing", Status: paygate.StatusSuccess, Amount: 1}))
		assert.ErrorIs(t, err, ErrDraftNotFound)

		_, err = env.payments.HandleWebhook(ctx, signedWebhook(t, paygate.WebhookClaims{OrderID: "missing", Status: paygate.StatusPending}))
		assert.ErrorIs(t, err, ErrDraftNotFound)
	})
}

func TestOrderNumber(t *testing.T) {
	assert.Equal(t, "3F2A9C1B", shortDraftID("3f2a9c1b-1111-2222-3333-444444444444"))
	assert.Equal(t, "AB12", shortDraftID("ab-12"))
}
