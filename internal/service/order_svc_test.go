package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/testutil"
)

// seedOrder 直接写入一笔已支付订单，stock 已按 qty 扣减
func seedOrder(t *testing.T, env *testEnv, number string, userID *int64, variant model.Variant, qty int) *model.Order {
	t.Helper()
	now := time.Now()
	order := &model.Order{
		Number:       number,
		DraftID:      "draft-" + number,
		UserID:       userID,
		Status:       model.OrderStatusPaid,
		CustomerName: "Анна",
		Phone:        "+7000",
		Email:        "anna@example.com",
		TotalAmount:  1000 * int64(qty),
		Currency:     "RUB",
		PaidAt:       &now,
		Items: []model.OrderItem{{
			ProductID:   variant.ProductID,
			VariantID:   variant.ID,
			ProductName: "Tee",
			Price:       1000,
			Quantity:    qty,
			Reserved:    qty,
		}},
	}
	require.NoError(t, env.uow.Orders.Create(context.Background(), order))
	return order
}

func TestOrderService_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 3)
	order := seedOrder(t, env, "A1", nil, p.Variants[0], 2)

	detail, err := env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusProcessing, Note: "собираем"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, detail.Status)
	assert.ElementsMatch(t, []string{model.OrderStatusShipped, model.OrderStatusCancelled}, detail.AllowedNext)
	require.Len(t, detail.Events, 1)
	assert.Equal(t, model.OrderStatusPaid, detail.Events[0].FromStatus)
	assert.Equal(t, int64(1), detail.Events[0].ActorUserID)
	assert.Equal(t, "собираем", detail.Events[0].Note)

	// 非法流转
	_, err = env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusDelivered})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.orders.UpdateStatus(ctx, 9999, 1, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusShipped})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_CancelRestocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 3)
	order := seedOrder(t, env, "A2", nil, p.Variants[0], 2)

	_, err := env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusCancelled})
	require.NoError(t, err)

	var v model.Variant
	require.NoError(t, env.db.First(&v, p.Variants[0].ID).Error)
	assert.Equal(t, 5, v.Stock)

	// 终态不可再流转，库存不会重复回补
	_, err = env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusReturned})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, env.db.First(&v, p.Variants[0].ID).Error)
	assert.Equal(t, 5, v.Stock)
}

func TestOrderService_ReturnRestocksAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 0)
	user := testutil.SeedUser(t, env.db, "buyer@example.com", testutil.Int64Ptr(555))
	order := seedOrder(t, env, "A3", &user.ID, p.Variants[0], 1)

	for _, to := range []string{model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusDelivered, model.OrderStatusReturned} {
		_, err := env.orders.UpdateStatus(ctx, order.ID, 1, &dto.UpdateOrderStatusRequest{Status: to})
		require.NoError(t, err, to)
	}

	var v model.Variant
	require.NoError(t, env.db.First(&v, p.Variants[0].ID).Error)
	assert.Equal(t, 1, v.Stock)

	env.notifier.Wait()
	msgs := env.messenger.To(555)
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[3].Text, StatusLabel(model.OrderStatusReturned))
}

func TestOrderService_ListAndCustomerView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 10)
	alice := testutil.SeedUser(t, env.db, "alice@example.com", nil)
	bob := testutil.SeedUser(t, env.db, "bob@example.com", nil)

	mine := seedOrder(t, env, "B1", &alice.ID, p.Variants[0], 1)
	seedOrder(t, env, "B2", &bob.ID, p.Variants[0], 1)

	t.Run("后台按关键字搜索", func(t *testing.T) {
		resp, err := env.orders.List(ctx, &dto.ListOrdersRequest{Keyword: "B1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Total)
		assert.Equal(t, "B1", resp.List[0].Number)
		assert.Equal(t, 1, resp.List[0].ItemCount)
	})

	t.Run("结束日期包含当天", func(t *testing.T) {
		today := time.Now().Format("2006-01-02")
		resp, err := env.orders.List(ctx, &dto.ListOrdersRequest{StartDate: today, EndDate: today})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		_, err := env.orders.List(ctx, &dto.ListOrdersRequest{StartDate: "01.01.2026"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("顾客只能看到自己的订单", func(t *testing.T) {
		resp, err := env.orders.ListForUser(ctx, alice.ID, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Total)

		detail, err := env.orders.GetForUser(ctx, alice.ID, mine.ID)
		require.NoError(t, err)
		assert.Empty(t, detail.Events)
		assert.Empty(t, detail.AdminNote)

		_, err = env.orders.GetForUser(ctx, bob.ID, mine.ID)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("备注与统计", func(t *testing.T) {
		require.NoError(t, env.orders.UpdateNote(ctx, mine.ID, &dto.UpdateOrderNoteRequest{AdminNote: "позвонить"}))
		detail, err := env.orders.Get(ctx, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, "позвонить", detail.AdminNote)

		stats, err := env.orders.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalOrders)
		assert.Equal(t, int64(2000), stats.Revenue)
	})
}
