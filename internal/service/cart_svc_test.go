package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/testutil"
)

func TestCartService_Quote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 5, 1, 3)

	own := int64(1500)
	require.NoError(t, env.db.Model(&model.Variant{}).Where("id = ?", p.Variants[2].ID).Update("price", own).Error)

	quote, err := env.cart.Quote(ctx, []dto.CartItem{
		{VariantID: p.Variants[0].ID, Quantity: 1},
		{VariantID: p.Variants[1].ID, Quantity: 2}, // 超出库存
		{VariantID: p.Variants[0].ID, Quantity: 2}, // 合并
		{VariantID: p.Variants[2].ID, Quantity: 1},
		{VariantID: 999999, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, quote.Lines, 4)
	assert.False(t, quote.AllAvailable)
	assert.Equal(t, "RUB", quote.Currency)

	first := quote.Lines[0]
	assert.Equal(t, p.Variants[0].ID, first.VariantID)
	assert.Equal(t, 3, first.Quantity)
	assert.True(t, first.Available)
	assert.Equal(t, int64(3000), first.LineTotal)
	assert.Equal(t, "tee", first.ProductSlug)

	assert.False(t, quote.Lines[1].Available)
	assert.Equal(t, 1, quote.Lines[1].Stock)
	assert.Zero(t, quote.Lines[1].LineTotal)

	assert.Equal(t, own, quote.Lines[2].Price)
	assert.False(t, quote.Lines[3].Available)

	assert.Equal(t, int64(3000+1500), quote.Total)
}

func TestCartService_QuoteInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 5, 5)
	require.NoError(t, env.db.Model(&model.Variant{}).Where("id = ?", p.Variants[1].ID).Update("is_active", false).Error)

	quote, err := env.cart.Quote(ctx, []dto.CartItem{
		{VariantID: p.Variants[0].ID, Quantity: 1},
		{VariantID: p.Variants[1].ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, quote.Lines[0].Available)
	assert.False(t, quote.Lines[1].Available)

	// 商品下架或删除后整行不可售
	require.NoError(t, env.db.Delete(&model.Product{}, p.ID).Error)
	quote, err = env.cart.Quote(ctx, []dto.CartItem{{VariantID: p.Variants[0].ID, Quantity: 1}})
	require.NoError(t, err)
	assert.False(t, quote.Lines[0].Available)
	assert.Zero(t, quote.Total)
}

func TestCartService_QuoteQuantityBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, env.db, "tee", 1000, 500)
	id := p.Variants[0].ID

	tests := []struct {
		name  string
		items []dto.CartItem
	}{
		{"空购物车", nil},
		{"数量为 0", []dto.CartItem{{VariantID: id, Quantity: 0}}},
		{"数量超过上限", []dto.CartItem{{VariantID: id, Quantity: 100}}},
		{"合并后超过上限", []dto.CartItem{{VariantID: id, Quantity: 60}, {VariantID: id, Quantity: 40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.cart.Quote(ctx, tt.items)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	quote, err := env.cart.Quote(ctx, []dto.CartItem{{VariantID: id, Quantity: 99}})
	require.NoError(t, err)
	assert.True(t, quote.AllAvailable)
}
