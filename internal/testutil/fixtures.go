package testutil

import (
	"testing"

	"gorm.io/gorm"

	"storefront_v1_202610/internal/model"
)

// SeedProduct 创建分类 + 商品 + 规格，返回商品（含 Variants）
func SeedProduct(t testing.TB, db *gorm.DB, slug string, price int64, stocks ...int) *model.Product {
	t.Helper()

	cat := model.Category{Name: "Cat " + slug, Slug: "cat-" + slug, IsActive: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("创建分类失败: %v", err)
	}

	p := model.Product{
		CategoryID: cat.ID,
		Name:       "Product " + slug,
		Slug:       slug,
		Price:      price,
		IsActive:   true,
	}
	sizes := []string{"S", "M", "L", "XL"}
	for i, stock := range stocks {
		p.Variants = append(p.Variants, model.Variant{
			Size:     sizes[i%len(sizes)],
			Color:    "Black",
			Stock:    stock,
			IsActive: true,
		})
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}
	return &p
}

// SeedUser 创建用户（密码哈希为占位符，需要登录的测试请走 AuthService.Register）
func SeedUser(t testing.TB, db *gorm.DB, email string, chatID *int64) *model.User {
	t.Helper()

	u := model.User{
		Email:          email,
		PasswordHash:   "x",
		Name:           "User",
		Role:           model.RoleCustomer,
		Status:         model.UserStatusActive,
		TelegramChatID: chatID,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return &u
}

// Int64Ptr 辅助
func Int64Ptr(v int64) *int64 { return &v }
