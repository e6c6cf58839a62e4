package dto

import "time"

// ==================== 公开接口 ====================

// ListProductsRequest 商品列表请求（前台 / 后台共用）
type ListProductsRequest struct {
	Category string `form:"category"` // 分类 slug
	Keyword  string `form:"q"`
	Featured *bool  `form:"featured"`
	Sort     string `form:"sort" binding:"omitempty,oneof=new price_asc price_desc manual"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,max=100"`
}

// ListProductsResponse 商品列表响应
type ListProductsResponse struct {
	Total int64         `json:"total"`
	List  []ProductItem `json:"list"`
}

// ProductItem 商品列表项
type ProductItem struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Price        int64    `json:"price"`
	OldPrice     int64    `json:"old_price,omitempty"`
	Image        string   `json:"image,omitempty"`
	Images       []string `json:"images"`
	CategoryID   int64    `json:"category_id"`
	CategorySlug string   `json:"category_slug,omitempty"`
	IsActive     bool     `json:"is_active"`
	IsFeatured   bool     `json:"is_featured"`
	InStock      bool     `json:"in_stock"`
	TotalStock   int      `json:"total_stock"`
}

// ProductDetail 商品详情
type ProductDetail struct {
	ProductItem
	Description string        `json:"description"`
	SortOrder   int           `json:"sort_order"`
	Variants    []VariantInfo `json:"variants"`
	Category    *CategoryInfo `json:"category,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// VariantInfo 规格
type VariantInfo struct {
	ID       int64   `json:"id"`
	Size     string  `json:"size"`
	Color    string  `json:"color"`
	SKU      *string `json:"sku,omitempty"`
	Stock    int     `json:"stock"`
	Price    int64   `json:"price"` // 实际售价
	OwnPrice *int64  `json:"own_price,omitempty"`
	IsActive bool    `json:"is_active"`
}

// ==================== 后台维护 ====================

// ProductRequest 创建 / 更新商品（更新时整体替换规格）
type ProductRequest struct {
	CategoryID  int64            `json:"category_id" binding:"required,gt=0"`
	Name        string           `json:"name" binding:"required,max=255"`
	Slug        string           `json:"slug" binding:"omitempty,max=280,slug"`
	Description string           `json:"description"`
	Price       int64            `json:"price" binding:"required,gt=0"`
	OldPrice    int64            `json:"old_price" binding:"gte=0"`
	Images      []string         `json:"images" binding:"omitempty,max=20,dive,required,max=1024"`
	IsActive    *bool            `json:"is_active"`
	IsFeatured  bool             `json:"is_featured"`
	SortOrder   int              `json:"sort_order"`
	Variants    []VariantRequest `json:"variants" binding:"required,min=1,dive"`
}

// VariantRequest 规格；带 ID 表示更新已有规格
type VariantRequest struct {
	ID       int64  `json:"id"`
	Size     string `json:"size" binding:"max=32"`
	Color    string `json:"color" binding:"max=64"`
	SKU      string `json:"sku" binding:"max=100"`
	Stock    int    `json:"stock" binding:"gte=0"`
	Price    *int64 `json:"price" binding:"omitempty,gt=0"`
	IsActive *bool  `json:"is_active"`
}

// SetActiveRequest 上下架
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ==================== 分类 ====================

// CategoryInfo 分类
type CategoryInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// CategoryRequest 创建 / 更新分类
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Slug        string `json:"slug" binding:"omitempty,max=160,slug"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" binding:"max=512"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}
