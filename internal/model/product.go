package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== Category 分类 ====================

type Category struct {
	BaseModel
	Name        string `gorm:"size:128;not null" json:"name"`
	Slug        string `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"size:512" json:"image_url"`
	SortOrder   int    `gorm:"default:0;index" json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

func (Category) TableName() string {
	return "categories"
}

// ==================== Product 商品 ====================

type Product struct {
	BaseModel
	AuditMixin
	CategoryID  int64     `gorm:"index;not null" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Slug        string    `gorm:"size:280;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`

	// 金额以最小货币单位存储（分 / 戈比）
	Price    int64 `gorm:"not null" json:"price"`
	OldPrice int64 `gorm:"default:0" json:"old_price"`

	Images datatypes.JSONSlice[string] `json:"images"`

	IsActive   bool `gorm:"index" json:"is_active"`
	IsFeatured bool `gorm:"default:false;index" json:"is_featured"`
	SortOrder  int  `gorm:"default:0" json:"sort_order"`

	Variants []Variant `gorm:"foreignKey:ProductID" json:"variants"`
}

func (Product) TableName() string {
	return "products"
}

// TotalStock 汇总所有启用规格的库存
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		if v.IsActive {
			total += v.Stock
		}
	}
	return total
}

// ==================== Variant 规格（尺码 / 颜色） ====================

// Variant 不做软删除：SKU 唯一索引需要在删除后立即释放
type Variant struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID int64    `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Size      string   `gorm:"size:32" json:"size"`
	Color     string   `gorm:"size:64" json:"color"`
	SKU       *string  `gorm:"size:100;uniqueIndex" json:"sku,omitempty"`
	Stock     int      `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	// 为空时使用商品价格
	Price    *int64 `json:"price,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (Variant) TableName() string {
	return "product_variants"
}

// EffectivePrice 实际售价
func (v *Variant) EffectivePrice(p *Product) int64 {
	if v.Price != nil && *v.Price > 0 {
		return *v.Price
	}
	if p != nil {
		return p.Price
	}
	return 0
}

// Label 规格展示名，如 "M / Black"
func (v *Variant) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + " / " + v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.Color
	}
}
