package model

import (
	"time"

	"gorm.io/datatypes"
)

// 支付草稿状态
const (
	DraftStatusPending = "pending"
	DraftStatusPaid    = "paid"
	DraftStatusFailed  = "failed"
	DraftStatusExpired = "expired"
)

// DraftLine 下单时的购物车快照（价格以下单时为准）
type DraftLine struct {
	VariantID   int64  `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

// PaymentDraft 支付意图，支付成功回调后才生成 Order
type PaymentDraft struct {
	ID     string `gorm:"size:36;primaryKey" json:"id"`
	UserID *int64 `gorm:"index" json:"user_id,omitempty"`

	Items datatypes.JSONSlice[DraftLine] `json:"items"`

	CustomerName    string `gorm:"size:255" json:"customer_name"`
	Phone           string `gorm:"size:32" json:"phone"`
	Email           string `gorm:"size:255" json:"email"`
	DeliveryAddress string `gorm:"type:text" json:"delivery_address"`
	Comment         string `gorm:"type:text" json:"comment"`

	TotalAmount int64  `json:"total_amount"`
	Currency    string `gorm:"size:10" json:"currency"`

	Status            string `gorm:"size:20;index;default:pending" json:"status"`
	ProviderPaymentID string `gorm:"size:128;index" json:"provider_payment_id"`
	PaymentURL        string `gorm:"size:1024" json:"payment_url"`
	FailReason        string `gorm:"size:255" json:"fail_reason,omitempty"`

	OrderID   *int64     `json:"order_id,omitempty"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentDraft) TableName() string {
	return "payment_drafts"
}

// IsExpired 是否已过期（仅对 pending 有意义）
func (d *PaymentDraft) IsExpired(now time.Time) bool {
	return d.Status == DraftStatusPending && now.After(d.ExpiresAt)
}
