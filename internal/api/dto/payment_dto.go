package dto

import "time"

// ==================== 支付草稿 ====================

// CreateDraftRequest 结算下单
type CreateDraftRequest struct {
	Items           []CartItem `json:"items" binding:"required,min=1,max=50,dive"`
	CustomerName    string     `json:"customer_name" binding:"required,max=255"`
	Phone           string     `json:"phone" binding:"required,max=32"`
	Email           string     `json:"email" binding:"required,email,max=255"`
	DeliveryAddress string     `json:"delivery_address" binding:"required,max=2000"`
	Comment         string     `json:"comment" binding:"max=2000"`
}

// CreateDraftResponse 返回支付跳转地址
type CreateDraftResponse struct {
	DraftID    string    `json:"draft_id"`
	PaymentURL string    `json:"payment_url"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DraftStatusResponse 支付状态（前端回跳后轮询）
type DraftStatusResponse struct {
	DraftID     string `json:"draft_id"`
	Status      string `json:"status"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
	OrderID     *int64 `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

// WebhookResponse 支付回调应答
type WebhookResponse struct {
	Result      string `json:"result"` // paid | duplicate | failed | ignored
	OrderNumber string `json:"order_number,omitempty"`
}
