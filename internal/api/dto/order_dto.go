package dto

import "time"

// ==================== 订单列表查询 ====================

// ListOrdersRequest 订单列表请求
type ListOrdersRequest struct {
	Status    string `form:"status"`     // paid, processing, shipped, delivered, cancelled, returned
	StartDate string `form:"start_date"` // 2026-01-01
	EndDate   string `form:"end_date"`
	Keyword   string `form:"keyword"` // 搜索：订单号、姓名、电话、邮箱
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20" binding:"omitempty,max=100"`
}

// ListOrdersResponse 订单列表响应
type ListOrdersResponse struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID            int64      `json:"id"`
	Number        string     `json:"number"`
	Status        string     `json:"status"`
	CustomerName  string     `json:"customer_name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	ItemCount     int        `json:"item_count"`
	TotalAmount   int64      `json:"total_amount"`
	Currency      string     `json:"currency"`
	StockShortage bool       `json:"stock_shortage"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// ==================== 订单详情 ====================

// OrderDetailResponse 订单详情
type OrderDetailResponse struct {
	OrderListItem
	DeliveryAddress   string           `json:"delivery_address"`
	Comment           string           `json:"comment"`
	AdminNote         string           `json:"admin_note,omitempty"`
	ProviderPaymentID string           `json:"provider_payment_id,omitempty"`
	AllowedNext       []string         `json:"allowed_next"`
	Items             []OrderItemInfo  `json:"items"`
	Events            []OrderEventInfo `json:"events,omitempty"`
}

// OrderItemInfo 订单项
type OrderItemInfo struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	VariantID   int64  `json:"variant_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	Total       int64  `json:"total"`
}

// OrderEventInfo 状态流转记录
type OrderEventInfo struct {
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	ActorUserID int64     `json:"actor_user_id"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ==================== 后台操作 ====================

// UpdateOrderStatusRequest 修改状态
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

// UpdateOrderNoteRequest 修改备注
type UpdateOrderNoteRequest struct {
	AdminNote string `json:"admin_note" binding:"max=5000"`
}
