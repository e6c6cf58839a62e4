package model

import (
	"time"
)

// ==================== 订单状态常量 ====================

const (
	OrderStatusPaid       = "paid"       // 已支付（订单创建时的初始状态）
	OrderStatusProcessing = "processing" // 处理中（配货）
	OrderStatusShipped    = "shipped"    // 已发货
	OrderStatusDelivered  = "delivered"  // 已签收
	OrderStatusCancelled  = "cancelled"  // 已取消
	OrderStatusReturned   = "returned"   // 已退货
)

// AllowedTransitions 订单状态流转表
// 不在表中的流转一律拒绝，终态对应空切片
var AllowedTransitions = map[string][]string{
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusReturned},
	OrderStatusDelivered:  {OrderStatusReturned},
	OrderStatusCancelled:  {},
	OrderStatusReturned:   {},
}

// IsValidOrderStatus 状态是否存在
func IsValidOrderStatus(status string) bool {
	_, ok := AllowedTransitions[status]
	return ok
}

// CanTransition 检查 from -> to 是否允许
func CanTransition(from, to string) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RestocksOnTransition 进入该状态时是否需要回补库存
func RestocksOnTransition(to string) bool {
	return to == OrderStatusCancelled || to == OrderStatusReturned
}

// ==================== Order 订单主表 ====================

type Order struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Number  string `gorm:"size:32;uniqueIndex" json:"number"`
	DraftID string `gorm:"size:36;uniqueIndex;not null" json:"draft_id"`
	UserID  *int64 `gorm:"index" json:"user_id,omitempty"`

	Status string `gorm:"size:32;index;default:paid" json:"status"`

	// 收货信息
	CustomerName    string `gorm:"size:255" json:"customer_name"`
	Phone           string `gorm:"size:32" json:"phone"`
	Email           string `gorm:"size:255" json:"email"`
	DeliveryAddress string `gorm:"type:text" json:"delivery_address"`
	Comment         string `gorm:"type:text" json:"comment"`

	// 金额（最小货币单位）
	TotalAmount int64  `json:"total_amount"`
	Currency    string `gorm:"size:10" json:"currency"`

	ProviderPaymentID string `gorm:"size:128;index" json:"provider_payment_id"`

	// 支付确认时库存不足（已按 0 截断），需要人工处理
	StockShortage bool   `gorm:"default:false" json:"stock_shortage"`
	AdminNote     string `gorm:"type:text" json:"admin_note"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Items  []OrderItem  `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Events []OrderEvent `gorm:"foreignKey:OrderID" json:"events,omitempty"`
}

func (*Order) TableName() string {
	return "orders"
}

// ItemCount 商品件数
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// IsTerminal 是否终态
func (o *Order) IsTerminal() bool {
	return len(AllowedTransitions[o.Status]) == 0
}

// ==================== OrderItem 订单项 ====================

type OrderItem struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64  `gorm:"index;not null" json:"order_id"`
	ProductID   int64  `gorm:"index" json:"product_id"`
	VariantID   int64  `gorm:"index" json:"variant_id"`
	ProductName string `gorm:"size:255" json:"product_name"`
	Size        string `gorm:"size:32" json:"size"`
	Color       string `gorm:"size:64" json:"color"`
	Price       int64  `json:"price"`
	Quantity    int    `gorm:"default:1" json:"quantity"`
	Reserved    int    `gorm:"not null" json:"-"` // 实际扣减的库存，取消 / 退货按此回补

	CreatedAt time.Time `json:"created_at"`
}

func (*OrderItem) TableName() string {
	return "order_items"
}

// Total 小计
func (i *OrderItem) Total() int64 {
	return i.Price * int64(i.Quantity)
}

// ==================== OrderEvent 状态流转记录 ====================

type OrderEvent struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64     `gorm:"index;not null" json:"order_id"`
	ActorUserID int64     `gorm:"default:0" json:"actor_user_id"` // 0 表示系统（支付回调）
	FromStatus  string    `gorm:"size:32" json:"from_status"`
	ToStatus    string    `gorm:"size:32" json:"to_status"`
	Note        string    `gorm:"size:500" json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}
