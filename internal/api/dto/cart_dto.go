package dto

// ==================== 购物车报价 ====================

// CartItem 前端购物车中的一行
type CartItem struct {
	VariantID int64 `json:"variant_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,min=1,max=99"`
}

// QuoteRequest 报价请求
type QuoteRequest struct {
	Items []CartItem `json:"items" binding:"required,min=1,max=50,dive"`
}

// QuoteLine 报价行
type QuoteLine struct {
	VariantID   int64  `json:"variant_id"`
	ProductID   int64  `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	ProductSlug string `json:"product_slug,omitempty"`
	Image       string `json:"image,omitempty"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	Stock       int    `json:"stock"`
	Available   bool   `json:"available"`
	LineTotal   int64  `json:"line_total"`
}

// QuoteResponse 报价结果，Total 只统计可售行
type QuoteResponse struct {
	Lines        []QuoteLine `json:"lines"`
	Total        int64       `json:"total"`
	Currency     string      `json:"currency"`
	AllAvailable bool        `json:"all_available"`
}
