package dto

// ==================== 首页轮播 ====================

// BannerRequest 创建 / 更新轮播
type BannerRequest struct {
	Title      string `json:"title" binding:"max=255"`
	Subtitle   string `json:"subtitle" binding:"max=500"`
	ImageURL   string `json:"image_url" binding:"required,max=512"`
	ButtonText string `json:"button_text" binding:"max=64"`
	ButtonLink string `json:"button_link" binding:"max=512"`
	SortOrder  int    `json:"sort_order"`
	IsActive   *bool  `json:"is_active"`
}

// ==================== 跑马灯 ====================

// MarqueeRequest 更新跑马灯
type MarqueeRequest struct {
	Text      string `json:"text" binding:"max=1000"`
	IsEnabled bool   `json:"is_enabled"`
	Speed     int    `json:"speed" binding:"omitempty,min=1,max=600"`
	BgColor   string `json:"bg_color" binding:"omitempty,hexcolor6"`
	TextColor string `json:"text_color" binding:"omitempty,hexcolor6"`
}

// ==================== 上传 ====================

// UploadResponse 上传结果
type UploadResponse struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}
