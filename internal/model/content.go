package model

import "time"

// HeroBanner 首页轮播
type HeroBanner struct {
	BaseModel
	Title      string `gorm:"size:255" json:"title"`
	Subtitle   string `gorm:"size:500" json:"subtitle"`
	ImageURL   string `gorm:"size:512;not null" json:"image_url"`
	ButtonText string `gorm:"size:64" json:"button_text"`
	ButtonLink string `gorm:"size:512" json:"button_link"`
	SortOrder  int    `gorm:"default:0;index" json:"sort_order"`
	IsActive   bool   `json:"is_active"`
}

func (HeroBanner) TableName() string {
	return "hero_banners"
}

// MarqueeSettingsID 跑马灯配置为单行表
const MarqueeSettingsID int64 = 1

// MarqueeSettings 顶部跑马灯
type MarqueeSettings struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:1000" json:"text"`
	IsEnabled bool      `gorm:"default:false" json:"is_enabled"`
	Speed     int       `gorm:"default:30" json:"speed"` // 滚动一轮的秒数
	BgColor   string    `gorm:"size:16;default:'#000000'" json:"bg_color"`
	TextColor string    `gorm:"size:16;default:'#ffffff'" json:"text_color"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MarqueeSettings) TableName() string {
	return "marquee_settings"
}

// DefaultMarquee 未配置时的默认值
func DefaultMarquee() MarqueeSettings {
	return MarqueeSettings{
		ID:        MarqueeSettingsID,
		Speed:     30,
		BgColor:   "#000000",
		TextColor: "#ffffff",
	}
}
