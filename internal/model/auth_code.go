package model

import "time"

// TgLinkCode Telegram 绑定码，用户在机器人里发送 /start <code>
type TgLinkCode struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Code      string     `gorm:"size:16;uniqueIndex;not null"`
	UserID    int64      `gorm:"index;not null"`
	ExpiresAt time.Time  `gorm:"index"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (TgLinkCode) TableName() string {
	return "tg_link_codes"
}

// IsUsable 未使用且未过期
func (c *TgLinkCode) IsUsable(now time.Time) bool {
	return c.UsedAt == nil && now.Before(c.ExpiresAt)
}

// PasswordResetCode 通过 Telegram 下发的 6 位验证码（只存哈希）
type PasswordResetCode struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"index;not null"`
	CodeHash  string    `gorm:"size:255;not null"`
	Attempts  int       `gorm:"default:0"`
	ExpiresAt time.Time `gorm:"index"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (PasswordResetCode) TableName() string {
	return "password_reset_codes"
}

// PasswordResetToken 验证码校验通过后签发的一次性令牌（只存 SHA-256）
type PasswordResetToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"index;not null"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// AllModels 需要 AutoMigrate 的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Category{}, &Product{}, &Variant{},
		&PaymentDraft{}, &Order{}, &OrderItem{}, &OrderEvent{},
		&HeroBanner{}, &MarqueeSettings{},
		&TgLinkCode{}, &PasswordResetCode{}, &PasswordResetToken{},
	}
}
