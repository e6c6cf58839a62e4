package model

import "time"

// 用户角色
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// 用户状态
const (
	UserStatusActive   = 1
	UserStatusDisabled = 0
)

// User 商城用户（顾客 / 管理员共用一张表，Role 区分）
type User struct {
	BaseModel
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Name         string `gorm:"size:128" json:"name"`
	Phone        string `gorm:"size:32" json:"phone"`
	Role         string `gorm:"size:20;default:customer;index" json:"role"`
	Status       int    `gorm:"index" json:"status"`

	// Telegram 绑定
	TelegramChatID   *int64 `gorm:"uniqueIndex" json:"telegram_chat_id,omitempty"`
	TelegramUsername string `gorm:"size:64" json:"telegram_username,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasTelegram 是否已绑定 Telegram
func (u *User) HasTelegram() bool {
	return u.TelegramChatID != nil && *u.TelegramChatID != 0
}
