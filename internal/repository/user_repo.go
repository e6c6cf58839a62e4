package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"storefront_v1_202610/internal/model"
)

// ==================== UserRepository 用户仓库 ====================

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	UpdateLastLogin(ctx context.Context, id int64) error
	List(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Telegram 绑定
	LinkTelegram(ctx context.Context, id int64, chatID int64, username string) error
	UnlinkTelegram(ctx context.Context, id int64) error
	UnlinkTelegramChat(ctx context.Context, chatID int64) error
}

// UserFilter 用户筛选条件
type UserFilter struct {
	Keyword  string
	Role     string
	Status   *int
	Page     int
	PageSize int
}

// ==================== 实现 ====================

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 根据 ID 获取用户
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户（邮箱统一小写存储）
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTelegramChatID 根据 Telegram chat 获取用户
func (r *userRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateFields 更新指定字段
func (r *userRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// UpdatePassword 更新密码
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", hashedPassword).Error
}

// UpdateLastLogin 更新最后登录时间
func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login_at", time.Now()).Error
}

// List 获取用户列表
func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})

	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("email LIKE ? OR name LIKE ? OR phone LIKE ?", keyword, keyword, keyword)
	}
	if filter.Role != "" {
		db = db.Where("role = ?", filter.Role)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.Order("id DESC").Offset(offset).Limit(filter.PageSize).Find(&users).Error
	return users, total, err
}

// ExistsByEmail 检查邮箱是否存在（含已删除用户，唯一索引不区分软删除）
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// LinkTelegram 绑定 Telegram chat
func (r *userRepository) LinkTelegram(ctx context.Context, id int64, chatID int64, username string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"telegram_chat_id":  chatID,
		"telegram_username": username,
	}).Error
}

// UnlinkTelegram 解绑用户的 Telegram
func (r *userRepository) UnlinkTelegram(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"telegram_chat_id":  nil,
		"telegram_username": "",
	}).Error
}

// UnlinkTelegramChat 从任何已绑定该 chat 的用户上解绑（含已删除用户）
func (r *userRepository) UnlinkTelegramChat(ctx context.Context, chatID int64) error {
	return r.db.WithContext(ctx).Unscoped().Model(&model.User{}).Where("telegram_chat_id = ?", chatID).Updates(map[string]interface{}{
		"telegram_chat_id":  nil,
		"telegram_username": "",
	}).Error
}
