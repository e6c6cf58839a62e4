package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"storefront_v1_202610/internal/model"
)

// ==================== AuthCodeRepository 绑定码 / 重置码 ====================

// AuthCodeRepository 一次性验证码仓库接口
type AuthCodeRepository interface {
	// Telegram 绑定码
	CreateLinkCode(ctx context.Context, code *model.TgLinkCode) error
	GetLinkCode(ctx context.Context, code string) (*model.TgLinkCode, error)
	DeleteUnusedLinkCodes(ctx context.Context, userID int64) error
	MarkLinkCodeUsed(ctx context.Context, id int64, at time.Time) (bool, error)

	// 密码重置验证码
	CreateResetCode(ctx context.Context, code *model.PasswordResetCode) error
	InvalidateResetCodes(ctx context.Context, userID int64, at time.Time) error
	GetActiveResetCode(ctx context.Context, userID int64, now time.Time) (*model.PasswordResetCode, error)
	ReserveResetAttempt(ctx context.Context, id int64, max int) (bool, error)
	MarkResetCodeUsed(ctx context.Context, id int64, at time.Time) (bool, error)

	// 密码重置令牌
	CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error
	GetResetTokenByHash(ctx context.Context, hash string) (*model.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id int64, at time.Time) (bool, error)

	// 清理
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

type authCodeRepository struct {
	db *gorm.DB
}

// NewAuthCodeRepository 创建验证码仓库
func NewAuthCodeRepository(db *gorm.DB) AuthCodeRepository {
	return &authCodeRepository{db: db}
}

// ==================== TgLinkCode ====================

func (r *authCodeRepository) CreateLinkCode(ctx context.Context, code *model.TgLinkCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *authCodeRepository) GetLinkCode(ctx context.Context, code string) (*model.TgLinkCode, error) {
	var c model.TgLinkCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *authCodeRepository) DeleteUnusedLinkCodes(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND used_at IS NULL", userID).Delete(&model.TgLinkCode{}).Error
}

// MarkLinkCodeUsed 仅未使用的码可以被标记，返回是否抢到
func (r *authCodeRepository) MarkLinkCodeUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.TgLinkCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	return result.RowsAffected == 1, result.Error
}

// ==================== PasswordResetCode ====================

func (r *authCodeRepository) CreateResetCode(ctx context.Context, code *model.PasswordResetCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// InvalidateResetCodes 作废用户所有未使用的验证码
func (r *authCodeRepository) InvalidateResetCodes(ctx context.Context, userID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.PasswordResetCode{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", at).Error
}

// GetActiveResetCode 最新一条未使用且未过期的验证码
func (r *authCodeRepository) GetActiveResetCode(ctx context.Context, userID int64, now time.Time) (*model.PasswordResetCode, error) {
	var c model.PasswordResetCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND used_at IS NULL AND expires_at > ?", userID, now).
		Order("id DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ReserveResetAttempt 占用一次尝试机会，次数已满返回 false；
// 条件更新保证并发请求合计不超过 max 次
func (r *authCodeRepository) ReserveResetAttempt(ctx context.Context, id int64, max int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PasswordResetCode{}).
		Where("id = ? AND attempts < ?", id, max).
		Update("attempts", gorm.Expr("attempts + 1"))
	return result.RowsAffected == 1, result.Error
}

func (r *authCodeRepository) MarkResetCodeUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PasswordResetCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	return result.RowsAffected == 1, result.Error
}

// ==================== PasswordResetToken ====================

func (r *authCodeRepository) CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *authCodeRepository) GetResetTokenByHash(ctx context.Context, hash string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *authCodeRepository) MarkResetTokenUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	return result.RowsAffected == 1, result.Error
}

// ==================== 清理 ====================

// PurgeStale 删除 before 之前已使用或已过期的码
func (r *authCodeRepository) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&model.TgLinkCode{}, &model.PasswordResetCode{}, &model.PasswordResetToken{}} {
			result := tx.Where("(used_at IS NOT NULL AND used_at < ?) OR expires_at < ?", before, before).Delete(m)
			if result.Error != nil {
				return result.Error
			}
			total += result.RowsAffected
		}
		return nil
	})
	return total, err
}
