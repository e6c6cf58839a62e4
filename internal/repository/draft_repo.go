package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront_v1_202610/internal/model"
)

// ==================== 仓储接口 ====================

// DraftRepository 支付草稿仓储接口
type DraftRepository interface {
	Create(ctx context.Context, draft *model.PaymentDraft) error
	GetByID(ctx context.Context, id string) (*model.PaymentDraft, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.PaymentDraft, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	// 过期清理相关
	ExpirePending(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 仓储实现 ====================

type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository 创建支付草稿仓储
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Create(ctx context.Context, draft *model.PaymentDraft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

func (r *draftRepository) GetByID(ctx context.Context, id string) (*model.PaymentDraft, error) {
	var draft model.PaymentDraft
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// GetByIDForUpdate 事务内加行锁，并发回调串行化
func (r *draftRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.PaymentDraft, error) {
	var draft model.PaymentDraft
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.PaymentDraft{}).Where("id = ?", id).Updates(fields).Error
}

// ExpirePending 将过期的 pending 草稿标记为 expired
func (r *draftRepository) ExpirePending(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentDraft{}).
		Where("status = ? AND expires_at < ?", model.DraftStatusPending, before).
		Update("status", model.DraftStatusExpired)
	return result.RowsAffected, result.Error
}
