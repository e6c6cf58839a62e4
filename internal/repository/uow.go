package repository

import (
	"context"

	"gorm.io/gorm"
)

// ==================== 事务支持 ====================

// UnitOfWork 工作单元：同一事务内的仓储集合
type UnitOfWork struct {
	db         *gorm.DB
	Users      UserRepository
	Categories CategoryRepository
	Products   ProductRepository
	Drafts     DraftRepository
	Orders     OrderRepository
	Codes      AuthCodeRepository
}

// NewUnitOfWork 创建工作单元
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		db:         db,
		Users:      NewUserRepository(db),
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
		Drafts:     NewDraftRepository(db),
		Orders:     NewOrderRepository(db),
		Codes:      NewAuthCodeRepository(db),
	}
}

// Transaction 执行事务，fn 内只能使用 txUow 上的仓储
func (u *UnitOfWork) Transaction(ctx context.Context, fn func(txUow *UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewUnitOfWork(tx))
	})
}
