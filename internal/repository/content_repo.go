package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront_v1_202610/internal/model"
)

// ==================== BannerRepository 首页轮播 ====================

// BannerRepository 轮播仓库接口
type BannerRepository interface {
	Create(ctx context.Context, banner *model.HeroBanner) error
	GetByID(ctx context.Context, id int64) (*model.HeroBanner, error)
	List(ctx context.Context, activeOnly bool) ([]model.HeroBanner, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

type bannerRepository struct {
	db *gorm.DB
}

// NewBannerRepository 创建轮播仓库
func NewBannerRepository(db *gorm.DB) BannerRepository {
	return &bannerRepository{db: db}
}

func (r *bannerRepository) Create(ctx context.Context, banner *model.HeroBanner) error {
	return r.db.WithContext(ctx).Create(banner).Error
}

func (r *bannerRepository) GetByID(ctx context.Context, id int64) (*model.HeroBanner, error) {
	var banner model.HeroBanner
	err := r.db.WithContext(ctx).First(&banner, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &banner, nil
}

func (r *bannerRepository) List(ctx context.Context, activeOnly bool) ([]model.HeroBanner, error) {
	var banners []model.HeroBanner
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("sort_order ASC").Order("id ASC").Find(&banners).Error
	return banners, err
}

func (r *bannerRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.HeroBanner{}).Where("id = ?", id).Updates(fields).Error
}

func (r *bannerRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.HeroBanner{}, id).Error
}

// ==================== MarqueeRepository 跑马灯 ====================

// MarqueeRepository 跑马灯仓库接口（单行表）
type MarqueeRepository interface {
	Get(ctx context.Context) (*model.MarqueeSettings, error)
	Upsert(ctx context.Context, settings *model.MarqueeSettings) error
}

type marqueeRepository struct {
	db *gorm.DB
}

// NewMarqueeRepository 创建跑马灯仓库
func NewMarqueeRepository(db *gorm.DB) MarqueeRepository {
	return &marqueeRepository{db: db}
}

// Get 未配置时返回 nil, nil
func (r *marqueeRepository) Get(ctx context.Context) (*model.MarqueeSettings, error) {
	var settings model.MarqueeSettings
	err := r.db.WithContext(ctx).First(&settings, model.MarqueeSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert 固定 ID 写入
func (r *marqueeRepository) Upsert(ctx context.Context, settings *model.MarqueeSettings) error {
	settings.ID = model.MarqueeSettingsID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "is_enabled", "speed", "bg_color", "text_color", "updated_at"}),
	}).Create(settings).Error
}
