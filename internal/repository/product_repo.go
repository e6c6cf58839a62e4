package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront_v1_202610/internal/model"
)

// ==================== 过滤条件 ====================

// 商品排序
const (
	ProductSortNew       = "new"
	ProductSortPriceAsc  = "price_asc"
	ProductSortPriceDesc = "price_desc"
	ProductSortManual    = "manual" // 后台手动排序 sort_order
)

// ProductFilter 商品过滤条件
type ProductFilter struct {
	CategorySlug string
	CategoryID   int64
	Keyword      string
	Featured     *bool
	ActiveOnly   bool
	Sort         string
	Page         int
	PageSize     int
}

// ==================== ProductRepository 商品仓库 ====================

// ProductRepository 商品仓库接口
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string, activeOnly bool) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	CountByCategory(ctx context.Context, categoryID int64) (int64, error)

	// 规格
	GetVariantsByProductID(ctx context.Context, productID int64) ([]model.Variant, error)
	GetVariantsByIDs(ctx context.Context, ids []int64) ([]model.Variant, error)
	LockVariants(ctx context.Context, ids []int64) ([]model.Variant, error)
	CreateVariant(ctx context.Context, variant *model.Variant) error
	SaveVariant(ctx context.Context, variant *model.Variant) error
	DeleteVariants(ctx context.Context, productID int64, ids []int64) error
	SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error)

	// 库存
	DecrementStock(ctx context.Context, variantID int64, qty int) (bool, error)
	DrainStock(ctx context.Context, variantID int64) (int, error)
	IncrementStock(ctx context.Context, variantID int64, qty int) error
}

// ==================== 仓储实现 ====================

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetBySlug activeOnly 时只返回上架商品及其启用的规格
func (r *productRepository) GetBySlug(ctx context.Context, slug string, activeOnly bool) (*model.Product, error) {
	var product model.Product
	db := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			if activeOnly {
				db = db.Where("is_active = ?", true)
			}
			return db.Order("id ASC")
		}).
		Where("slug = ?", slug)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}

	err := db.First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.ActiveOnly {
		activeCategories := r.db.Model(&model.Category{}).Select("id").Where("is_active = ?", true)
		db = db.Where("products.is_active = ?", true).
			Where("products.category_id IN (?)", activeCategories)
	}
	if filter.CategoryID > 0 {
		db = db.Where("products.category_id = ?", filter.CategoryID)
	}
	if filter.CategorySlug != "" {
		sub := r.db.Model(&model.Category{}).Select("id").Where("slug = ?", filter.CategorySlug)
		db = db.Where("products.category_id IN (?)", sub)
	}
	if filter.Featured != nil {
		db = db.Where("products.is_featured = ?", *filter.Featured)
	}
	if filter.Keyword != "" {
		db = db.Where(`LOWER(products.name) LIKE ? ESCAPE '\'`, containsPattern(filter.Keyword))
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

	switch filter.Sort {
	case ProductSortPriceAsc:
		db = db.Order("products.price ASC").Order("products.id DESC")
	case ProductSortPriceDesc:
		db = db.Order("products.price DESC").Order("products.id DESC")
	case ProductSortManual:
		db = db.Order("products.sort_order ASC").Order("products.id DESC")
	default:
		db = db.Order("products.created_at DESC").Order("products.id DESC")
	}

	err := db.
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			if filter.ActiveOnly {
				db = db.Where("is_active = ?", true)
			}
			return db.Order("id ASC")
		}).
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

func (r *productRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Product{BaseModel: model.BaseModel{ID: id}}).Updates(fields).Error
}

// Delete 软删除
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

// SlugExists 包含已软删除的商品，避免与唯一索引冲突
func (r *productRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Unscoped().Model(&model.Product{}).Where("slug = ?", slug)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *productRepository) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

// ==================== 规格 ====================

func (r *productRepository) GetVariantsByProductID(ctx context.Context, productID int64) ([]model.Variant, error) {
	var variants []model.Variant
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&variants).Error
	return variants, err
}

// GetVariantsByIDs 带出所属商品（含已软删除的商品由调用方按 nil 处理）
func (r *productRepository) GetVariantsByIDs(ctx context.Context, ids []int64) ([]model.Variant, error) {
	var variants []model.Variant
	if len(ids) == 0 {
		return variants, nil
	}
	err := r.db.WithContext(ctx).Preload("Product").Where("id IN ?", ids).Order("id ASC").Find(&variants).Error
	return variants, err
}

// LockVariants SELECT ... FOR UPDATE，按 id 升序加锁避免死锁
func (r *productRepository) LockVariants(ctx context.Context, ids []int64) ([]model.Variant, error) {
	var variants []model.Variant
	if len(ids) == 0 {
		return variants, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&variants).Error
	return variants, err
}

func (r *productRepository) CreateVariant(ctx context.Context, variant *model.Variant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

// SaveVariant 全字段更新（含 false / 0）
func (r *productRepository) SaveVariant(ctx context.Context, variant *model.Variant) error {
	return r.db.WithContext(ctx).Omit("Product").Save(variant).Error
}

// DeleteVariants 删除商品下指定规格
func (r *productRepository) DeleteVariants(ctx context.Context, productID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("product_id = ? AND id IN ?", productID, ids).Delete(&model.Variant{}).Error
}

// SKUExists SKU 全局唯一
func (r *productRepository) SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Variant{}).Where("sku = ?", sku)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

// ==================== 库存 ====================

// DecrementStock 扣减库存，库存不足时不扣并返回 false
func (r *productRepository) DecrementStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Variant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DrainStock 库存清零，返回实际取走的数量（调用方需已锁行）
func (r *productRepository) DrainStock(ctx context.Context, variantID int64) (int, error) {
	var v model.Variant
	err := r.db.WithContext(ctx).Select("id", "stock").Where("id = ?", variantID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if v.Stock <= 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Variant{}).Where("id = ?", variantID).Update("stock", 0).Error; err != nil {
		return 0, err
	}
	return v.Stock, nil
}

// IncrementStock 回补库存
func (r *productRepository) IncrementStock(ctx context.Context, variantID int64, qty int) error {
	return r.db.WithContext(ctx).
		Model(&model.Variant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

// ==================== CategoryRepository 分类仓库 ====================

// CategoryRepository 分类仓库接口
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context, activeOnly bool) ([]model.Category, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	var categories []model.Category
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("sort_order ASC").Order("id ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Updates(fields).Error
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Category{}, id).Error
}

func (r *categoryRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Unscoped().Model(&model.Category{}).Where("slug = ?", slug)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}
