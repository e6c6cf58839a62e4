package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/utils"
)

// 生成 slug 时最多尝试的后缀数量
const maxSlugSuffix = 1000

// ==================== ProductService 商品 ====================

type ProductService struct {
	uow *repository.UnitOfWork
}

func NewProductService(uow *repository.UnitOfWork) *ProductService {
	return &ProductService{uow: uow}
}

// ==================== 前台 ====================

// ListPublic 前台商品列表，只含上架商品
func (s *ProductService) ListPublic(ctx context.Context, req *dto.ListProductsRequest) (*dto.ListProductsResponse, error) {
	return s.list(ctx, req, true)
}

// GetBySlug 前台商品详情
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*dto.ProductDetail, error) {
	product, err := s.uow.Products.GetBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	// 分类下架时商品一并不可见
	if product.Category != nil && !product.Category.IsActive {
		return nil, ErrProductNotFound
	}
	return toProductDetail(product), nil
}

// ==================== 后台 ====================

// ListAdmin 后台商品列表，包含下架商品
func (s *ProductService) ListAdmin(ctx context.Context, req *dto.ListProductsRequest) (*dto.ListProductsResponse, error) {
	return s.list(ctx, req, false)
}

// Get 后台按 ID 获取
func (s *ProductService) Get(ctx context.Context, id int64) (*dto.ProductDetail, error) {
	product, err := s.uow.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return toProductDetail(product), nil
}

// Create 创建商品及规格
func (s *ProductService) Create(ctx context.Context, req *dto.ProductRequest) (*dto.ProductDetail, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	var productID int64
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		if err := ensureCategory(ctx, tx, req.CategoryID); err != nil {
			return err
		}

		slug, err := resolveSlug(ctx, req.Slug, req.Name, "product", 0, tx.Products.SlugExists)
		if err != nil {
			return err
		}

		variants, err := buildVariants(ctx, tx, req.Variants, nil)
		if err != nil {
			return err
		}

		product := &model.Product{
			CategoryID:  req.CategoryID,
			Name:        strings.TrimSpace(req.Name),
			Slug:        slug,
			Description: req.Description,
			Price:       req.Price,
			OldPrice:    req.OldPrice,
			Images:      datatypes.JSONSlice[string](cleanImages(req.Images)),
			IsActive:    boolOr(req.IsActive, true),
			IsFeatured:  req.IsFeatured,
			SortOrder:   req.SortOrder,
			Variants:    variants,
		}
		if err := tx.Products.Create(ctx, product); err != nil {
			return err
		}
		productID = product.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, productID)
}

// Update 更新商品，整体替换规格：带 ID 的更新，缺失的删除，新的插入
func (s *ProductService) Update(ctx context.Context, id int64, req *dto.ProductRequest) (*dto.ProductDetail, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		product, err := tx.Products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if err := ensureCategory(ctx, tx, req.CategoryID); err != nil {
			return err
		}

		slug := product.Slug
		if req.Slug != "" && req.Slug != product.Slug {
			slug, err = resolveSlug(ctx, req.Slug, req.Name, "product", id, tx.Products.SlugExists)
			if err != nil {
				return err
			}
		}

		existing := make(map[int64]model.Variant, len(product.Variants))
		for _, v := range product.Variants {
			existing[v.ID] = v
		}

		// 先删除请求中不再出现的规格，释放其 SKU
		keep := make(map[int64]bool)
		for _, v := range req.Variants {
			if v.ID == 0 {
				continue
			}
			if _, ok := existing[v.ID]; !ok {
				return fmt.Errorf("%w: 规格 %d 不属于该商品", ErrInvalidInput, v.ID)
			}
			if keep[v.ID] {
				return fmt.Errorf("%w: 规格 %d 重复", ErrInvalidInput, v.ID)
			}
			keep[v.ID] = true
		}
		var removed []int64
		for vid := range existing {
			if !keep[vid] {
				removed = append(removed, vid)
			}
		}
		if err := tx.Products.DeleteVariants(ctx, id, removed); err != nil {
			return err
		}

		variants, err := buildVariants(ctx, tx, req.Variants, existing)
		if err != nil {
			return err
		}
		for i := range variants {
			v := &variants[i]
			v.ProductID = id
			if v.ID > 0 {
				err = tx.Products.SaveVariant(ctx, v)
			} else {
				err = tx.Products.CreateVariant(ctx, v)
			}
			if err != nil {
				return err
			}
		}

		return tx.Products.UpdateFields(ctx, id, map[string]interface{}{
			"category_id": req.CategoryID,
			"name":        strings.TrimSpace(req.Name),
			"slug":        slug,
			"description": req.Description,
			"price":       req.Price,
			"old_price":   req.OldPrice,
			"images":      datatypes.JSONSlice[string](cleanImages(req.Images)),
			"is_active":   boolOr(req.IsActive, product.IsActive),
			"is_featured": req.IsFeatured,
			"sort_order":  req.SortOrder,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// SetActive 上下架
func (s *ProductService) SetActive(ctx context.Context, id int64, active bool) error {
	product, err := s.uow.Products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.uow.Products.UpdateFields(ctx, id, map[string]interface{}{"is_active": active})
}

// Delete 软删除
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	product, err := s.uow.Products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.uow.Products.Delete(ctx, id)
}

func (s *ProductService) list(ctx context.Context, req *dto.ListProductsRequest, activeOnly bool) (*dto.ListProductsResponse, error) {
	products, total, err := s.uow.Products.List(ctx, repository.ProductFilter{
		CategorySlug: req.Category,
		Keyword:      strings.TrimSpace(req.Keyword),
		Featured:     req.Featured,
		ActiveOnly:   activeOnly,
		Sort:         req.Sort,
		Page:         req.Page,
		PageSize:     req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]dto.ProductItem, 0, len(products))
	for i := range products {
		list = append(list, toProductItem(&products[i]))
	}

	return &dto.ListProductsResponse{
		Total: total,
		List:  list,
	}, nil
}

// ==================== CategoryService 分类 ====================

type CategoryService struct {
	uow *repository.UnitOfWork
}

func NewCategoryService(uow *repository.UnitOfWork) *CategoryService {
	return &CategoryService{uow: uow}
}

// List activeOnly 为前台接口
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]dto.CategoryInfo, error) {
	categories, err := s.uow.Categories.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	list := make([]dto.CategoryInfo, len(categories))
	for i := range categories {
		list[i] = *toCategoryInfo(&categories[i])
	}
	return list, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*dto.CategoryInfo, error) {
	category, err := s.uow.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return toCategoryInfo(category), nil
}

func (s *CategoryService) Create(ctx context.Context, req *dto.CategoryRequest) (*dto.CategoryInfo, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 分类名称不能为空", ErrInvalidInput)
	}

	slug, err := resolveSlug(ctx, req.Slug, name, "category", 0, s.uow.Categories.SlugExists)
	if err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		SortOrder:   req.SortOrder,
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := s.uow.Categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return toCategoryInfo(category), nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, req *dto.CategoryRequest) (*dto.CategoryInfo, error) {
	category, err := s.uow.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 分类名称不能为空", ErrInvalidInput)
	}

	slug := category.Slug
	if req.Slug != "" && req.Slug != category.Slug {
		slug, err = resolveSlug(ctx, req.Slug, name, "category", id, s.uow.Categories.SlugExists)
		if err != nil {
			return nil, err
		}
	}

	err = s.uow.Categories.UpdateFields(ctx, id, map[string]interface{}{
		"name":        name,
		"slug":        slug,
		"description": req.Description,
		"image_url":   req.ImageURL,
		"sort_order":  req.SortOrder,
		"is_active":   boolOr(req.IsActive, category.IsActive),
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete 仍有商品引用时拒绝
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	category, err := s.uow.Categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}

	count, err := s.uow.Products.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	return s.uow.Categories.Delete(ctx, id)
}

// ==================== 辅助方法 ====================

type slugExistsFunc func(ctx context.Context, slug string, excludeID int64) (bool, error)

// resolveSlug 显式 slug 冲突返回 ErrSlugExists；自动生成的 slug 追加 -2、-3 直到唯一
func resolveSlug(ctx context.Context, explicit, name, fallback string, excludeID int64, exists slugExistsFunc) (string, error) {
	if explicit != "" {
		if !utils.IsValidSlug(explicit) {
			return "", fmt.Errorf("%w: slug 只能包含小写字母、数字和 -", ErrInvalidInput)
		}
		taken, err := exists(ctx, explicit, excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrSlugExists
		}
		return explicit, nil
	}

	base := utils.Slugify(name, fallback)
	candidate := base
	for i := 2; i <= maxSlugSuffix; i++ {
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", ErrSlugExists
}

func validateProductRequest(req *dto.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: 商品名称不能为空", ErrInvalidInput)
	}
	if req.Price <= 0 {
		return fmt.Errorf("%w: 价格必须大于 0", ErrInvalidInput)
	}
	if req.OldPrice < 0 {
		return fmt.Errorf("%w: 原价不能为负", ErrInvalidInput)
	}
	if len(req.Variants) == 0 {
		return fmt.Errorf("%w: 至少需要一个规格", ErrInvalidInput)
	}

	skus := make(map[string]bool)
	for _, v := range req.Variants {
		if v.Stock < 0 {
			return fmt.Errorf("%w: 库存不能为负", ErrInvalidInput)
		}
		if v.Price != nil && *v.Price <= 0 {
			return fmt.Errorf("%w: 规格价格必须大于 0", ErrInvalidInput)
		}
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			continue
		}
		if skus[sku] {
			return fmt.Errorf("%w: %s", ErrSKUExists, sku)
		}
		skus[sku] = true
	}
	return nil
}

func ensureCategory(ctx context.Context, tx *repository.UnitOfWork, categoryID int64) error {
	category, err := tx.Categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	return nil
}

// buildVariants 校验 SKU 并转换为模型；existing 为已有规格（创建时为 nil）
func buildVariants(ctx context.Context, tx *repository.UnitOfWork, reqs []dto.VariantRequest, existing map[int64]model.Variant) ([]model.Variant, error) {
	variants := make([]model.Variant, 0, len(reqs))
	for _, r := range reqs {
		var sku *string
		if trimmed := strings.TrimSpace(r.SKU); trimmed != "" {
			taken, err := tx.Products.SKUExists(ctx, trimmed, r.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, fmt.Errorf("%w: %s", ErrSKUExists, trimmed)
			}
			sku = &trimmed
		}

		v := model.Variant{
			Size:     strings.TrimSpace(r.Size),
			Color:    strings.TrimSpace(r.Color),
			SKU:      sku,
			Stock:    r.Stock,
			Price:    r.Price,
			IsActive: boolOr(r.IsActive, true),
		}
		if r.ID > 0 {
			old := existing[r.ID]
			v.ID = old.ID
			v.ProductID = old.ProductID
			v.CreatedAt = old.CreatedAt
			v.IsActive = boolOr(r.IsActive, old.IsActive)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ==================== DTO 转换 ====================

func toProductItem(p *model.Product) dto.ProductItem {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	item := dto.ProductItem{
		ID:         p.ID,
		Name:       p.Name,
		Slug:       p.Slug,
		Price:      p.Price,
		OldPrice:   p.OldPrice,
		Images:     images,
		CategoryID: p.CategoryID,
		IsActive:   p.IsActive,
		IsFeatured: p.IsFeatured,
		TotalStock: p.TotalStock(),
	}
	if len(images) > 0 {
		item.Image = images[0]
	}
	if p.Category != nil {
		item.CategorySlug = p.Category.Slug
	}
	item.InStock = item.TotalStock > 0
	return item
}

func toProductDetail(p *model.Product) *dto.ProductDetail {
	detail := &dto.ProductDetail{
		ProductItem: toProductItem(p),
		Description: p.Description,
		SortOrder:   p.SortOrder,
		Variants:    make([]dto.VariantInfo, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		detail.Variants[i] = dto.VariantInfo{
			ID:       v.ID,
			Size:     v.Size,
			Color:    v.Color,
			SKU:      v.SKU,
			Stock:    v.Stock,
			Price:    v.EffectivePrice(p),
			OwnPrice: v.Price,
			IsActive: v.IsActive,
		}
	}
	if p.Category != nil {
		detail.Category = toCategoryInfo(p.Category)
	}
	return detail
}

func toCategoryInfo(c *model.Category) *dto.CategoryInfo {
	return &dto.CategoryInfo{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
	}
}

// ==================== 错误定义 ====================

var (
	ErrProductNotFound  = errors.New("商品不存在")
	ErrCategoryNotFound = errors.New("分类不存在")
	ErrSlugExists       = errors.New("slug 已存在")
	ErrSKUExists        = errors.New("SKU 已存在")
	ErrCategoryInUse    = errors.New("分类下仍有商品，无法删除")
)
