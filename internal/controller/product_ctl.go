package controller

import (
	"github.com/gin-gonic/gin"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/service"
)

// ==================== ProductController 商品 ====================

type ProductController struct {
	productService *service.ProductService
}

func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

// List 前台商品列表
// @Summary 商品列表
// @Tags Catalog
// @Produce json
// @Param category query string false "分类 slug"
// @Param q query string false "关键词"
// @Param sort query string false "new | price_asc | price_desc"
// @Success 200 {object} dto.ListProductsResponse
// @Router /products [get]
func (c *ProductController) List(ctx *gin.Context) {
	var req dto.ListProductsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.productService.ListPublic(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// GetBySlug 前台商品详情
func (c *ProductController) GetBySlug(ctx *gin.Context) {
	resp, err := c.productService.GetBySlug(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// ==================== 后台 ====================

func (c *ProductController) AdminList(ctx *gin.Context) {
	var req dto.ListProductsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.productService.ListAdmin(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

func (c *ProductController) AdminGet(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.productService.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// Create 创建商品（含变体）
func (c *ProductController) Create(ctx *gin.Context) {
	var req dto.ProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.productService.Create(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondCreated(ctx, resp)
}

// Update 全量更新商品，变体整体替换
func (c *ProductController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.ProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	resp, err := c.productService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, resp)
}

// SetActive 上下架
func (c *ProductController) SetActive(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	if err := c.productService.SetActive(ctx.Request.Context(), id, *req.IsActive); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"id": id, "is_active": *req.IsActive})
}

func (c *ProductController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.productService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"deleted": true})
}

// ==================== CategoryController 分类 ====================

type CategoryController struct {
	categoryService *service.CategoryService
}

func NewCategoryController(categoryService *service.CategoryService) *CategoryController {
	return &CategoryController{categoryService: categoryService}
}

// List 前台分类（仅启用）
func (c *CategoryController) List(ctx *gin.Context) {
	list, err := c.categoryService.List(ctx.Request.Context(), true)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, list)
}

func (c *CategoryController) AdminList(ctx *gin.Context) {
	list, err := c.categoryService.List(ctx.Request.Context(), false)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, list)
}

func (c *CategoryController) AdminGet(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	info, err := c.categoryService.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, info)
}

func (c *CategoryController) Create(ctx *gin.Context) {
	var req dto.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	info, err := c.categoryService.Create(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondCreated(ctx, info)
}

func (c *CategoryController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	info, err := c.categoryService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, info)
}

// Delete 删除分类，仍有商品引用时拒绝
func (c *CategoryController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.categoryService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"deleted": true})
}
