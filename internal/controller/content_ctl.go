package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/service"
)

// ==================== ContentController 首页内容 ====================

type ContentController struct {
	contentService *service.ContentService
	storageService *service.StorageService
}

func NewContentController(contentService *service.ContentService, storageService *service.StorageService) *ContentController {
	return &ContentController{
		contentService: contentService,
		storageService: storageService,
	}
}

// Banners 前台轮播（仅启用）
func (c *ContentController) Banners(ctx *gin.Context) {
	list, err := c.contentService.ListActiveBanners(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, list)
}

// Marquee 跑马灯
func (c *ContentController) Marquee(ctx *gin.Context) {
	m, err := c.contentService.GetMarquee(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, m)
}

// ==================== 后台 ====================

func (c *ContentController) AdminBanners(ctx *gin.Context) {
	list, err := c.contentService.ListBanners(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, list)
}

func (c *ContentController) CreateBanner(ctx *gin.Context) {
	var req dto.BannerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	b, err := c.contentService.CreateBanner(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondCreated(ctx, b)
}

func (c *ContentController) UpdateBanner(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.BannerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	b, err := c.contentService.UpdateBanner(ctx.Request.Context(), id, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, b)
}

func (c *ContentController) DeleteBanner(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.contentService.DeleteBanner(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"deleted": true})
}

func (c *ContentController) UpdateMarquee(ctx *gin.Context) {
	var req dto.MarqueeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	m, err := c.contentService.UpdateMarquee(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, m)
}

// Upload 上传图片，表单字段 file
// @Summary 上传图片
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "图片"
// @Success 200 {object} dto.UploadResponse
// @Router /admin/uploads [post]
func (c *ContentController) Upload(ctx *gin.Context) {
	// 额外留 1MB 给 multipart 头
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.storageService.MaxBytes()+(1<<20))

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, service.ErrFileTooLarge)
			return
		}
		respondBadRequest(ctx, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(ctx, err)
		return
	}

	resp, err := c.storageService.UploadImage(ctx.Request.Context(), data, fh.Filename)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondCreated(ctx, resp)
}
