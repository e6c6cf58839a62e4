package service

import (
	"context"
	"errors"
	"strings"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
)

// ContentService 首页轮播与跑马灯
type ContentService struct {
	banners repository.BannerRepository
	marquee repository.MarqueeRepository
}

func NewContentService(banners repository.BannerRepository, marquee repository.MarqueeRepository) *ContentService {
	return &ContentService{banners: banners, marquee: marquee}
}

// ==================== 轮播 ====================

func (s *ContentService) ListActiveBanners(ctx context.Context) ([]model.HeroBanner, error) {
	return s.banners.List(ctx, true)
}

func (s *ContentService) ListBanners(ctx context.Context) ([]model.HeroBanner, error) {
	return s.banners.List(ctx, false)
}

func (s *ContentService) CreateBanner(ctx context.Context, req *dto.BannerRequest) (*model.HeroBanner, error) {
	banner := &model.HeroBanner{
		Title:      strings.TrimSpace(req.Title),
		Subtitle:   strings.TrimSpace(req.Subtitle),
		ImageURL:   strings.TrimSpace(req.ImageURL),
		ButtonText: strings.TrimSpace(req.ButtonText),
		ButtonLink: strings.TrimSpace(req.ButtonLink),
		SortOrder:  req.SortOrder,
		IsActive:   boolOr(req.IsActive, true),
	}
	if banner.ImageURL == "" {
		return nil, ErrInvalidInput
	}
	if err := s.banners.Create(ctx, banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *ContentService) UpdateBanner(ctx context.Context, id int64, req *dto.BannerRequest) (*model.HeroBanner, error) {
	banner, err := s.banners.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if banner == nil {
		return nil, ErrBannerNotFound
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, ErrInvalidInput
	}

	err = s.banners.UpdateFields(ctx, id, map[string]interface{}{
		"title":       strings.TrimSpace(req.Title),
		"subtitle":    strings.TrimSpace(req.Subtitle),
		"image_url":   strings.TrimSpace(req.ImageURL),
		"button_text": strings.TrimSpace(req.ButtonText),
		"button_link": strings.TrimSpace(req.ButtonLink),
		"sort_order":  req.SortOrder,
		"is_active":   boolOr(req.IsActive, banner.IsActive),
	})
	if err != nil {
		return nil, err
	}
	return s.banners.GetByID(ctx, id)
}

func (s *ContentService) DeleteBanner(ctx context.Context, id int64) error {
	banner, err := s.banners.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if banner == nil {
		return ErrBannerNotFound
	}
	return s.banners.Delete(ctx, id)
}

// ==================== 跑马灯 ====================

// GetMarquee 未配置时返回默认值
func (s *ContentService) GetMarquee(ctx context.Context) (*model.MarqueeSettings, error) {
	settings, err := s.marquee.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		def := model.DefaultMarquee()
		return &def, nil
	}
	return settings, nil
}

// UpdateMarquee 整体覆盖，空字段回落到默认值
func (s *ContentService) UpdateMarquee(ctx context.Context, req *dto.MarqueeRequest) (*model.MarqueeSettings, error) {
	settings := model.DefaultMarquee()
	settings.Text = strings.TrimSpace(req.Text)
	settings.IsEnabled = req.IsEnabled
	if req.Speed > 0 {
		settings.Speed = req.Speed
	}
	if req.BgColor != "" {
		settings.BgColor = strings.ToLower(req.BgColor)
	}
	if req.TextColor != "" {
		settings.TextColor = strings.ToLower(req.TextColor)
	}

	if err := s.marquee.Upsert(ctx, &settings); err != nil {
		return nil, err
	}
	return s.GetMarquee(ctx)
}

// ==================== 错误定义 ====================

var (
	ErrBannerNotFound = errors.New("轮播不存在")
)
