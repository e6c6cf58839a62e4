package service

import (
	"context"
	"fmt"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/repository"
)

// 单个规格最大购买数量
const MaxLineQuantity = 99

// CartService 购物车报价；购物车内容保存在客户端
type CartService struct {
	uow      *repository.UnitOfWork
	currency string
}

func NewCartService(uow *repository.UnitOfWork, currency string) *CartService {
	return &CartService{uow: uow, currency: currency}
}

// Quote 合并重复规格后逐行报价，Total 只统计可售行
func (s *CartService) Quote(ctx context.Context, items []dto.CartItem) (*dto.QuoteResponse, error) {
	merged, err := mergeCartItems(items)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(merged))
	for i, it := range merged {
		ids[i] = it.VariantID
	}
	variants, err := s.uow.Products.GetVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]int, len(variants))
	for i := range variants {
		byID[variants[i].ID] = i
	}

	resp := &dto.QuoteResponse{
		Lines:        make([]dto.QuoteLine, 0, len(merged)),
		Currency:     s.currency,
		AllAvailable: true,
	}
	for _, it := range merged {
		line := dto.QuoteLine{VariantID: it.VariantID, Quantity: it.Quantity}

		idx, ok := byID[it.VariantID]
		if ok {
			v := &variants[idx]
			p := v.Product
			line.Size = v.Size
			line.Color = v.Color
			line.Stock = v.Stock
			if p != nil {
				line.ProductID = p.ID
				line.ProductName = p.Name
				line.ProductSlug = p.Slug
				if len(p.Images) > 0 {
					line.Image = p.Images[0]
				}
				line.Price = v.EffectivePrice(p)
				line.Available = p.IsActive && v.IsActive && v.Stock >= it.Quantity
			}
		}

		if line.Available {
			line.LineTotal = line.Price * int64(line.Quantity)
			resp.Total += line.LineTotal
		} else {
			resp.AllAvailable = false
		}
		resp.Lines = append(resp.Lines, line)
	}

	return resp, nil
}

// mergeCartItems 按首次出现顺序合并同一规格
func mergeCartItems(items []dto.CartItem) ([]dto.CartItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: 购物车为空", ErrInvalidInput)
	}

	merged := make([]dto.CartItem, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if it.VariantID <= 0 {
			return nil, fmt.Errorf("%w: 规格 ID 无效", ErrInvalidInput)
		}
		if it.Quantity < 1 || it.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: 数量必须在 1 到 %d 之间", ErrInvalidInput, MaxLineQuantity)
		}
		if i, ok := index[it.VariantID]; ok {
			merged[i].Quantity += it.Quantity
			if merged[i].Quantity > MaxLineQuantity {
				return nil, fmt.Errorf("%w: 数量必须在 1 到 %d 之间", ErrInvalidInput, MaxLineQuantity)
			}
			continue
		}
		index[it.VariantID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}
