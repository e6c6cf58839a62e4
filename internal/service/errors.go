package service

import (
	"errors"

	"storefront_v1_202610/internal/api/dto"
)

// ==================== 通用错误 ====================

var (
	ErrInvalidInput     = errors.New("参数错误")
	ErrFileTooLarge     = errors.New("文件过大")
	ErrUnsupportedImage = errors.New("仅支持 JPEG / PNG / WebP 图片")
)

// UnavailableError 购物车中存在不可售的行
type UnavailableError struct {
	Lines []dto.QuoteLine
}

func (e *UnavailableError) Error() string {
	return ErrCartUnavailable.Error()
}

// Is 支持 errors.Is(err, ErrCartUnavailable)
func (e *UnavailableError) Is(target error) bool {
	return target == ErrCartUnavailable
}
