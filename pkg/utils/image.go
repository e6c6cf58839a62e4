package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	JPEGQuality = 85
	// MaxImagePixels 解码前按头部声明的宽高拦截，避免小文件解出超大位图
	MaxImagePixels = 40_000_000
)

var (
	ErrUnsupportedImage = errors.New("仅支持 JPEG / PNG / WebP 图片")
	ErrImageTooLarge    = errors.New("图片尺寸过大")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// DetectImageType 按文件内容嗅探 MIME（不信任客户端的 Content-Type）
func DetectImageType(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	if !allowedImageTypes[mime] {
		return "", ErrUnsupportedImage
	}
	return mime, nil
}

// ResizeToJPEG 解码图片，宽度超过 maxWidth 时等比缩小（不放大），统一输出 JPEG
func ResizeToJPEG(data []byte, maxWidth int) ([]byte, error) {
	if _, err := DetectImageType(data); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析图片头失败: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, ErrImageTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}

	img = fitWidth(img, maxWidth)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("编码图片失败: %w", err)
	}
	return buf.Bytes(), nil
}

func fitWidth(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	// 高度传 0 保持宽高比
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}
