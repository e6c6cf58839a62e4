package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("编码测试图片失败: %v", err)
	}
	return buf.Bytes()
}

func newLocalStorageService(t *testing.T, maxBytes int64, maxWidth int) (*StorageService, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewStorageService(StorageConfig{
		Provider:  "local",
		LocalDir:  dir,
		PublicURL: "/uploads",
		BasePath:  "img",
		MaxBytes:  maxBytes,
		MaxWidth:  maxWidth,
	})
	if err != nil {
		t.Fatalf("NewStorageService() error = %v", err)
	}
	return svc, dir
}

func TestNewStorageService_InvalidProvider(t *testing.T) {
	_, err := NewStorageService(StorageConfig{Provider: "invalid"})
	if err == nil {
		t.Error("期望返回错误，但未返回")
	}
}

func TestNewStorageService_S3RequiresBucket(t *testing.T) {
	_, err := NewStorageService(StorageConfig{Provider: "s3"})
	if err == nil {
		t.Error("缺少 bucket 时应返回错误")
	}
}

func TestStorageService_UploadImage(t *testing.T) {
	svc, dir := newLocalStorageService(t, 1<<20, 100)
	ctx := context.Background()

	resp, err := svc.UploadImage(ctx, testPNG(t, 300, 150), "Photo.PNG")
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if !strings.HasPrefix(resp.URL, "/uploads/img/") || !strings.HasSuffix(resp.URL, ".jpg") {
		t.Errorf("URL = %s, want /uploads/img/.../*.jpg", resp.URL)
	}

	path := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(resp.URL, "/uploads/")))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("文件未写入: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("保存的文件不是合法图片: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("尺寸 = %v, want 100x50", img.Bounds().Size())
	}

	if err := svc.Delete(ctx, resp.URL); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("Delete() 后文件仍然存在")
	}
	// 重复删除不报错
	if err := svc.Delete(ctx, resp.URL); err != nil {
		t.Errorf("重复 Delete() error = %v", err)
	}
}

func TestStorageService_UploadImage_Rejects(t *testing.T) {
	svc, _ := newLocalStorageService(t, 64, 100)
	ctx := context.Background()

	if _, err := svc.UploadImage(ctx, bytes.Repeat([]byte{1}, 65), "big.png"); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("超出大小 err = %v, want ErrFileTooLarge", err)
	}

	svc, _ = newLocalStorageService(t, 1<<20, 100)
	if _, err := svc.UploadImage(ctx, []byte("%PDF-1.4 fake"), "doc.pdf"); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("非图片 err = %v, want ErrUnsupportedImage", err)
	}
}

func TestLocalStorage_DeleteRejectsForeignURL(t *testing.T) {
	svc, _ := newLocalStorageService(t, 1<<20, 100)
	if err := svc.Delete(context.Background(), "https://cdn.example/x.jpg"); err == nil {
		t.Error("非本地 URL 应返回错误")
	}
	if err := svc.Delete(context.Background(), "/uploads/../etc/passwd"); err == nil {
		t.Error("路径穿越应返回错误")
	}
}

func TestS3Storage_Upload(t *testing.T) {
	bucket := os.Getenv("AWS_BUCKET")
	if bucket == "" {
		t.Skip("跳过: 需要设置 AWS_BUCKET 环境变量")
	}

	svc, err := NewStorageService(StorageConfig{
		Provider:  "s3",
		Bucket:    bucket,
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:  os.Getenv("AWS_ENDPOINT"),
		BasePath:  "test",
	})
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	ctx := context.Background()
	resp, err := svc.UploadImage(ctx, testPNG(t, 20, 20), "s3_test.png")
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	t.Logf("上传成功: %s", resp.URL)

	if err := svc.Delete(ctx, resp.URL); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}
