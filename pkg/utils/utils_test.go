package utils

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Худи Oversize", "hudi-oversize"},
		{"  Футболка «Базовая» 2.0 ", "futbolka-bazovaya-2-0"},
		{"T-Shirt___Black", "t-shirt-black"},
		{"Щётка", "schetka"},
		{"!!!", "item"},
		{"", "item"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in, "item"))
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("black-hoodie-2"))
	assert.False(t, IsValidSlug("Black Hoodie"))
	assert.False(t, IsValidSlug("-lead"))
	assert.False(t, IsValidSlug(""))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1 499 ₽", FormatMoney(149900, "RUB"))
	assert.Equal(t, "123,45 ₽", FormatMoney(12345, "rub"))
	assert.Equal(t, "1 000 000 $", FormatMoney(100000000, "USD"))
	assert.Equal(t, "5 KZT", FormatMoney(500, "KZT"))
	assert.Equal(t, "0", FormatMoney(0, ""))
}

func TestRandomCodes(t *testing.T) {
	code, err := RandomDigits(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	link, err := RandomCode(6)
	require.NoError(t, err)
	assert.Len(t, link, 6)
	assert.NotContains(t, link, "0")
	assert.NotContains(t, link, "O")

	tok, err := RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	assert.Len(t, SHA256Hex(tok), 64)
	assert.NotEqual(t, tok, SHA256Hex(tok))
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withDeclaredSize 改写 PNG 的 IHDR 宽高并重算 CRC，像素数据不变
func withDeclaredSize(data []byte, w, h uint32) []byte {
	out := append([]byte(nil), data...)
	// 8 字节签名 + 4 长度 + 4 类型，宽高在 16..24，CRC 覆盖类型和数据 12..29
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestResizeToJPEG(t *testing.T) {
	t.Run("宽图缩小并保持比例", func(t *testing.T) {
		out, err := ResizeToJPEG(makePNG(t, 400, 200), 100)
		require.NoError(t, err)

		mime, err := DetectImageType(out)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mime)

		img, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 100, img.Bounds().Dx())
		assert.Equal(t, 50, img.Bounds().Dy())
	})

	t.Run("窄图不放大", func(t *testing.T) {
		out, err := ResizeToJPEG(makePNG(t, 80, 40), 100)
		require.NoError(t, err)

		img, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 80, img.Bounds().Dx())
	})

	t.Run("拒绝非图片内容", func(t *testing.T) {
		_, err := ResizeToJPEG([]byte("GIF89a not really"), 100)
		assert.ErrorIs(t, err, ErrUnsupportedImage)

		_, err = ResizeToJPEG([]byte("<html></html>"), 100)
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})

	t.Run("头部声明像素过多直接拒绝", func(t *testing.T) {
		bomb := withDeclaredSize(makePNG(t, 8, 8), 20000, 20000)
		_, err := ResizeToJPEG(bomb, 100)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})
}
