package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	digitCharset = "0123456789"
	// 去掉易混淆的 0/O、1/I
	codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// RandomString 从 charset 中安全随机取 length 个字符
func RandomString(length int, charset string) (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// RandomDigits 数字验证码
func RandomDigits(length int) (string, error) {
	return RandomString(length, digitCharset)
}

// RandomCode 大写字母数字码（Telegram 绑定码）
func RandomCode(length int) (string, error) {
	return RandomString(length, codeCharset)
}

// RandomToken 返回 hex 编码的随机令牌
func RandomToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SHA256Hex 计算 SHA-256 摘要
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
