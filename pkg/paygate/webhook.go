package paygate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// 回调中的支付状态
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusPending = "pending"
)

var ErrInvalidWebhook = errors.New("无效的支付回调")

// WebhookClaims 回调 JWT 载荷
type WebhookClaims struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	jwt.RegisteredClaims
}

// ExtractToken 回调体可以是裸 JWT 或 {"token": "..."}
func ExtractToken(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, "{") {
		var wrapper struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
			return ""
		}
		return strings.TrimSpace(wrapper.Token)
	}
	return strings.Trim(raw, `"`)
}

// ParseWebhook 校验 HS256 签名并解析载荷
func ParseWebhook(body []byte, secret string) (*WebhookClaims, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: 未配置签名密钥", ErrInvalidWebhook)
	}

	tokenString := ExtractToken(body)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: 缺少 token", ErrInvalidWebhook)
	}

	claims := &WebhookClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if !token.Valid {
		return nil, ErrInvalidWebhook
	}

	if claims.OrderID == "" {
		return nil, fmt.Errorf("%w: 缺少 order_id", ErrInvalidWebhook)
	}
	switch claims.Status {
	case StatusSuccess, StatusFail, StatusPending:
	default:
		return nil, fmt.Errorf("%w: 未知状态 %q", ErrInvalidWebhook, claims.Status)
	}

	return claims, nil
}

// SignWebhook 生成回调 token（联调和测试用）
func SignWebhook(claims WebhookClaims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
