package paygate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 配置 ====================

// Config 支付网关配置
type Config struct {
	BaseURL       string
	APIKey        string
	ShopID        string
	WebhookSecret string
	SuccessURL    string
	FailURL       string
	Timeout       time.Duration
}

// ==================== 请求 / 响应 ====================

// InvoiceRequest 创建支付单
type InvoiceRequest struct {
	OrderID     string `json:"order_id"` // 我方草稿 ID，回调时原样带回
	Amount      int64  `json:"amount"`   // 最小货币单位
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Email       string `json:"email,omitempty"`
	SuccessURL  string `json:"success_url"`
	FailURL     string `json:"fail_url"`
	ShopID      string `json:"shop_id"`
}

// Invoice 网关返回的支付单
type Invoice struct {
	PaymentID  string `json:"id"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

type errorResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var ErrGateway = errors.New("支付网关不可用")

// ==================== Client ====================

// Client 支付网关 HTTP 客户端
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "storefront/1.0")

	return &Client{cfg: cfg, http: client}
}

// CreateInvoice 创建支付单，返回跳转地址
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if req.ShopID == "" {
		req.ShopID = c.cfg.ShopID
	}
	if req.SuccessURL == "" {
		req.SuccessURL = fillOrderID(c.cfg.SuccessURL, req.OrderID)
	}
	if req.FailURL == "" {
		req.FailURL = fillOrderID(c.cfg.FailURL, req.OrderID)
	}

	var inv Invoice
	var apiErr errorResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&inv).
		SetError(&apiErr).
		Post("/invoices")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("%w (Status %d): %s", ErrGateway, resp.StatusCode(), msg)
	}
	if inv.PaymentURL == "" || inv.PaymentID == "" {
		return nil, fmt.Errorf("%w: 响应缺少 id / payment_url: %s", ErrGateway, resp.String())
	}

	return &inv, nil
}

// WebhookSecret 回调签名密钥
func (c *Client) WebhookSecret() string {
	return c.cfg.WebhookSecret
}

// fillOrderID 支持在回跳地址中使用 {order_id} 占位符
func fillOrderID(tpl, orderID string) string {
	return strings.ReplaceAll(tpl, "{order_id}", orderID)
}
