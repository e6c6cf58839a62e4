package service

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/internal/testutil"
	"storefront_v1_202610/pkg/paygate"
)

const testWebhookSecret = "whsec_test"

// fakeGateway 记录请求，不发起网络调用
type fakeGateway struct {
	mu       sync.Mutex
	requests []paygate.InvoiceRequest
	err      error
}

func (g *fakeGateway) CreateInvoice(_ context.Context, req paygate.InvoiceRequest) (*paygate.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &paygate.Invoice{
		PaymentID:  "pay_" + req.OrderID[:8],
		PaymentURL: "https://pay.example/" + req.OrderID,
		Status:     "created",
	}, nil
}

type sentMessage struct {
	ChatID int64
	Text   string
}

// fakeMessenger 收集发送的消息
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return m.err
}

func (m *fakeMessenger) Messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *fakeMessenger) To(chatID int64) []sentMessage {
	var out []sentMessage
	for _, msg := range m.Messages() {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// fakeSender 同步记录重置验证码
type fakeSender struct {
	chatID int64
	code   string
}

func (s *fakeSender) SendResetCode(chatID int64, code string) {
	s.chatID = chatID
	s.code = code
}

type testEnv struct {
	db        *gorm.DB
	uow       *repository.UnitOfWork
	gateway   *fakeGateway
	messenger *fakeMessenger
	notifier  *Notifier
	cart      *CartService
	payments  *PaymentService
	orders    *OrderService
}

const testAdminChat int64 = 999

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	uow := repository.NewUnitOfWork(db)
	gw := &fakeGateway{}
	msg := &fakeMessenger{}
	notifier := NewNotifier(msg, uow.Users, []int64{testAdminChat})
	cart := NewCartService(uow, "RUB")

	env := &testEnv{
		db:        db,
		uow:       uow,
		gateway:   gw,
		messenger: msg,
		notifier:  notifier,
		cart:      cart,
		payments: NewPaymentService(uow, cart, gw, notifier, PaymentConfig{
			Currency:      "RUB",
			WebhookSecret: testWebhookSecret,
		}),
		orders: NewOrderService(uow, notifier),
	}
	t.Cleanup(notifier.Wait)
	return env
}

func signedWebhook(t *testing.T, claims paygate.WebhookClaims) []byte {
	t.Helper()
	token, err := paygate.SignWebhook(claims, testWebhookSecret)
	if err != nil {
		t.Fatalf("签名回调失败: %v", err)
	}
	return []byte(token)
}
