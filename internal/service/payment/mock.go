package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/gateway/momo"
)

// MockGateway — конфигурируемая заглушка провайдера для тестов и локального
// запуска без ключей MoMo. Подписывает и проверяет уведомления настоящим HMAC.
type MockGateway struct {
	Partner   string
	AccessKey string
	SecretKey string
	PayURL    string
	CreateErr error

	mu          sync.Mutex
	createCalls []momo.PaymentRequest
}

// NewMockGateway возвращает заглушку с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Partner:   "MOMO",
		AccessKey: "mock-access-key",
		SecretKey: "mock-secret-key",
		PayURL:    "https://test-payment.momo.vn/pay/mock",
	}
}

func (m *MockGateway) PartnerCode() string {
	return m.Partner
}

// CreatePayment возвращает настроенный результат и запоминает запрос.
func (m *MockGateway) CreatePayment(_ context.Context, req momo.PaymentRequest) (momo.CreateResponse, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, req)
	m.mu.Unlock()

	if m.CreateErr != nil {
		return momo.CreateResponse{}, m.CreateErr
	}
	return momo.CreateResponse{
		PartnerCode: m.Partner,
		OrderID:     req.RequestID,
		RequestID:   req.RequestID,
		Amount:      req.Amount,
		PayURL:      m.PayURL + "?orderId=" + req.RequestID,
	}, nil
}

func (m *MockGateway) VerifyNotification(n momo.Notification) error {
	if !momo.VerifyNotification(m.AccessKey, m.SecretKey, n) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Notify собирает подписанное уведомление, как его прислал бы провайдер.
func (m *MockGateway) Notify(requestID string, amount int64, resultCode int, transID int64) momo.Notification {
	n := momo.Notification{
		PartnerCode:  m.Partner,
		OrderID:      requestID,
		RequestID:    requestID,
		Amount:       amount,
		OrderInfo:    "mock payment",
		OrderType:    "momo_wallet",
		TransID:      transID,
		ResultCode:   resultCode,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1760000000000,
	}
	if resultCode != 0 {
		n.Message = "Transaction denied by user."
	}
	n.Signature = momo.SignNotification(m.AccessKey, m.SecretKey, n)
	return n
}

// CreateCalls возвращает копию принятых запросов.
func (m *MockGateway) CreateCalls() []momo.PaymentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]momo.PaymentRequest(nil), m.createCalls...)
}

var _ Gateway = (*MockGateway)(nil)
