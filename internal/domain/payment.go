package domain

import (
	"errors"
	"time"
)

// PaymentSessionStatus описывает состояние попытки оплаты.
type PaymentSessionStatus string

const (
	// PaymentSessionPending — запрос создан у провайдера, ждём webhook.
	PaymentSessionPending PaymentSessionStatus = "pending"
	// PaymentSessionCompleted — провайдер подтвердил оплату.
	PaymentSessionCompleted PaymentSessionStatus = "completed"
	// PaymentSessionFailed — оплата отменена или отклонена.
	PaymentSessionFailed PaymentSessionStatus = "failed"
)

// CanTransitionTo разрешает только pending -> completed | failed.
func (s PaymentSessionStatus) CanTransitionTo(next PaymentSessionStatus) bool {
	return s == PaymentSessionPending && (next == PaymentSessionCompleted || next == PaymentSessionFailed)
}

// Valid проверяет, что статус известен.
func (s PaymentSessionStatus) Valid() bool {
	switch s {
	case PaymentSessionPending, PaymentSessionCompleted, PaymentSessionFailed:
		return true
	default:
		return false
	}
}

// PaymentSession — одна запись оплаты на заказ; повторная инициация
// обновляет её на месте с новым RequestID.
type PaymentSession struct {
	ID          string
	OrderID     string
	Method      PaymentMethod
	AmountMinor int64
	Status      PaymentSessionStatus
	// RequestID — ключ корреляции с провайдером (orderId/requestId в запросе).
	RequestID string
	// TransID — идентификатор транзакции провайдера, заполняется при подтверждении.
	TransID    string
	ResultCode int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TransitionTo меняет статус с проверкой машины состояний.
func (p *PaymentSession) TransitionTo(next PaymentSessionStatus, at time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return ErrPaymentFinalized
	}
	p.Status = next
	p.UpdatedAt = at
	return nil
}

var (
	errPaymentOrderRequired   = errors.New("order_id is required")
	errPaymentRequestRequired = errors.New("request_id is required")
	errPaymentAmountNegative  = errors.New("payment amount must be non-negative")
)

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *PaymentSession) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, errPaymentOrderRequired)
	}
	if p.RequestID == "" {
		errs = append(errs, errPaymentRequestRequired)
	}
	if p.AmountMinor < 0 {
		errs = append(errs, errPaymentAmountNegative)
	}
	if !p.Method.Valid() {
		errs = append(errs, ErrInvalidPaymentMethod)
	}

	return errs
}
