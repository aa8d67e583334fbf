package domain

import "time"

// OrderEvent — полезная нагрузка событий order.* в outbox.
type OrderEvent struct {
	OrderID          string        `json:"order_id"`
	UserID           string        `json:"user_id"`
	Status           OrderStatus   `json:"status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	Currency         string        `json:"currency"`
	TotalMinor       int64         `json:"total_minor"`
	ShippingFeeMinor int64         `json:"shipping_fee_minor"`
	Reason           string        `json:"reason,omitempty"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

// NewOrderEvent снимает данные события с заказа.
func NewOrderEvent(order Order, reason string, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:          order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		PaymentMethod:    order.PaymentMethod,
		Currency:         order.Currency,
		TotalMinor:       order.TotalMinor,
		ShippingFeeMinor: order.ShippingFeeMinor,
		Reason:           reason,
		OccurredAt:       at,
	}
}

// PaymentEvent — полезная нагрузка событий payment.* в outbox.
type PaymentEvent struct {
	PaymentID   string               `json:"payment_id"`
	OrderID     string               `json:"order_id"`
	Status      PaymentSessionStatus `json:"status"`
	AmountMinor int64                `json:"amount_minor"`
	RequestID   string               `json:"request_id"`
	TransID     string               `json:"trans_id,omitempty"`
	ResultCode  int                  `json:"result_code"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// NewPaymentEvent снимает данные события с платёжной сессии.
func NewPaymentEvent(session PaymentSession, at time.Time) PaymentEvent {
	return PaymentEvent{
		PaymentID:   session.ID,
		OrderID:     session.OrderID,
		Status:      session.Status,
		AmountMinor: session.AmountMinor,
		RequestID:   session.RequestID,
		TransID:     session.TransID,
		ResultCode:  session.ResultCode,
		OccurredAt:  at,
	}
}
