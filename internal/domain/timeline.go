package domain

import "time"

// Типы событий истории заказа.
const (
	TimelineOrderCreated     = "order_created"
	TimelineOrderCancelled   = "order_cancelled"
	TimelineOrderCompleted   = "order_completed"
	TimelineStatusOverridden = "status_overridden"
	TimelinePaymentInitiated = "payment_initiated"
	TimelinePaymentCompleted = "payment_completed"
	TimelinePaymentFailed    = "payment_failed"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
