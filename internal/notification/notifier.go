// Package notification доставляет пользователю подтверждение заказа.
// Доставка best-effort: ошибки логируются вызывающим и не влияют на заказ.
package notification

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// OrderConfirmation — данные письма-подтверждения.
type OrderConfirmation struct {
	OrderID          string               `json:"order_id"`
	UserID           string               `json:"user_id"`
	Email            string               `json:"email"`
	Name             string               `json:"name"`
	PaymentMethod    domain.PaymentMethod `json:"payment_method"`
	Currency         string               `json:"currency"`
	TotalMinor       int64                `json:"total_minor"`
	ShippingFeeMinor int64                `json:"shipping_fee_minor"`
	AmountDueMinor   int64                `json:"amount_due_minor"`
	Items            []Item               `json:"items"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Item — позиция в подтверждении.
type Item struct {
	ProductName    string `json:"product_name"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
}

// NewOrderConfirmation собирает подтверждение из зафиксированного заказа.
func NewOrderConfirmation(order domain.Order, user domain.User) OrderConfirmation {
	items := make([]Item, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, Item{ProductName: it.ProductName, Qty: it.Qty, UnitPriceMinor: it.UnitPriceMinor})
	}
	return OrderConfirmation{
		OrderID:          order.ID,
		UserID:           order.UserID,
		Email:            user.Email,
		Name:             user.Name,
		PaymentMethod:    order.PaymentMethod,
		Currency:         order.Currency,
		TotalMinor:       order.TotalMinor,
		ShippingFeeMinor: order.ShippingFeeMinor,
		AmountDueMinor:   order.AmountDue(),
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}

// Notifier отправляет подтверждение заказа.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

// LogNotifier только пишет подтверждение в лог; используется без Kafka.
type LogNotifier struct {
	logger *log.Entry
}

func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.New().WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.WithFields(log.Fields{
		"order_id":   msg.OrderID,
		"email":      msg.Email,
		"amount_due": msg.AmountDueMinor,
		"items":      len(msg.Items),
	}).Info("order confirmation")
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
