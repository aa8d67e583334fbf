package domain

import (
	"errors"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ждёт оплаты или отмены.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — оплата подтверждена (или статус выставлен администратором).
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён пользователем или администратором.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo разрешает только pending -> completed | cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && (next == OrderStatusCompleted || next == OrderStatusCancelled)
}

// PaymentMethod — способ оплаты, выбранный при оформлении.
type PaymentMethod string

const (
	// PaymentMethodCOD — оплата при получении.
	PaymentMethodCOD PaymentMethod = "cod"
	// PaymentMethodMoMo — оплата через кошелёк MoMo.
	PaymentMethodMoMo PaymentMethod = "momo"
)

// Valid проверяет поддерживаемые способы оплаты.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodMoMo
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID        string
	VariantID string
	ProductID string
	// ProductName и UnitPriceMinor фиксируются на момент оформления
	// и не меняются при последующем изменении каталога.
	ProductName    string
	Qty            int32
	UnitPriceMinor int64
	CreatedAt      time.Time
}

// LineTotal возвращает qty * price.
func (i OrderItem) LineTotal() int64 {
	return int64(i.Qty) * i.UnitPriceMinor
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID            string
	UserID        string
	AddressID     string
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Currency      string
	// TotalMinor — сумма позиций без доставки.
	TotalMinor       int64
	ShippingFeeMinor int64
	Items            []OrderItem
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AmountDue — сумма к оплате вместе с доставкой.
func (o *Order) AmountDue() int64 {
	return o.TotalMinor + o.ShippingFeeMinor
}

// TransitionTo меняет статус с проверкой машины состояний.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrOrderStatusTransition
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

var (
	errOrderUserRequired    = errors.New("user_id is required")
	errOrderAddressRequired = errors.New("address_id is required")
	errOrderCurrency        = errors.New("currency is required")
	errOrderItemsRequired   = errors.New("order must contain at least one item")
	errOrderItemQty         = errors.New("item qty must be greater than zero")
	errOrderItemPrice       = errors.New("item price must be non-negative")
	errOrderTotalMismatch   = errors.New("order total does not match items sum")
	errOrderShippingFee     = errors.New("shipping fee must be non-negative")
)

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, errOrderUserRequired)
	}
	if o.AddressID == "" {
		errs = append(errs, errOrderAddressRequired)
	}
	if o.Currency == "" {
		errs = append(errs, errOrderCurrency)
	}
	if !o.PaymentMethod.Valid() {
		errs = append(errs, ErrInvalidPaymentMethod)
	}
	if len(o.Items) == 0 {
		errs = append(errs, errOrderItemsRequired)
	}
	if o.ShippingFeeMinor < 0 {
		errs = append(errs, errOrderShippingFee)
	}

	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, errOrderItemQty)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, errOrderItemPrice)
		}
		calc += item.LineTotal()
	}
	if calc != o.TotalMinor {
		errs = append(errs, errOrderTotalMismatch)
	}

	return errs
}

// ShippingPolicy — плоский тариф доставки с порогом бесплатной доставки.
type ShippingPolicy struct {
	FeeMinor           int64
	FreeThresholdMinor int64
}

// DefaultShippingPolicy: 30 000 при сумме ниже 1 000 000.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FeeMinor: 30_000, FreeThresholdMinor: 1_000_000}
}

// FeeFor возвращает стоимость доставки для суммы позиций.
func (p ShippingPolicy) FeeFor(totalMinor int64) int64 {
	if totalMinor < p.FreeThresholdMinor {
		return p.FeeMinor
	}
	return 0
}
