package domain

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибки по способу обработки на границе API.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindSignature    Kind = "signature"
	KindGateway      Kind = "gateway"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error — бизнес-ошибка со стабильным машинным кодом.
// Значения используются как sentinel и сравниваются через errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is сравнивает ошибки по коду, чтобы уточнённые копии sentinel
// (например, с именем товара) совпадали с ним через errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrInvalidRequest — некорректные входные данные.
	ErrInvalidRequest = newError(KindValidation, "invalid_request", "invalid request")
	// ErrCartNotFound возвращается, если у пользователя ещё нет корзины.
	ErrCartNotFound = newError(KindNotFound, "cart_not_found", "cart not found")
	// ErrCartEmpty возвращается, если в корзине нет выбранных позиций.
	ErrCartEmpty = newError(KindValidation, "cart_empty", "cart has no selected items")
	// ErrCartLineNotFound — позиция корзины не найдена или принадлежит другой корзине.
	ErrCartLineNotFound = newError(KindNotFound, "cart_item_not_found", "cart item not found")
	// ErrInvalidAddress — адрес не найден или принадлежит другому пользователю.
	ErrInvalidAddress = newError(KindValidation, "invalid_address", "invalid shipping address")
	// ErrAddressNotFound — адрес отсутствует в адресной книге.
	ErrAddressNotFound = newError(KindNotFound, "address_not_found", "address not found")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = newError(KindNotFound, "user_not_found", "user not found")
	// ErrVariantNotFound — вариант товара отсутствует в каталоге.
	ErrVariantNotFound = newError(KindNotFound, "variant_not_found", "product variant not found")
	// ErrProductUnavailable — товар снят с продажи.
	ErrProductUnavailable = newError(KindValidation, "product_unavailable", "product is not available")
	// ErrInvalidQuantity — количество должно быть не меньше единицы.
	ErrInvalidQuantity = newError(KindValidation, "invalid_quantity", "quantity must be at least 1")
	// ErrStockExceeded — запрошено больше, чем есть на складе. Используйте NewStockExceeded.
	ErrStockExceeded = newError(KindConflict, "stock_exceeded", "requested quantity exceeds available stock")
	// ErrInvalidPaymentMethod — неизвестный способ оплаты.
	ErrInvalidPaymentMethod = newError(KindValidation, "invalid_payment_method", "unsupported payment method")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = newError(KindNotFound, "order_not_found", "order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = newError(KindConflict, "order_version_conflict", "order version conflict")
	// ErrOrderCannotBeCancelled — отменить можно только заказ в статусе pending.
	ErrOrderCannotBeCancelled = newError(KindConflict, "order_cannot_be_cancelled", "only pending orders can be cancelled")
	// ErrOrderStatusTransition — переход статуса запрещён машиной состояний.
	ErrOrderStatusTransition = newError(KindConflict, "invalid_status_transition", "order status transition is not allowed")
	// ErrOrderInvalid — заказ нельзя оплатить (не pending).
	ErrOrderInvalid = newError(KindValidation, "order_invalid", "order is not awaiting payment")
	// ErrAlreadyPaid — по заказу уже есть завершённая оплата.
	ErrAlreadyPaid = newError(KindConflict, "already_paid", "order is already paid")
	// ErrOrderNotPayable — оплата пришла по отменённому заказу.
	ErrOrderNotPayable = newError(KindConflict, "order_not_payable", "order can no longer be paid")
	// ErrPaymentNotFound — платёжная сессия не найдена.
	ErrPaymentNotFound = newError(KindNotFound, "payment_not_found", "payment not found")
	// ErrPaymentFinalized — сессия уже в терминальном статусе failed.
	ErrPaymentFinalized = newError(KindConflict, "payment_finalized", "payment session is already finalized")
	// ErrAmountMismatch — сумма уведомления не совпадает с суммой сессии.
	ErrAmountMismatch = newError(KindValidation, "amount_mismatch", "payment amount does not match")
	// ErrInvalidSignature — подпись webhook не сошлась.
	ErrInvalidSignature = newError(KindSignature, "invalid_signature", "invalid payment signature")
	// ErrPaymentGateway — сетевая ошибка или некорректный ответ провайдера.
	ErrPaymentGateway = newError(KindGateway, "payment_gateway_error", "payment gateway error")
	// ErrUnauthorized — нет или невалиден токен.
	ErrUnauthorized = newError(KindUnauthorized, "unauthorized", "authentication required")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = newError(KindForbidden, "forbidden", "access denied")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyOperationRequired — ключ без операции API.
	ErrIdempotencyOperationRequired = errors.New("idempotency operation is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrIdempotencyKeyNotFound — запись по ключу не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// NewStockExceeded возвращает ErrStockExceeded с именем товара в сообщении.
func NewStockExceeded(productName string) error {
	return &Error{
		Kind:    ErrStockExceeded.Kind,
		Code:    ErrStockExceeded.Code,
		Message: fmt.Sprintf("%s: %s", ErrStockExceeded.Message, productName),
	}
}

// KindOf возвращает класс ошибки; неизвестные ошибки считаются внутренними.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf возвращает машинный код ошибки.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsIdempotencyConflict проверяет, что ключ уже занят.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}

// IsStockExceeded проверяет, что операция упала на нехватке остатков.
func IsStockExceeded(err error) bool {
	return errors.Is(err, ErrStockExceeded)
}
