package domain

import (
	"strings"
	"time"
)

// IdempotencyStatus — стадия обработки запроса под ключом.
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusDone       IdempotencyStatus = "done"
	// IdempotencyStatusFailed — запрос упал с 5xx; ответ тоже повторяется.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// Finished сообщает, что ответ сохранён и его можно отдать повторно.
func (s IdempotencyStatus) Finished() bool {
	return s == IdempotencyStatusDone || s == IdempotencyStatusFailed
}

// IdempotencyScope — ключ клиента в пространстве пользователя и операции.
// Один и тот же Idempotency-Key у разных покупателей или для разных
// операций не пересекается.
type IdempotencyScope struct {
	UserID    string
	Operation string
	Key       string
}

// Normalize убирает пробелы по краям всех частей.
func (s IdempotencyScope) Normalize() IdempotencyScope {
	return IdempotencyScope{
		UserID:    strings.TrimSpace(s.UserID),
		Operation: strings.TrimSpace(s.Operation),
		Key:       strings.TrimSpace(s.Key),
	}
}

// Validate требует ключ и операцию. Пустой UserID допустим для анонимных
// вызовов, хотя API такие запросы до middleware не пропускает.
func (s IdempotencyScope) Validate() error {
	if s.Key == "" {
		return ErrIdempotencyKeyRequired
	}
	if s.Operation == "" {
		return ErrIdempotencyOperationRequired
	}
	return nil
}

func (s IdempotencyScope) String() string {
	return s.UserID + "/" + s.Operation + "/" + s.Key
}

// StoredResponse — ответ, сохранённый для повторной выдачи.
type StoredResponse struct {
	HTTPStatus  int
	ContentType string
	Body        []byte
}

// IdempotencyRecord — состояние ключа в хранилище.
type IdempotencyRecord struct {
	Scope       IdempotencyScope
	RequestHash string
	Status      IdempotencyStatus
	Response    StoredResponse
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired — срок жизни ключа истёк к моменту now; такой ключ можно занять заново.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
