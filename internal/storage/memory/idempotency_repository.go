package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// IdempotencyRepository держит ключи идемпотентности в памяти процесса.
// Живёт отдельно от Store: ответы сохраняются после commit бизнес-транзакции.
type IdempotencyRepository struct {
	mu   sync.Mutex
	keys map[domain.IdempotencyScope]domain.IdempotencyRecord
	now  func() time.Time
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{
		keys: make(map[domain.IdempotencyScope]domain.IdempotencyRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *IdempotencyRepository) Acquire(_ context.Context, scope domain.IdempotencyScope, requestHash string, expiresAt time.Time) (domain.IdempotencyRecord, error) {
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return domain.IdempotencyRecord{}, err
	}
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.keys[scope]; ok && !existing.Expired(now) {
		if existing.RequestHash != requestHash {
			return copyRecord(existing), domain.ErrIdempotencyHashMismatch
		}
		return copyRecord(existing), domain.ErrIdempotencyKeyAlreadyExists
	}

	record := domain.IdempotencyRecord{
		Scope:       scope,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.keys[scope] = record
	return record, nil
}

func (r *IdempotencyRepository) Get(_ context.Context, scope domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.keys[scope.Normalize()]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return copyRecord(record), nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, scope domain.IdempotencyScope, status domain.IdempotencyStatus, resp domain.StoredResponse) error {
	if !status.Finished() {
		return domain.ErrInvalidRequest
	}
	scope = scope.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.keys[scope]
	if !ok {
		return domain.ErrIdempotencyKeyNotFound
	}
	record.Status = status
	record.Response = resp
	record.Response.Body = append([]byte(nil), resp.Body...)
	record.UpdatedAt = r.now()
	r.keys[scope] = record
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for scope, record := range r.keys {
		if limit > 0 && removed >= limit {
			break
		}
		if record.Expired(before) {
			delete(r.keys, scope)
			removed++
		}
	}
	return removed, nil
}

func copyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.Response.Body = append([]byte(nil), src.Response.Body...)
	return dst
}

var _ domain.IdempotencyRepository = (*IdempotencyRepository)(nil)
