package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// IdempotencyRepository хранит ключи идемпотентности в таблице
// idempotency_keys вне бизнес-транзакций.
type IdempotencyRepository struct {
	q   querier
	now func() time.Time
}

func NewIdempotencyRepository(store *Store) *IdempotencyRepository {
	return &IdempotencyRepository{
		q:   store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Acquire вставляет ключ или перехватывает просроченный одним запросом:
// строку с живым сроком ON CONFLICT не трогает, и тогда читается владелец ключа.
func (r *IdempotencyRepository) Acquire(ctx context.Context, scope domain.IdempotencyScope, requestHash string, expiresAt time.Time) (domain.IdempotencyRecord, error) {
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return domain.IdempotencyRecord{}, err
	}
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now()
	res, err := r.q.ExecContext(opCtx, `
		INSERT INTO idempotency_keys (user_id, operation, key, request_hash, status, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,'processing',$5,$6,$6)
		ON CONFLICT (user_id, operation, key) DO UPDATE
		SET request_hash = EXCLUDED.request_hash,
		    status = 'processing',
		    http_status = NULL,
		    content_type = '',
		    response_body = NULL,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at,
		    updated_at = EXCLUDED.updated_at
		WHERE idempotency_keys.expires_at <= EXCLUDED.created_at
	`, scope.UserID, scope.Operation, scope.Key, requestHash, expiresAt, now)
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("acquire idempotency key: %w", err)
	}
	acquired, err := res.RowsAffected()
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("idempotency rows affected: %w", err)
	}
	if acquired == 1 {
		return domain.IdempotencyRecord{
			Scope:       scope,
			RequestHash: requestHash,
			Status:      domain.IdempotencyStatusProcessing,
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}

	existing, err := r.Get(ctx, scope)
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("read existing idempotency key: %w", err)
	}
	if existing.RequestHash != requestHash {
		return existing, domain.ErrIdempotencyHashMismatch
	}
	return existing, domain.ErrIdempotencyKeyAlreadyExists
}

func (r *IdempotencyRepository) Get(ctx context.Context, scope domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	scope = scope.Normalize()

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		record     = domain.IdempotencyRecord{Scope: scope}
		status     string
		httpStatus sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT request_hash, status, http_status, content_type, response_body, expires_at, created_at, updated_at
		FROM idempotency_keys
		WHERE user_id = $1 AND operation = $2 AND key = $3
	`, scope.UserID, scope.Operation, scope.Key).Scan(
		&record.RequestHash, &status, &httpStatus, &record.Response.ContentType, &record.Response.Body,
		&record.ExpiresAt, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
		}
		return domain.IdempotencyRecord{}, fmt.Errorf("get idempotency key: %w", err)
	}

	record.Status = domain.IdempotencyStatus(status)
	if !record.Status.Valid() {
		return domain.IdempotencyRecord{}, fmt.Errorf("invalid idempotency status %q for %s", status, scope)
	}
	if httpStatus.Valid {
		record.Response.HTTPStatus = int(httpStatus.Int64)
	}
	return record, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, scope domain.IdempotencyScope, status domain.IdempotencyStatus, resp domain.StoredResponse) error {
	if !status.Finished() {
		return fmt.Errorf("complete idempotency key with status %q: %w", status, domain.ErrInvalidRequest)
	}
	scope = scope.Normalize()

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE idempotency_keys
		SET status = $4,
		    http_status = $5,
		    content_type = $6,
		    response_body = $7,
		    updated_at = $8
		WHERE user_id = $1 AND operation = $2 AND key = $3
	`, scope.UserID, scope.Operation, scope.Key, string(status), resp.HTTPStatus, resp.ContentType, resp.Body, r.now())
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("idempotency rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrIdempotencyKeyNotFound
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `DELETE FROM idempotency_keys WHERE expires_at <= $1`
	args := []any{before}
	if limit > 0 {
		query = `
			DELETE FROM idempotency_keys
			WHERE (user_id, operation, key) IN (
				SELECT user_id, operation, key FROM idempotency_keys
				WHERE expires_at <= $1
				ORDER BY expires_at
				LIMIT $2
			)`
		args = append(args, limit)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("idempotency rows affected: %w", err)
	}
	return int(affected), nil
}

var _ domain.IdempotencyRepository = (*IdempotencyRepository)(nil)
