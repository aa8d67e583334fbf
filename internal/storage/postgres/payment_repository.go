package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const paymentColumns = `id, order_id, method, amount_minor, status, request_id, trans_id, result_code, created_at, updated_at`

type paymentRepository struct {
	q querier
}

func (r *paymentRepository) GetByOrder(ctx context.Context, orderID string) (domain.PaymentSession, error) {
	return r.getOne(ctx, `WHERE order_id = $1`, orderID)
}

func (r *paymentRepository) GetByOrderForUpdate(ctx context.Context, orderID string) (domain.PaymentSession, error) {
	return r.getOne(ctx, `WHERE order_id = $1 FOR UPDATE`, orderID)
}

func (r *paymentRepository) GetByRequestID(ctx context.Context, requestID string) (domain.PaymentSession, error) {
	return r.getOne(ctx, `WHERE request_id = $1`, requestID)
}

// Upsert держит одну сессию на заказ: повторная инициация перезаписывает
// request_id и сбрасывает статус в pending, кроме уже завершённой сессии.
func (r *paymentRepository) Upsert(ctx context.Context, session domain.PaymentSession) (domain.PaymentSession, error) {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO payment_sessions (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,'pending',$5,'',0,$6,$6)
		ON CONFLICT (order_id) DO UPDATE
		SET method = EXCLUDED.method,
		    amount_minor = EXCLUDED.amount_minor,
		    status = 'pending',
		    request_id = EXCLUDED.request_id,
		    trans_id = '',
		    result_code = 0,
		    updated_at = EXCLUDED.updated_at
		WHERE payment_sessions.status <> 'completed'
		RETURNING id, created_at
	`,
		session.ID, session.OrderID, string(session.Method), session.AmountMinor, session.RequestID, session.UpdatedAt,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentSession{}, domain.ErrAlreadyPaid
		}
		return domain.PaymentSession{}, fmt.Errorf("upsert payment session: %w", err)
	}

	session.Status = domain.PaymentSessionPending
	session.TransID = ""
	session.ResultCode = 0
	return session, nil
}

func (r *paymentRepository) Save(ctx context.Context, session domain.PaymentSession) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE payment_sessions
		SET status = $2,
		    trans_id = $3,
		    result_code = $4,
		    updated_at = $5
		WHERE id = $1
	`, session.ID, string(session.Status), session.TransID, session.ResultCode, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) getOne(ctx context.Context, where string, arg string) (domain.PaymentSession, error) {
	var (
		session domain.PaymentSession
		method  string
		status  string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_sessions
		`+where, arg).Scan(
		&session.ID, &session.OrderID, &method, &session.AmountMinor, &status,
		&session.RequestID, &session.TransID, &session.ResultCode, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentSession{}, domain.ErrPaymentNotFound
		}
		return domain.PaymentSession{}, fmt.Errorf("select payment session: %w", err)
	}

	session.Method = domain.PaymentMethod(method)
	session.Status = domain.PaymentSessionStatus(status)
	if !session.Status.Valid() {
		return domain.PaymentSession{}, fmt.Errorf("invalid payment session status %q for %s", status, session.ID)
	}
	return session, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
