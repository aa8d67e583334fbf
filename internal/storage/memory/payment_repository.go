package memory

import (
	"context"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type paymentRepository struct {
	st *state
}

func (r *paymentRepository) GetByOrder(_ context.Context, orderID string) (domain.PaymentSession, error) {
	for _, session := range r.st.payments {
		if session.OrderID == orderID {
			return session, nil
		}
	}
	return domain.PaymentSession{}, domain.ErrPaymentNotFound
}

func (r *paymentRepository) GetByOrderForUpdate(ctx context.Context, orderID string) (domain.PaymentSession, error) {
	return r.GetByOrder(ctx, orderID)
}

func (r *paymentRepository) GetByRequestID(_ context.Context, requestID string) (domain.PaymentSession, error) {
	for _, session := range r.st.payments {
		if session.RequestID == requestID {
			return session, nil
		}
	}
	return domain.PaymentSession{}, domain.ErrPaymentNotFound
}

func (r *paymentRepository) Upsert(ctx context.Context, session domain.PaymentSession) (domain.PaymentSession, error) {
	session.CreatedAt = session.UpdatedAt
	if existing, err := r.GetByOrder(ctx, session.OrderID); err == nil {
		if existing.Status == domain.PaymentSessionCompleted {
			return domain.PaymentSession{}, domain.ErrAlreadyPaid
		}
		session.ID = existing.ID
		session.CreatedAt = existing.CreatedAt
	}

	session.Status = domain.PaymentSessionPending
	session.TransID = ""
	session.ResultCode = 0
	r.st.payments[session.ID] = session
	return session, nil
}

func (r *paymentRepository) Save(_ context.Context, session domain.PaymentSession) error {
	current, ok := r.st.payments[session.ID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	current.Status = session.Status
	current.TransID = session.TransID
	current.ResultCode = session.ResultCode
	current.UpdatedAt = session.UpdatedAt
	r.st.payments[session.ID] = current
	return nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
