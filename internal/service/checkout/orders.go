package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Details — заказ вместе с историей и текущей платёжной сессией.
type Details struct {
	Order    domain.Order
	Timeline []domain.TimelineEvent
	Payment  *domain.PaymentSession
}

// CancelOrder отменяет заказ владельца, пока тот в статусе pending.
// Остатки при отмене не возвращаются.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	var cancelled domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return domain.ErrOrderNotFound
		}
		if order.Status.IsTerminal() {
			return domain.ErrOrderCannotBeCancelled
		}

		cancelled, err = s.applyStatus(ctx, tx, order, domain.OrderStatusCancelled, "cancelled by customer")
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordCancelled()
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"user_id":  userID,
	}).Info("order cancelled")
	return cancelled, nil
}

// AdminSetStatus выставляет статус вручную в пределах машины состояний.
func (s *Service) AdminSetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrInvalidRequest
	}

	var updated domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		updated, err = s.applyStatus(ctx, tx, order, status, "status set by admin")
		if err != nil {
			return err
		}
		return tx.Timeline().Append(ctx, domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelineStatusOverridden,
			Reason:   string(status),
			Occurred: updated.UpdatedAt,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordStatusOverride()
	if status == domain.OrderStatusCancelled {
		s.metrics.RecordCancelled()
	}
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
	}).Warn("order status overridden")
	return updated, nil
}

// applyStatus переводит заказ в next и пишет соответствующие события.
// При отмене незавершённая платёжная сессия закрывается как failed.
func (s *Service) applyStatus(ctx context.Context, tx domain.Tx, order domain.Order, next domain.OrderStatus, reason string) (domain.Order, error) {
	if err := order.TransitionTo(next, s.now()); err != nil {
		return domain.Order{}, err
	}
	if err := tx.Orders().Save(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}
	order.Version++

	eventType, timelineType := domain.EventOrderCompleted, domain.TimelineOrderCompleted
	if next == domain.OrderStatusCancelled {
		eventType, timelineType = domain.EventOrderCancelled, domain.TimelineOrderCancelled
		if err := s.failPendingPayment(ctx, tx, order); err != nil {
			return domain.Order{}, err
		}
	}

	if err := s.recordEvent(ctx, tx, order, eventType, timelineType, reason); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Service) failPendingPayment(ctx context.Context, tx domain.Tx, order domain.Order) error {
	session, err := tx.Payments().GetByOrderForUpdate(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil
		}
		return fmt.Errorf("read payment session: %w", err)
	}
	if session.Status != domain.PaymentSessionPending {
		return nil
	}

	if err := session.TransitionTo(domain.PaymentSessionFailed, order.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Payments().Save(ctx, session); err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}

	payload, err := json.Marshal(domain.NewPaymentEvent(session, order.UpdatedAt))
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregatePayment,
		AggregateID:   session.ID,
		EventType:     domain.EventPaymentFailed,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", domain.EventPaymentFailed, err)
	}
	return tx.Timeline().Append(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.TimelinePaymentFailed,
		Reason:   "order cancelled",
		Occurred: order.UpdatedAt,
	})
}

// GetOrder возвращает заказ владельцу или администратору. Чужой заказ
// для обычного пользователя неотличим от несуществующего.
func (s *Service) GetOrder(ctx context.Context, userID string, isAdmin bool, orderID string) (Details, error) {
	var details Details
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !isAdmin && order.UserID != userID {
			return domain.ErrOrderNotFound
		}

		timeline, err := tx.Timeline().List(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list timeline: %w", err)
		}

		details = Details{Order: order, Timeline: timeline}

		session, err := tx.Payments().GetByOrder(ctx, order.ID)
		switch {
		case err == nil:
			details.Payment = &session
		case !errors.Is(err, domain.ErrPaymentNotFound):
			return fmt.Errorf("read payment session: %w", err)
		}
		return nil
	})
	if err != nil {
		return Details{}, err
	}
	return details, nil
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (s *Service) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var orders []domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		orders, err = tx.Orders().ListByUser(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
