// Package payment ведёт платёжную сессию заказа: создание платежа у
// провайдера, обработку webhook и отмену.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/gateway/momo"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
)

// Gateway — платёжный провайдер.
type Gateway interface {
	PartnerCode() string
	CreatePayment(ctx context.Context, req momo.PaymentRequest) (momo.CreateResponse, error)
	VerifyNotification(n momo.Notification) error
}

// Initiation — результат создания платежа: куда отправить покупателя.
type Initiation struct {
	PaymentID   string `json:"payment_id"`
	ApprovalURL string `json:"approval_url"`
	RequestID   string `json:"request_id"`
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics включает метрики платежей.
func WithMetrics(m *metrics.PaymentMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service координирует платёжные сессии с заказами.
type Service struct {
	tx      domain.TxManager
	gateway Gateway
	metrics *metrics.PaymentMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService создаёт платёжный сервис.
func NewService(tx domain.TxManager, gateway Gateway, opts ...Option) *Service {
	s := &Service{
		tx:      tx,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "payment")
	}
	return s
}

// InitiatePayment создаёт платёж у провайдера для pending-заказа владельца.
// Вызов провайдера идёт вне транзакции; сессия сохраняется только после
// успешного ответа, во второй транзакции с повторной блокировкой заказа.
func (s *Service) InitiatePayment(ctx context.Context, userID, orderID string) (Initiation, error) {
	var order domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		order, err = s.payableOrder(ctx, tx, userID, orderID, false)
		return err
	})
	if err != nil {
		s.metrics.RecordInitiation(domain.CodeOf(err))
		return Initiation{}, err
	}

	requestID := s.gateway.PartnerCode() + "-" + uuid.NewString()
	resp, err := s.gateway.CreatePayment(ctx, momo.PaymentRequest{
		RequestID: requestID,
		Amount:    order.AmountDue(),
		OrderInfo: "Order " + order.ID,
	})
	if err != nil {
		s.metrics.RecordInitiation(domain.CodeOf(err))
		return Initiation{}, err
	}

	var session domain.PaymentSession
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := s.payableOrder(ctx, tx, userID, orderID, true)
		if err != nil {
			return err
		}

		now := s.now()
		candidate := domain.PaymentSession{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			Method:      order.PaymentMethod,
			AmountMinor: order.AmountDue(),
			Status:      domain.PaymentSessionPending,
			RequestID:   requestID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if errs := candidate.Validate(); len(errs) > 0 {
			return fmt.Errorf("payment session: %w", errors.Join(errs...))
		}
		session, err = tx.Payments().Upsert(ctx, candidate)
		if err != nil {
			return err
		}
		return tx.Timeline().Append(ctx, domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelinePaymentInitiated,
			Reason:   requestID,
			Occurred: now,
		})
	})
	if err != nil {
		s.metrics.RecordInitiation(domain.CodeOf(err))
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   orderID,
			"request_id": requestID,
		}).Error("payment created at provider but session not stored")
		return Initiation{}, err
	}

	s.metrics.RecordInitiation("created")
	s.logger.WithFields(log.Fields{
		"order_id":   orderID,
		"payment_id": session.ID,
		"request_id": requestID,
		"amount":     session.AmountMinor,
	}).Info("payment initiated")

	return Initiation{
		PaymentID:   session.ID,
		ApprovalURL: resp.PayURL,
		RequestID:   requestID,
	}, nil
}

// payableOrder проверяет, что заказ принадлежит пользователю, ждёт оплаты
// онлайн и ещё не оплачен.
func (s *Service) payableOrder(ctx context.Context, tx domain.Tx, userID, orderID string, lock bool) (domain.Order, error) {
	get := tx.Orders().Get
	if lock {
		get = tx.Orders().GetForUpdate
	}
	order, err := get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.PaymentMethod != domain.PaymentMethodMoMo {
		return domain.Order{}, domain.ErrInvalidPaymentMethod
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Order{}, domain.ErrOrderInvalid
	}

	session, err := tx.Payments().GetByOrder(ctx, order.ID)
	switch {
	case err == nil:
		if session.Status == domain.PaymentSessionCompleted {
			return domain.Order{}, domain.ErrAlreadyPaid
		}
	case !errors.Is(err, domain.ErrPaymentNotFound):
		return domain.Order{}, fmt.Errorf("read payment session: %w", err)
	}
	return order, nil
}

// ConfirmPayment обрабатывает IPN провайдера. Повторное уведомление по уже
// завершённой сессии ничего не меняет и считается успехом.
func (s *Service) ConfirmPayment(ctx context.Context, n momo.Notification) error {
	fields := log.Fields{
		"request_id":  n.RequestID,
		"result_code": n.ResultCode,
		"trans_id":    n.TransID,
	}
	if err := s.gateway.VerifyNotification(n); err != nil {
		s.metrics.RecordConfirmation(metrics.ConfirmInvalidSignature)
		s.logger.WithFields(fields).WithField("security", true).Warn("payment notification signature mismatch")
		return err
	}

	outcome := metrics.ConfirmCompleted
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, session, err := lockSession(ctx, tx, n.RequestID)
		if err != nil {
			return err
		}

		switch session.Status {
		case domain.PaymentSessionCompleted:
			outcome = metrics.ConfirmDuplicate
			return nil
		case domain.PaymentSessionFailed:
			return domain.ErrPaymentFinalized
		}

		now := s.now()
		if !n.Succeeded() {
			outcome = metrics.ConfirmFailed
			session.ResultCode = n.ResultCode
			return s.failSession(ctx, tx, session, n.Message, now)
		}
		if n.Amount != session.AmountMinor {
			return domain.ErrAmountMismatch
		}
		if order.Status == domain.OrderStatusCancelled {
			return domain.ErrOrderNotPayable
		}

		session.TransID = strconv.FormatInt(n.TransID, 10)
		session.ResultCode = n.ResultCode
		if err := session.TransitionTo(domain.PaymentSessionCompleted, now); err != nil {
			return err
		}
		if err := tx.Payments().Save(ctx, session); err != nil {
			return fmt.Errorf("save payment session: %w", err)
		}
		if err := enqueuePaymentEvent(ctx, tx, session, domain.EventPaymentCompleted); err != nil {
			return err
		}
		if err := tx.Timeline().Append(ctx, domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelinePaymentCompleted,
			Reason:   session.TransID,
			Occurred: now,
		}); err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}

		if order.Status.IsTerminal() {
			return nil
		}
		if err := order.TransitionTo(domain.OrderStatusCompleted, now); err != nil {
			return err
		}
		if err := tx.Orders().Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		return tx.Timeline().Append(ctx, domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelineOrderCompleted,
			Reason:   "payment confirmed",
			Occurred: now,
		})
	})
	if err != nil {
		s.metrics.RecordConfirmation(metrics.ConfirmRejected)
		s.logger.WithError(err).WithFields(fields).Warn("payment notification rejected")
		return err
	}

	s.metrics.RecordConfirmation(outcome)
	s.logger.WithFields(fields).WithField("outcome", outcome).Info("payment notification processed")
	return nil
}

// CancelPayment закрывает pending-сессию как failed. reference — request id
// провайдера или id заказа; неизвестная ссылка не считается ошибкой.
func (s *Service) CancelPayment(ctx context.Context, reference string) error {
	if reference == "" {
		return domain.ErrInvalidRequest
	}

	outcome := "noop"
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, session, err := lockSession(ctx, tx, reference)
		if errors.Is(err, domain.ErrPaymentNotFound) {
			_, session, err = lockOrderSession(ctx, tx, reference)
		}
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotFound) || errors.Is(err, domain.ErrOrderNotFound) {
				return nil
			}
			return err
		}
		if session.Status != domain.PaymentSessionPending {
			return nil
		}

		outcome = "failed"
		return s.failSession(ctx, tx, session, "cancelled by customer", s.now())
	})
	if err != nil {
		s.metrics.RecordCancellation("error")
		return err
	}

	s.metrics.RecordCancellation(outcome)
	s.logger.WithFields(log.Fields{
		"reference": reference,
		"outcome":   outcome,
	}).Info("payment cancellation processed")
	return nil
}

// lockSession находит сессию по request id и блокирует сначала заказ, затем
// сессию, в том же порядке, что и отмена заказа. Сессия перечитывается под
// блокировкой: request id, перезаписанный повторной инициацией, даёт
// ErrPaymentNotFound.
func lockSession(ctx context.Context, tx domain.Tx, requestID string) (domain.Order, domain.PaymentSession, error) {
	found, err := tx.Payments().GetByRequestID(ctx, requestID)
	if err != nil {
		return domain.Order{}, domain.PaymentSession{}, err
	}
	order, session, err := lockOrderSession(ctx, tx, found.OrderID)
	if err != nil {
		return domain.Order{}, domain.PaymentSession{}, err
	}
	if session.RequestID != requestID {
		return domain.Order{}, domain.PaymentSession{}, domain.ErrPaymentNotFound
	}
	return order, session, nil
}

func lockOrderSession(ctx context.Context, tx domain.Tx, orderID string) (domain.Order, domain.PaymentSession, error) {
	order, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, domain.PaymentSession{}, err
	}
	session, err := tx.Payments().GetByOrderForUpdate(ctx, order.ID)
	if err != nil {
		return domain.Order{}, domain.PaymentSession{}, err
	}
	return order, session, nil
}

func (s *Service) failSession(ctx context.Context, tx domain.Tx, session domain.PaymentSession, reason string, at time.Time) error {
	if err := session.TransitionTo(domain.PaymentSessionFailed, at); err != nil {
		return err
	}
	if err := tx.Payments().Save(ctx, session); err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	if err := enqueuePaymentEvent(ctx, tx, session, domain.EventPaymentFailed); err != nil {
		return err
	}
	if err := tx.Timeline().Append(ctx, domain.TimelineEvent{
		OrderID:  session.OrderID,
		Type:     domain.TimelinePaymentFailed,
		Reason:   reason,
		Occurred: at,
	}); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	return nil
}

func enqueuePaymentEvent(ctx context.Context, tx domain.Tx, session domain.PaymentSession, eventType string) error {
	payload, err := json.Marshal(domain.NewPaymentEvent(session, session.UpdatedAt))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregatePayment,
		AggregateID:   session.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

var _ Gateway = (*momo.Client)(nil)
