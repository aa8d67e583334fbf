// Package checkout оформляет заказы: списывает остатки, фиксирует итоги
// и ведёт заказ по машине состояний pending → completed | cancelled.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/notification"
	"github.com/vladislavdragonenkov/shop/internal/service/inventory"
)

const (
	defaultCurrency      = "VND"
	defaultNotifyTimeout = 5 * time.Second
	defaultListLimit     = 50
	maxListLimit         = 100
)

// Config — параметры оформления, загружаемые при старте.
type Config struct {
	Shipping      domain.ShippingPolicy
	Currency      string
	NotifyTimeout time.Duration
}

// DefaultConfig возвращает тариф доставки и валюту по умолчанию.
func DefaultConfig() Config {
	return Config{
		Shipping:      domain.DefaultShippingPolicy(),
		Currency:      defaultCurrency,
		NotifyTimeout: defaultNotifyTimeout,
	}
}

// Option настраивает Service.
type Option func(*Service)

// WithNotifier задаёт канал подтверждений заказа.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics включает метрики оформления.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service — оркестратор оформления заказа. Состояния между запросами не
// хранит: всё читается и пишется через одну транзакцию на операцию.
type Service struct {
	tx       domain.TxManager
	ledger   *inventory.Ledger
	cfg      Config
	notifier notification.Notifier
	metrics  *metrics.CheckoutMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт оркестратор.
func NewService(tx domain.TxManager, ledger *inventory.Ledger, cfg Config, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}

	s := &Service{
		tx:     tx,
		ledger: ledger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "checkout")
	}
	if s.ledger == nil {
		s.ledger = inventory.NewLedger(s.logger)
	}
	if s.notifier == nil {
		s.notifier = notification.NewLogNotifier(s.logger)
	}
	return s
}

// Placed — результат оформления: заказ и адрес доставки.
type Placed struct {
	Order   domain.Order
	Address domain.Address
	// SoldOut — варианты, остаток которых этим заказом дошёл до нуля.
	SoldOut []string
}

// lineRequest — одна позиция к списанию; cartLineID пуст для покупки в один клик.
type lineRequest struct {
	variantID  string
	qty        int32
	cartLineID string
}

// CreateOrderFromCart оформляет заказ из выбранных позиций корзины.
func (s *Service) CreateOrderFromCart(ctx context.Context, userID, addressID string, method domain.PaymentMethod) (Placed, error) {
	return s.place(ctx, metrics.SourceCart, userID, addressID, method, func(ctx context.Context, tx domain.Tx) ([]lineRequest, func() error, error) {
		cart, err := tx.Carts().GetByUser(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		lines, err := tx.Carts().SelectedLines(ctx, cart.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load selected lines: %w", err)
		}
		if len(lines) == 0 {
			return nil, nil, domain.ErrCartEmpty
		}

		requests := make([]lineRequest, 0, len(lines))
		ids := make([]string, 0, len(lines))
		for _, line := range lines {
			requests = append(requests, lineRequest{variantID: line.VariantID, qty: line.Qty, cartLineID: line.ID})
			ids = append(ids, line.ID)
		}

		clearCart := func() error {
			if err := tx.Carts().DeleteLines(ctx, cart.ID, ids); err != nil {
				return fmt.Errorf("clear cart lines: %w", err)
			}
			return nil
		}
		return requests, clearCart, nil
	})
}

// BuyNow оформляет заказ из одной позиции, не трогая корзину.
func (s *Service) BuyNow(ctx context.Context, userID, variantID string, qty int32, addressID string, method domain.PaymentMethod) (Placed, error) {
	if variantID == "" {
		return Placed{}, domain.ErrInvalidRequest
	}
	if qty < 1 {
		return Placed{}, domain.ErrInvalidQuantity
	}
	return s.place(ctx, metrics.SourceBuyNow, userID, addressID, method, func(context.Context, domain.Tx) ([]lineRequest, func() error, error) {
		return []lineRequest{{variantID: variantID, qty: qty}}, nil, nil
	})
}

type lineLoader func(ctx context.Context, tx domain.Tx) (lines []lineRequest, afterCreate func() error, err error)

func (s *Service) place(ctx context.Context, source, userID, addressID string, method domain.PaymentMethod, load lineLoader) (Placed, error) {
	start := time.Now()
	if !method.Valid() {
		s.metrics.RecordCheckout(source, domain.CodeOf(domain.ErrInvalidPaymentMethod), time.Since(start))
		return Placed{}, domain.ErrInvalidPaymentMethod
	}

	var (
		placed Placed
		user   domain.User
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		lines, afterCreate, err := load(ctx, tx)
		if err != nil {
			return err
		}

		addr, err := s.ownedAddress(ctx, tx, userID, addressID)
		if err != nil {
			return err
		}

		now := s.now()
		order := domain.Order{
			ID:            uuid.NewString(),
			UserID:        userID,
			AddressID:     addr.ID,
			Status:        domain.OrderStatusPending,
			PaymentMethod: method,
			Currency:      s.cfg.Currency,
			Items:         make([]domain.OrderItem, 0, len(lines)),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		// Позиции резервируются последовательно: отказ на любой из них
		// откатывает все предыдущие списания вместе с транзакцией.
		var soldOut []string
		for _, line := range lines {
			res, err := s.ledger.Reserve(ctx, tx, line.variantID, line.qty)
			if err != nil {
				return err
			}
			if res.StockAfter == 0 {
				soldOut = append(soldOut, res.VariantID)
			}
			item := res.OrderItem()
			item.ID = uuid.NewString()
			item.CreatedAt = now
			order.Items = append(order.Items, item)
			order.TotalMinor += item.LineTotal()
		}
		order.ShippingFeeMinor = s.cfg.Shipping.FeeFor(order.TotalMinor)

		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return fmt.Errorf("order invariants: %w", errors.Join(errs...))
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if afterCreate != nil {
			if err := afterCreate(); err != nil {
				return err
			}
		}

		if err := s.recordEvent(ctx, tx, order, domain.EventOrderCreated, domain.TimelineOrderCreated, source); err != nil {
			return err
		}

		user, err = tx.Users().Get(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("read user: %w", err)
		}

		placed = Placed{Order: order, Address: addr, SoldOut: soldOut}
		return nil
	})
	if err != nil {
		if domain.IsStockExceeded(err) {
			s.metrics.RecordStockRejection()
		}
		s.metrics.RecordCheckout(source, domain.CodeOf(err), time.Since(start))
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"source":  source,
		}).Info("checkout rejected")
		return Placed{}, err
	}

	s.metrics.RecordCheckout(source, "created", time.Since(start))
	s.metrics.RecordEvents(1, 1)
	s.logger.WithFields(log.Fields{
		"order_id": placed.Order.ID,
		"user_id":  userID,
		"total":    placed.Order.TotalMinor,
		"shipping": placed.Order.ShippingFeeMinor,
		"method":   placed.Order.PaymentMethod,
	}).Info("order created")
	if len(placed.SoldOut) > 0 {
		s.logger.WithFields(log.Fields{
			"order_id": placed.Order.ID,
			"variants": placed.SoldOut,
		}).Warn("variants sold out")
	}

	s.notifyCreated(ctx, placed.Order, user)
	return placed, nil
}

func (s *Service) ownedAddress(ctx context.Context, tx domain.Tx, userID, addressID string) (domain.Address, error) {
	if addressID == "" {
		return domain.Address{}, domain.ErrInvalidAddress
	}
	addr, err := tx.Addresses().Get(ctx, addressID)
	if err != nil {
		if errors.Is(err, domain.ErrAddressNotFound) {
			return domain.Address{}, domain.ErrInvalidAddress
		}
		return domain.Address{}, fmt.Errorf("read address: %w", err)
	}
	if addr.UserID != userID {
		return domain.Address{}, domain.ErrInvalidAddress
	}
	return addr, nil
}

// notifyCreated отправляет подтверждение после commit. Отмена запроса
// не прерывает отправку; ограничивает её только NotifyTimeout.
func (s *Service) notifyCreated(ctx context.Context, order domain.Order, user domain.User) {
	if user.Email == "" {
		s.logger.WithField("order_id", order.ID).Debug("no email on file, confirmation skipped")
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.notifier.SendOrderConfirmation(notifyCtx, notification.NewOrderConfirmation(order, user)); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("order confirmation failed")
	}
}

func (s *Service) recordEvent(ctx context.Context, tx domain.Tx, order domain.Order, eventType, timelineType, reason string) error {
	payload, err := json.Marshal(domain.NewOrderEvent(order, reason, order.UpdatedAt))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	if err := tx.Timeline().Append(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     timelineType,
		Reason:   reason,
		Occurred: order.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	return nil
}
