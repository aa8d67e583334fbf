package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// MaxLineQty — верхняя граница количества одной позиции корзины.
const MaxLineQty = 99

// LineView — позиция корзины с актуальными данными каталога.
type LineView struct {
	domain.CartLine
	ProductName    string
	UnitPriceMinor int64
	Available      bool
	InStock        int32
}

// View — содержимое корзины. SelectedTotalMinor считается по выбранным позициям
// и текущим ценам; итог заказа фиксируется только при оформлении.
type View struct {
	CartID             string
	Lines              []LineView
	SelectedTotalMinor int64
}

// Service управляет корзиной пользователя.
type Service struct {
	tx     domain.TxManager
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт сервис корзины.
func NewService(tx domain.TxManager, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		tx:     tx,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get возвращает корзину пользователя; отсутствующая корзина — пустая.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	var view View
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		cart, err := tx.Carts().GetByUser(ctx, userID)
		if errors.Is(err, domain.ErrCartNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}

		lines, err := tx.Carts().Lines(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}

		view.CartID = cart.ID
		view.Lines = make([]LineView, 0, len(lines))
		for _, line := range lines {
			lv := LineView{CartLine: line}
			rec, err := tx.Catalog().GetVariant(ctx, line.VariantID)
			switch {
			case err == nil:
				lv.ProductName = rec.ProductName
				lv.UnitPriceMinor = rec.UnitPriceMinor
				lv.Available = rec.Active && rec.Stock >= line.Qty
				lv.InStock = rec.Stock
			case errors.Is(err, domain.ErrVariantNotFound):
			default:
				return fmt.Errorf("read variant %s: %w", line.VariantID, err)
			}
			if line.Selected {
				view.SelectedTotalMinor += int64(line.Qty) * lv.UnitPriceMinor
			}
			view.Lines = append(view.Lines, lv)
		}
		return nil
	})
	return view, err
}

// AddItem кладёт вариант в корзину, создавая корзину при первом обращении.
// Повторное добавление того же варианта увеличивает количество.
func (s *Service) AddItem(ctx context.Context, userID, variantID string, qty int32) (domain.CartLine, error) {
	if qty < 1 || qty > MaxLineQty {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	var line domain.CartLine
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		rec, err := tx.Catalog().GetVariant(ctx, variantID)
		if err != nil {
			return fmt.Errorf("read variant: %w", err)
		}
		if !rec.Active {
			return domain.ErrProductUnavailable
		}

		cart, err := s.ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		line, err = tx.Carts().AddLine(ctx, domain.CartLine{
			ID:        uuid.NewString(),
			CartID:    cart.ID,
			VariantID: variantID,
			Qty:       qty,
			Selected:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("add cart line: %w", err)
		}
		if line.Qty > MaxLineQty {
			return domain.ErrInvalidQuantity
		}
		if line.Qty > rec.Stock {
			return domain.NewStockExceeded(rec.ProductName)
		}
		return nil
	})
	if err != nil {
		return domain.CartLine{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"variant_id": variantID,
		"qty":        line.Qty,
	}).Debug("cart line added")
	return line, nil
}

// UpdateItem меняет количество и/или отметку выбора позиции.
func (s *Service) UpdateItem(ctx context.Context, userID, lineID string, update domain.CartLineUpdate) (domain.CartLine, error) {
	if update.Qty == nil && update.Selected == nil {
		return domain.CartLine{}, domain.ErrInvalidRequest
	}
	if update.Qty != nil && (*update.Qty < 1 || *update.Qty > MaxLineQty) {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	var line domain.CartLine
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		cart, err := tx.Carts().GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		line, err = tx.Carts().GetLine(ctx, cart.ID, lineID)
		if err != nil {
			return err
		}

		if update.Qty != nil {
			rec, err := tx.Catalog().GetVariant(ctx, line.VariantID)
			if err != nil {
				return fmt.Errorf("read variant: %w", err)
			}
			if *update.Qty > rec.Stock {
				return domain.NewStockExceeded(rec.ProductName)
			}
			line.Qty = *update.Qty
		}
		if update.Selected != nil {
			line.Selected = *update.Selected
		}
		line.UpdatedAt = s.now()

		if err := tx.Carts().SaveLine(ctx, line); err != nil {
			return fmt.Errorf("save cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

// RemoveItem удаляет позицию из корзины пользователя.
func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		cart, err := tx.Carts().GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.Carts().GetLine(ctx, cart.ID, lineID); err != nil {
			return err
		}
		return tx.Carts().DeleteLines(ctx, cart.ID, []string{lineID})
	})
}

func (s *Service) ensureCart(ctx context.Context, tx domain.Tx, userID string) (domain.Cart, error) {
	cart, err := tx.Carts().GetByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}

	if err := tx.Carts().Create(ctx, domain.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: s.now()}); err != nil {
		return domain.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	// Create не перезаписывает корзину, созданную конкурентным запросом.
	return tx.Carts().GetByUser(ctx, userID)
}
