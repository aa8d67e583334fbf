package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type cartRepository struct {
	st *state
}

func (r *cartRepository) GetByUser(_ context.Context, userID string) (domain.Cart, error) {
	id, ok := r.st.cartByUser[userID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return r.st.carts[id], nil
}

func (r *cartRepository) Create(_ context.Context, cart domain.Cart) error {
	if _, ok := r.st.cartByUser[cart.UserID]; ok {
		return nil
	}
	r.st.carts[cart.ID] = cart
	r.st.cartByUser[cart.UserID] = cart.ID
	return nil
}

func (r *cartRepository) Lines(_ context.Context, cartID string) ([]domain.CartLine, error) {
	return r.collect(cartID, false), nil
}

func (r *cartRepository) SelectedLines(_ context.Context, cartID string) ([]domain.CartLine, error) {
	return r.collect(cartID, true), nil
}

func (r *cartRepository) GetLine(_ context.Context, cartID, lineID string) (domain.CartLine, error) {
	line, ok := r.st.cartLines[lineID]
	if !ok || line.CartID != cartID {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	return line, nil
}

func (r *cartRepository) AddLine(_ context.Context, line domain.CartLine) (domain.CartLine, error) {
	for id, existing := range r.st.cartLines {
		if existing.CartID != line.CartID || existing.VariantID != line.VariantID {
			continue
		}
		existing.Qty += line.Qty
		existing.Selected = line.Selected
		existing.UpdatedAt = line.UpdatedAt
		r.st.cartLines[id] = existing
		return existing, nil
	}

	r.st.cartLines[line.ID] = line
	return line, nil
}

func (r *cartRepository) SaveLine(_ context.Context, line domain.CartLine) error {
	current, ok := r.st.cartLines[line.ID]
	if !ok || current.CartID != line.CartID {
		return domain.ErrCartLineNotFound
	}
	r.st.cartLines[line.ID] = line
	return nil
}

func (r *cartRepository) DeleteLines(_ context.Context, cartID string, lineIDs []string) error {
	for _, id := range lineIDs {
		if line, ok := r.st.cartLines[id]; ok && line.CartID == cartID {
			delete(r.st.cartLines, id)
		}
	}
	return nil
}

func (r *cartRepository) collect(cartID string, selectedOnly bool) []domain.CartLine {
	lines := make([]domain.CartLine, 0)
	for _, line := range r.st.cartLines {
		if line.CartID != cartID || (selectedOnly && !line.Selected) {
			continue
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		}
		return lines[i].ID < lines[j].ID
	})
	return lines
}

var _ domain.CartRepository = (*cartRepository)(nil)
