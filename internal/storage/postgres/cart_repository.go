package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const cartLineColumns = `id, cart_id, variant_id, qty, selected, created_at, updated_at`

type cartRepository struct {
	q querier
}

func (r *cartRepository) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, created_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}
	return cart, nil
}

// Create не падает, если корзина уже создана параллельным запросом.
func (r *cartRepository) Create(ctx context.Context, cart domain.Cart) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id) DO NOTHING
	`, cart.ID, cart.UserID, cart.CreatedAt); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *cartRepository) Lines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	return r.queryLines(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, id ASC
	`, cartID)
}

func (r *cartRepository) SelectedLines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	return r.queryLines(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_items
		WHERE cart_id = $1
		  AND selected
		ORDER BY created_at ASC, id ASC
	`, cartID)
}

func (r *cartRepository) GetLine(ctx context.Context, cartID, lineID string) (domain.CartLine, error) {
	line, err := scanCartLine(r.q.QueryRowContext(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_items
		WHERE cart_id = $1
		  AND id = $2
	`, cartID, lineID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("select cart line: %w", err)
	}
	return line, nil
}

func (r *cartRepository) AddLine(ctx context.Context, line domain.CartLine) (domain.CartLine, error) {
	stored, err := scanCartLine(r.q.QueryRowContext(ctx, `
		INSERT INTO cart_items (`+cartLineColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (cart_id, variant_id) DO UPDATE
		SET qty = cart_items.qty + EXCLUDED.qty,
		    updated_at = EXCLUDED.updated_at
		RETURNING `+cartLineColumns,
		line.ID, line.CartID, line.VariantID, line.Qty, line.Selected, line.CreatedAt, line.UpdatedAt,
	))
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("upsert cart line: %w", err)
	}
	return stored, nil
}

func (r *cartRepository) SaveLine(ctx context.Context, line domain.CartLine) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE cart_items
		SET qty = $3,
		    selected = $4,
		    updated_at = $5
		WHERE cart_id = $1
		  AND id = $2
	`, line.CartID, line.ID, line.Qty, line.Selected, line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (r *cartRepository) DeleteLines(ctx context.Context, cartID string, lineIDs []string) error {
	for _, id := range lineIDs {
		if _, err := r.q.ExecContext(ctx, `
			DELETE FROM cart_items
			WHERE cart_id = $1
			  AND id = $2
		`, cartID, id); err != nil {
			return fmt.Errorf("delete cart line %s: %w", id, err)
		}
	}
	return nil
}

func (r *cartRepository) queryLines(ctx context.Context, query string, args ...any) ([]domain.CartLine, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(row rowScanner) (domain.CartLine, error) {
	var line domain.CartLine
	err := row.Scan(&line.ID, &line.CartID, &line.VariantID, &line.Qty, &line.Selected, &line.CreatedAt, &line.UpdatedAt)
	return line, err
}

var _ domain.CartRepository = (*cartRepository)(nil)
