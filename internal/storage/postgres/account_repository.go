package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type addressRepository struct {
	q querier
}

func (r *addressRepository) Get(ctx context.Context, id string) (domain.Address, error) {
	var addr domain.Address
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, recipient, phone, line, city
		FROM addresses
		WHERE id = $1
	`, id).Scan(&addr.ID, &addr.UserID, &addr.Recipient, &addr.Phone, &addr.Line, &addr.City)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("select address: %w", err)
	}
	return addr, nil
}

type userRepository struct {
	q querier
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := r.q.QueryRowContext(ctx, `
		SELECT id, email, name
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

var (
	_ domain.AddressRepository = (*addressRepository)(nil)
	_ domain.UserRepository    = (*userRepository)(nil)
)
