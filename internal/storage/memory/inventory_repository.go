package memory

import (
	"context"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// inventoryRepository обслуживает и чтение каталога, и списание остатков:
// в памяти блокировку строки заменяет мьютекс транзакции.
type inventoryRepository struct {
	st *state
}

func (r *inventoryRepository) GetVariant(_ context.Context, variantID string) (domain.InventoryRecord, error) {
	rec, ok := r.st.variants[variantID]
	if !ok {
		return domain.InventoryRecord{}, domain.ErrVariantNotFound
	}
	return rec, nil
}

func (r *inventoryRepository) LockVariant(ctx context.Context, variantID string) (domain.InventoryRecord, error) {
	return r.GetVariant(ctx, variantID)
}

func (r *inventoryRepository) Decrement(_ context.Context, variantID string, qty int32) (int32, error) {
	rec, ok := r.st.variants[variantID]
	if !ok {
		return 0, domain.ErrVariantNotFound
	}
	if rec.Stock < qty {
		return 0, domain.ErrStockExceeded
	}
	rec.Stock -= qty
	r.st.variants[variantID] = rec
	return rec.Stock, nil
}

type addressRepository struct {
	st *state
}

func (r *addressRepository) Get(_ context.Context, id string) (domain.Address, error) {
	addr, ok := r.st.addresses[id]
	if !ok {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return addr, nil
}

type userRepository struct {
	st *state
}

func (r *userRepository) Get(_ context.Context, id string) (domain.User, error) {
	user, ok := r.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

var (
	_ domain.CatalogRepository   = (*inventoryRepository)(nil)
	_ domain.InventoryRepository = (*inventoryRepository)(nil)
	_ domain.AddressRepository   = (*addressRepository)(nil)
	_ domain.UserRepository      = (*userRepository)(nil)
)
