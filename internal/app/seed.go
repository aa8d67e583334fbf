package app

import (
	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
)

// Демонстрационные данные для запуска без базы.
const (
	demoUserID    = "demo-user"
	demoAdminID   = "demo-admin"
	demoAddressID = "demo-address"
)

func seedDemoData(store *memory.Store) {
	store.SeedUser(domain.User{ID: demoUserID, Email: "demo@example.com", Name: "Demo Buyer"})
	store.SeedUser(domain.User{ID: demoAdminID, Email: "admin@example.com", Name: "Demo Admin"})
	store.SeedAddress(domain.Address{
		ID:        demoAddressID,
		UserID:    demoUserID,
		Recipient: "Demo Buyer",
		Phone:     "0901234567",
		Line:      "12 Nguyen Hue",
		City:      "Ho Chi Minh City",
	})

	for _, v := range []domain.InventoryRecord{
		{VariantID: "tee-white-m", ProductID: "tee-basic", ProductName: "Basic Tee White M", UnitPriceMinor: 199_000, Active: true, Stock: 50},
		{VariantID: "tee-black-l", ProductID: "tee-basic", ProductName: "Basic Tee Black L", UnitPriceMinor: 199_000, Active: true, Stock: 25},
		{VariantID: "jeans-slim-32", ProductID: "jeans-slim", ProductName: "Slim Jeans 32", UnitPriceMinor: 649_000, Active: true, Stock: 10},
		{VariantID: "jacket-denim-m", ProductID: "jacket-denim", ProductName: "Denim Jacket M", UnitPriceMinor: 1_290_000, Active: true, Stock: 3},
		{VariantID: "scarf-wool", ProductID: "scarf-wool", ProductName: "Wool Scarf", UnitPriceMinor: 350_000, Active: false, Stock: 8},
	} {
		store.SeedVariant(v)
	}
}
