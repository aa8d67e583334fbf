package domain

// InventoryRecord — остаток варианта товара вместе с данными каталога,
// прочитанными под блокировкой строки.
type InventoryRecord struct {
	VariantID      string
	ProductID      string
	ProductName    string
	UnitPriceMinor int64
	Active         bool
	Stock          int32
}

// Reservation — результат успешного списания остатка под заказ.
type Reservation struct {
	VariantID      string
	ProductID      string
	ProductName    string
	Qty            int32
	UnitPriceMinor int64
	// StockAfter — остаток после списания в рамках транзакции.
	StockAfter int32
}

// OrderItem строит позицию заказа с зафиксированной ценой.
func (r Reservation) OrderItem() OrderItem {
	return OrderItem{
		VariantID:      r.VariantID,
		ProductID:      r.ProductID,
		ProductName:    r.ProductName,
		Qty:            r.Qty,
		UnitPriceMinor: r.UnitPriceMinor,
	}
}
