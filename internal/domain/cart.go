package domain

import "time"

// Cart — корзина пользователя, создаётся лениво при первом обращении.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// CartLine — позиция корзины. В оформление попадают только выбранные.
type CartLine struct {
	ID        string
	CartID    string
	VariantID string
	Qty       int32
	Selected  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLineUpdate — частичное изменение позиции; nil поля не трогаются.
type CartLineUpdate struct {
	Qty      *int32
	Selected *bool
}

// Address — адрес доставки из адресной книги пользователя.
type Address struct {
	ID        string
	UserID    string
	Recipient string
	Phone     string
	Line      string
	City      string
}

// User — минимальные данные пользователя, нужные оформлению.
type User struct {
	ID    string
	Email string
	Name  string
}
