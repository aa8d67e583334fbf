package httpsvc

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/cart"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
)

type addItemRequest struct {
	VariantID string `json:"variantId"`
	Qty       int32  `json:"qty"`
}

type updateItemRequest struct {
	Qty      *int32 `json:"qty,omitempty"`
	Selected *bool  `json:"selected,omitempty"`
}

type createOrderRequest struct {
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

type buyNowRequest struct {
	VariantID     string `json:"variantId"`
	Qty           int32  `json:"qty"`
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type initiatePaymentRequest struct {
	OrderID string `json:"orderId"`
}

type cancelPaymentRequest struct {
	OrderID string `json:"orderId"`
}

type cartLineDTO struct {
	ID        string    `json:"id"`
	VariantID string    `json:"variantId"`
	Qty       int32     `json:"qty"`
	Selected  bool      `json:"selected"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type cartLineViewDTO struct {
	cartLineDTO
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Available   bool   `json:"available"`
	InStock     int32  `json:"inStock"`
}

type cartDTO struct {
	CartID        string            `json:"cartId,omitempty"`
	Items         []cartLineViewDTO `json:"items"`
	SelectedTotal int64             `json:"selectedTotal"`
}

type orderItemDTO struct {
	ID          string `json:"id"`
	VariantID   string `json:"variantId"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Qty         int32  `json:"qty"`
	UnitPrice   int64  `json:"unitPrice"`
	LineTotal   int64  `json:"lineTotal"`
}

type addressDTO struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	Line      string `json:"line"`
	City      string `json:"city"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	AddressID     string         `json:"addressId"`
	Address       *addressDTO    `json:"address,omitempty"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"paymentMethod"`
	Currency      string         `json:"currency"`
	Total         int64          `json:"total"`
	ShippingFee   int64          `json:"shippingFee"`
	AmountDue     int64          `json:"amountDue"`
	Items         []orderItemDTO `json:"items"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type timelineDTO struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type paymentDTO struct {
	ID        string `json:"id"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	RequestID string `json:"requestId"`
	TransID   string `json:"transId,omitempty"`
}

type orderDetailsDTO struct {
	Order    orderDTO      `json:"order"`
	Timeline []timelineDTO `json:"timeline"`
	Payment  *paymentDTO   `json:"payment,omitempty"`
}

type ordersDTO struct {
	Orders []orderDTO `json:"orders"`
}

type initiationDTO struct {
	PaymentID   string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
	RequestID   string `json:"requestId"`
}

type ackDTO struct {
	Message string `json:"message"`
}

func toCartLineDTO(line domain.CartLine) cartLineDTO {
	return cartLineDTO{
		ID:        line.ID,
		VariantID: line.VariantID,
		Qty:       line.Qty,
		Selected:  line.Selected,
		CreatedAt: line.CreatedAt,
		UpdatedAt: line.UpdatedAt,
	}
}

func toCartDTO(view cart.View) cartDTO {
	items := make([]cartLineViewDTO, 0, len(view.Lines))
	for _, line := range view.Lines {
		items = append(items, cartLineViewDTO{
			cartLineDTO: toCartLineDTO(line.CartLine),
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPriceMinor,
			Available:   line.Available,
			InStock:     line.InStock,
		})
	}
	return cartDTO{CartID: view.CartID, Items: items, SelectedTotal: view.SelectedTotalMinor}
}

func toOrderDTO(order domain.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDTO{
			ID:          item.ID,
			VariantID:   item.VariantID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPriceMinor,
			LineTotal:   item.LineTotal(),
		})
	}
	return orderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		AddressID:     order.AddressID,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Currency:      order.Currency,
		Total:         order.TotalMinor,
		ShippingFee:   order.ShippingFeeMinor,
		AmountDue:     order.AmountDue(),
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toPlacedDTO(placed checkout.Placed) orderDTO {
	dto := toOrderDTO(placed.Order)
	dto.Address = &addressDTO{
		ID:        placed.Address.ID,
		Recipient: placed.Address.Recipient,
		Phone:     placed.Address.Phone,
		Line:      placed.Address.Line,
		City:      placed.Address.City,
	}
	return dto
}

func toDetailsDTO(details checkout.Details) orderDetailsDTO {
	timeline := make([]timelineDTO, 0, len(details.Timeline))
	for _, ev := range details.Timeline {
		timeline = append(timeline, timelineDTO{Type: ev.Type, Reason: ev.Reason, Occurred: ev.Occurred})
	}
	out := orderDetailsDTO{Order: toOrderDTO(details.Order), Timeline: timeline}
	if p := details.Payment; p != nil {
		out.Payment = &paymentDTO{
			ID:        p.ID,
			Method:    string(p.Method),
			Amount:    p.AmountMinor,
			Status:    string(p.Status),
			RequestID: p.RequestID,
			TransID:   p.TransID,
		}
	}
	return out
}
