package httpsvc

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	placed, err := s.checkout.CreateOrderFromCart(r.Context(), principal(r).UserID, req.AddressID, domain.PaymentMethod(req.PaymentMethod))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPlacedDTO(placed))
}

func (s *Server) buyNow(w http.ResponseWriter, r *http.Request) {
	var req buyNowRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	placed, err := s.checkout.BuyNow(r.Context(), principal(r).UserID, req.VariantID, req.Qty, req.AddressID, domain.PaymentMethod(req.PaymentMethod))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPlacedDTO(placed))
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := s.checkout.ListOrders(r.Context(), principal(r).UserID, limit)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}

	out := ordersDTO{Orders: make([]orderDTO, 0, len(orders))}
	for _, order := range orders {
		out.Orders = append(out.Orders, toOrderDTO(order))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	details, err := s.checkout.GetOrder(r.Context(), p.UserID, p.IsAdmin(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDetailsDTO(details))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.checkout.CancelOrder(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

func (s *Server) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := s.checkout.AdminSetStatus(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}
