package httpsvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := s.cart.Get(r.Context(), principal(r).UserID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(view))
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "variantId is required")
		return
	}

	line, err := s.cart.AddItem(r.Context(), principal(r).UserID, req.VariantID, req.Qty)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartLineDTO(line))
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Qty == nil && req.Selected == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "nothing to update")
		return
	}

	line, err := s.cart.UpdateItem(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), domain.CartLineUpdate{
		Qty:      req.Qty,
		Selected: req.Selected,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartLineDTO(line))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.RemoveItem(r.Context(), principal(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
