package httpsvc

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/shop/internal/gateway/momo"
)

func (s *Server) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "orderId is required")
		return
	}

	started, err := s.payment.InitiatePayment(r.Context(), principal(r).UserID, req.OrderID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, initiationDTO{
		PaymentID:   started.PaymentID,
		ApprovalURL: started.ApprovalURL,
		RequestID:   started.RequestID,
	})
}

// paymentWebhook принимает IPN провайдера. Повторная доставка того же
// уведомления подтверждается без изменения состояния.
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var n momo.Notification
	if err := decodeJSON(r, &n); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := s.payment.ConfirmPayment(r.Context(), n); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ackDTO{Message: "ok"})
}

// cancelPayment обрабатывает возврат пользователя со страницы провайдера.
// Ссылка берётся из query orderId или из JSON-тела.
func (s *Server) cancelPayment(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("orderId")
	if reference == "" && r.Method == http.MethodPost && r.Body != nil {
		var req cancelPaymentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err == nil {
			reference = req.OrderID
		}
	}

	if err := s.payment.CancelPayment(r.Context(), reference); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ackDTO{Message: "payment cancelled"})
}
