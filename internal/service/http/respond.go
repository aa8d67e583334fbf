package httpsvc

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// ErrorResponse — единый конверт ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// statusFor переводит класс доменной ошибки в HTTP-статус.
// Конфликты бизнес-правил (остатки, повторная оплата, отмена) отдаются как 400.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConflict, domain.KindSignature:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindGateway:
		return http.StatusBadGateway
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError пишет ошибку сервиса; текст внутренних ошибок наружу не уходит.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": requestID(r.Context()),
		}).Error("request failed")
		respondError(w, status, "internal_error", "internal server error")
		return
	}

	// Наружу уходит только сообщение доменной ошибки, без контекста обёрток.
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		respondError(w, status, domain.CodeOf(err), "request failed")
		return
	}
	respondError(w, status, domainErr.Code, domainErr.Message)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(dst)
}
