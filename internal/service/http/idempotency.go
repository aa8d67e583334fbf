package httpsvc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const (
	idempotencyKeyHeader  = "Idempotency-Key"
	idempotencyReplayed   = "Idempotent-Replayed"
	defaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 128

	idempotencyStoreTimeout = 5 * time.Second
)

// captureWriter запоминает статус и тело ответа для сохранения под ключом.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// idempotent повторяет сохранённый ответ для того же ключа и тела запроса.
// Ключ действует в пределах пользователя и операции; без заголовка запрос
// идёт как обычно.
func (s *Server) idempotent(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
		if key == "" || s.idem == nil {
			next(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			respondError(w, http.StatusBadRequest, "invalid_request", "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		scope := domain.IdempotencyScope{UserID: principal(r).UserID, Operation: operation, Key: key}
		logger := s.logger.WithFields(log.Fields{
			"idempotency_key": key,
			"operation":       operation,
			"user_id":         scope.UserID,
		})

		record, err := s.idem.Acquire(r.Context(), scope, requestHash(r, body), s.now().Add(s.idemTTL))
		if err != nil {
			s.replay(w, logger, record, err)
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		next(cw, r)

		status := domain.IdempotencyStatusDone
		if cw.status >= http.StatusInternalServerError {
			status = domain.IdempotencyStatusFailed
		}
		s.completeIdempotency(r.Context(), logger, scope, status, domain.StoredResponse{
			HTTPStatus:  cw.status,
			ContentType: cw.Header().Get("Content-Type"),
			Body:        cw.body.Bytes(),
		})
	}
}

// completeIdempotency сохраняет ответ и после отключения клиента или
// таймаута запроса.
func (s *Server) completeIdempotency(reqCtx context.Context, logger *log.Entry, scope domain.IdempotencyScope, status domain.IdempotencyStatus, resp domain.StoredResponse) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), idempotencyStoreTimeout)
	defer cancel()

	if err := s.idem.Complete(ctx, scope, status, resp); err != nil {
		logger.WithError(err).WithField("status", status).Warn("failed to store idempotent response")
	}
}

func (s *Server) replay(w http.ResponseWriter, logger *log.Entry, record domain.IdempotencyRecord, acquireErr error) {
	switch {
	case errors.Is(acquireErr, domain.ErrIdempotencyHashMismatch):
		respondError(w, http.StatusConflict, "idempotency_key_reused", "idempotency key is already used with a different request")
	case errors.Is(acquireErr, domain.ErrIdempotencyKeyAlreadyExists):
		if !record.Status.Finished() {
			respondError(w, http.StatusConflict, "request_in_progress", "request with the same idempotency key is in progress")
			return
		}
		resp := record.Response
		if resp.HTTPStatus == 0 {
			respondError(w, http.StatusInternalServerError, "internal_error", "idempotency cache is empty")
			return
		}
		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set(idempotencyReplayed, "true")
		w.WriteHeader(resp.HTTPStatus)
		_, _ = w.Write(resp.Body)
	default:
		logger.WithError(acquireErr).Warn("failed to acquire idempotency key")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// requestHash связывает ключ с маршрутом и телом запроса.
func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
