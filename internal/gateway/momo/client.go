package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
)

// maxResponseBytes ограничивает чтение ответа шлюза.
const maxResponseBytes = 1 << 20

// Результаты вызова шлюза для метрик.
const (
	callOK       = "ok"
	callRejected = "rejected"
	callError    = "error"
	callOpen     = "circuit_open"
)

// PaymentRequest — данные платежа, которые задаёт магазин.
// RequestID одновременно служит orderId и requestId у провайдера.
type PaymentRequest struct {
	RequestID string
	Amount    int64
	OrderInfo string
	ExtraData string
}

// CreateResponse — ответ MoMo на создание платежа.
type CreateResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int    `json:"resultCode"`
	PayURL       string `json:"payUrl"`
	Deeplink     string `json:"deeplink"`
	QRCodeURL    string `json:"qrCodeUrl"`
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

// rejectionError — провайдер ответил, но отказал (resultCode != 0).
// Шлюз при этом исправен, поэтому на circuit breaker отказ не влияет.
type rejectionError struct {
	code    int
	message string
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("momo rejected request: code=%d message=%q", e.code, e.message)
}

func (e *rejectionError) Unwrap() error {
	return domain.ErrPaymentGateway
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (например, httptest.Server.Client()).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(cl *Client) { cl.logger = logger }
}

// WithMetrics включает метрики вызовов шлюза.
func WithMetrics(m *metrics.PaymentMetrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// Client вызывает API создания платежа MoMo.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[CreateResponse]
	logger  *log.Entry
	metrics *metrics.PaymentMetrics
}

// NewClient создаёт клиента. Исходящие запросы трассируются через otelhttp.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New().WithField("component", "momo")
	}
	if c.http == nil {
		c.http = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	c.breaker = gobreaker.NewCircuitBreaker[CreateResponse](gobreaker.Settings{
		Name:        "momo",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			var rejection *rejectionError
			return err == nil || errors.As(err, &rejection)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("payment gateway circuit state changed")
		},
	})
	return c
}

// PartnerCode возвращает код партнёра; из него строятся request id.
func (c *Client) PartnerCode() string {
	return c.cfg.PartnerCode
}

// CreatePayment подписывает и отправляет запрос на создание платежа.
// Любая сетевая ошибка, не-2xx ответ, ошибка разбора или resultCode != 0
// возвращаются как domain.ErrPaymentGateway. Повторов нет.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (CreateResponse, error) {
	if req.RequestID == "" || req.Amount <= 0 {
		return CreateResponse{}, domain.ErrInvalidRequest
	}

	body := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		RequestID:   req.RequestID,
		Amount:      req.Amount,
		OrderID:     req.RequestID,
		OrderInfo:   req.OrderInfo,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		RequestType: c.cfg.RequestType,
		ExtraData:   req.ExtraData,
		Lang:        c.cfg.Lang,
	}
	body.Signature = Sign(c.cfg.SecretKey, createCanonical(c.cfg.AccessKey, body))

	start := time.Now()
	resp, err := c.breaker.Execute(func() (CreateResponse, error) {
		return c.post(ctx, body)
	})
	c.metrics.RecordGatewayCall(callResult(err), time.Since(start))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %w", domain.ErrPaymentGateway, err)
		}
		c.logger.WithError(err).WithField("request_id", req.RequestID).Warn("momo create payment failed")
		return CreateResponse{}, err
	}

	c.logger.WithFields(log.Fields{
		"request_id": req.RequestID,
		"amount":     req.Amount,
	}).Info("momo payment created")
	return resp, nil
}

// VerifyNotification проверяет подпись IPN ключами партнёра.
func (c *Client) VerifyNotification(n Notification) error {
	if !VerifyNotification(c.cfg.AccessKey, c.cfg.SecretKey, n) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (c *Client) post(ctx context.Context, body createRequest) (CreateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("%w: marshal request: %v", domain.ErrPaymentGateway, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return CreateResponse{}, fmt.Errorf("%w: build request: %v", domain.ErrPaymentGateway, err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return CreateResponse{}, fmt.Errorf("%w: read response: %v", domain.ErrPaymentGateway, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return CreateResponse{}, fmt.Errorf("%w: unexpected status %d", domain.ErrPaymentGateway, httpResp.StatusCode)
	}

	var resp CreateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return CreateResponse{}, fmt.Errorf("%w: decode response: %v", domain.ErrPaymentGateway, err)
	}
	if resp.ResultCode != 0 {
		return CreateResponse{}, &rejectionError{code: resp.ResultCode, message: resp.Message}
	}
	if resp.PayURL == "" {
		return CreateResponse{}, fmt.Errorf("%w: response without payUrl", domain.ErrPaymentGateway)
	}
	return resp, nil
}

func callResult(err error) string {
	var rejection *rejectionError
	switch {
	case err == nil:
		return callOK
	case errors.As(err, &rejection):
		return callRejected
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return callOpen
	default:
		return callError
	}
}
