package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	idempotencyHeader = "Idempotency-Key"
	codeStockExceeded = "stock_exceeded"
)

// outcome — результат одного HTTP-шага: метка для отчёта и признак успеха.
type outcome struct {
	label string
	ok    bool
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// apiClient ходит в JSON API магазина от имени одного пользователя.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string, timeout time.Duration, conns int) *apiClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = conns
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// do отправляет запрос и декодирует тело в out при 2xx.
// Бизнес-ошибка API превращается в outcome с кодом из тела.
func (c *apiClient) do(ctx context.Context, method, path, idemKey string, body, out any) (outcome, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return outcome{label: "encode_error"}, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return outcome{label: "request_error"}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set(idempotencyHeader, idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return outcome{label: "transport_error"}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return outcome{label: "decode_error"}, err
			}
		}
		return outcome{label: strconv.Itoa(resp.StatusCode), ok: true}, nil
	}

	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	label := apiErr.Code
	if label == "" {
		label = strconv.Itoa(resp.StatusCode)
	}
	return outcome{label: label}, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, label)
}

type placedOrder struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	AmountDue int64  `json:"amountDue"`
}

type buyNowBody struct {
	VariantID     string `json:"variantId"`
	Qty           int32  `json:"qty"`
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

func (c *apiClient) buyNow(ctx context.Context, key string, body buyNowBody) (placedOrder, outcome, error) {
	var order placedOrder
	o, err := c.do(ctx, http.MethodPost, "/api/orders/buy-now", key, body, &order)
	return order, o, err
}

func (c *apiClient) initiatePayment(ctx context.Context, orderID string) (outcome, error) {
	return c.do(ctx, http.MethodPost, "/api/payments", "", map[string]string{"orderId": orderID}, nil)
}

func (c *apiClient) cancelOrder(ctx context.Context, orderID string) (outcome, error) {
	return c.do(ctx, http.MethodPut, "/api/orders/"+orderID+"/cancel", "", nil, nil)
}
