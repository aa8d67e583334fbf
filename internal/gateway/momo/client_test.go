package momo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func testConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.PartnerCode = "MOMO"
	cfg.AccessKey = testAccessKey
	cfg.SecretKey = testSecretKey
	cfg.RedirectURL = "https://shop.example/payment/return"
	cfg.IPNURL = "https://shop.example/api/payments/success"
	cfg.Timeout = time.Second
	cfg.BreakerFailures = 2
	cfg.BreakerCooldown = time.Minute
	return cfg
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewClient(testConfig(srv.URL), WithHTTPClient(srv.Client())), &calls
}

func TestClient_CreatePaymentSignsRequest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MOMO-req-1", body.RequestID)
		assert.Equal(t, "MOMO-req-1", body.OrderID)
		assert.Equal(t, int64(430000), body.Amount)
		assert.Equal(t, "captureWallet", body.RequestType)
		assert.Equal(t, "vi", body.Lang)
		assert.Equal(t, Sign(testSecretKey, createCanonical(testAccessKey, body)), body.Signature)

		_ = json.NewEncoder(w).Encode(CreateResponse{
			PartnerCode: "MOMO",
			OrderID:     body.OrderID,
			RequestID:   body.RequestID,
			Amount:      body.Amount,
			ResultCode:  0,
			Message:     "Successful.",
			PayURL:      "https://test-payment.momo.vn/pay/MOMO-req-1",
		})
	})

	resp, err := client.CreatePayment(context.Background(), PaymentRequest{
		RequestID: "MOMO-req-1",
		Amount:    430000,
		OrderInfo: "Order order-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://test-payment.momo.vn/pay/MOMO-req-1", resp.PayURL)
	assert.Equal(t, "MOMO", client.PartnerCode())
}

func TestClient_CreatePaymentFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "provider rejection",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(CreateResponse{ResultCode: 22, Message: "amount out of range"})
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
		{
			name: "missing pay url",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(CreateResponse{ResultCode: 0})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.CreatePayment(context.Background(), PaymentRequest{RequestID: "MOMO-req-1", Amount: 1000})
			require.ErrorIs(t, err, domain.ErrPaymentGateway)
			assert.Equal(t, domain.KindGateway, domain.KindOf(err))
		})
	}
}

func TestClient_CreatePaymentTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.cfg.Timeout = 50 * time.Millisecond

	_, err := client.CreatePayment(context.Background(), PaymentRequest{RequestID: "MOMO-req-1", Amount: 1000})
	require.ErrorIs(t, err, domain.ErrPaymentGateway)
}

func TestClient_BreakerOpensOnTransportFailures(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		_, err := client.CreatePayment(context.Background(), PaymentRequest{RequestID: "MOMO-req-1", Amount: 1000})
		require.ErrorIs(t, err, domain.ErrPaymentGateway)
	}
	require.Equal(t, int32(2), atomic.LoadInt32(calls))

	_, err := client.CreatePayment(context.Background(), PaymentRequest{RequestID: "MOMO-req-1", Amount: 1000})
	require.ErrorIs(t, err, domain.ErrPaymentGateway)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, callOpen, callResult(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "open breaker must not reach the gateway")
}

func TestClient_RejectionsDoNotTripBreaker(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(CreateResponse{ResultCode: 1001, Message: "insufficient balance"})
	})

	for i := 0; i < 4; i++ {
		_, err := client.CreatePayment(context.Background(), PaymentRequest{RequestID: "MOMO-req-1", Amount: 1000})
		require.ErrorIs(t, err, domain.ErrPaymentGateway)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(calls))
}

func TestClient_InvalidRequest(t *testing.T) {
	client, calls := newTestClient(t, func(http.ResponseWriter, *http.Request) {})

	_, err := client.CreatePayment(context.Background(), PaymentRequest{Amount: 1000})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestClient_VerifyNotification(t *testing.T) {
	client := NewClient(testConfig("http://unused"))

	n := sampleNotification()
	n.Signature = SignNotification(testAccessKey, testSecretKey, n)
	require.NoError(t, client.VerifyNotification(n))

	n.Amount = 1
	require.ErrorIs(t, client.VerifyNotification(n), domain.ErrInvalidSignature)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig("http://momo").Validate())

	err := Config{Timeout: time.Second}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partner code")
	assert.Contains(t, err.Error(), "secret key")
}
