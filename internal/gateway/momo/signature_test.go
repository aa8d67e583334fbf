package momo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "F8BBA842ECF85"
	testSecretKey = "K951B6PE1waDMi640xX08PD3vg6EkVlz"
)

func sampleNotification() Notification {
	return Notification{
		PartnerCode:  "MOMO",
		OrderID:      "MOMO-req-1",
		RequestID:    "MOMO-req-1",
		Amount:       430000,
		OrderInfo:    "Order order-1",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1760000000000,
		ExtraData:    "",
	}
}

func TestCreateCanonicalAndSignature(t *testing.T) {
	req := createRequest{
		PartnerCode: "MOMO",
		RequestID:   "MOMO-req-1",
		Amount:      430000,
		OrderID:     "MOMO-req-1",
		OrderInfo:   "Order order-1",
		RedirectURL: "https://shop.example/payment/return",
		IPNURL:      "https://shop.example/api/payments/success",
		RequestType: "captureWallet",
	}

	raw := createCanonical(testAccessKey, req)
	assert.Equal(t, "accessKey=F8BBA842ECF85&amount=430000&extraData=&ipnUrl=https://shop.example/api/payments/success"+
		"&orderId=MOMO-req-1&orderInfo=Order order-1&partnerCode=MOMO&redirectUrl=https://shop.example/payment/return"+
		"&requestId=MOMO-req-1&requestType=captureWallet", raw)
	assert.Equal(t, "641f80eb4565bb01866bc888675e761ca30aa77858da37070d8110287943d585", Sign(testSecretKey, raw))
}

func TestNotificationSignature_KnownVector(t *testing.T) {
	n := sampleNotification()
	assert.Equal(t, "100a2490568ee740aa5d3ff157822b9507a52b9f3122d3947ff2b54f9359651b",
		SignNotification(testAccessKey, testSecretKey, n))

	n.Signature = "100a2490568ee740aa5d3ff157822b9507a52b9f3122d3947ff2b54f9359651b"
	assert.True(t, VerifyNotification(testAccessKey, testSecretKey, n))

	n.Signature = "100A2490568EE740AA5D3FF157822B9507A52B9F3122D3947FF2B54F9359651B"
	assert.True(t, VerifyNotification(testAccessKey, testSecretKey, n))
}

func TestVerifyNotification_RejectsTampering(t *testing.T) {
	tamper := map[string]func(*Notification){
		"amount":       func(n *Notification) { n.Amount = 1 },
		"extraData":    func(n *Notification) { n.ExtraData = "x" },
		"message":      func(n *Notification) { n.Message = "Failed" },
		"orderId":      func(n *Notification) { n.OrderID = "MOMO-req-2" },
		"orderInfo":    func(n *Notification) { n.OrderInfo = "Order order-2" },
		"orderType":    func(n *Notification) { n.OrderType = "other" },
		"partnerCode":  func(n *Notification) { n.PartnerCode = "EVIL" },
		"payType":      func(n *Notification) { n.PayType = "napas" },
		"requestId":    func(n *Notification) { n.RequestID = "MOMO-req-2" },
		"responseTime": func(n *Notification) { n.ResponseTime++ },
		"resultCode":   func(n *Notification) { n.ResultCode = 1006 },
		"transId":      func(n *Notification) { n.TransID++ },
	}

	for field, mutate := range tamper {
		t.Run(field, func(t *testing.T) {
			n := sampleNotification()
			n.Signature = SignNotification(testAccessKey, testSecretKey, n)
			require.True(t, VerifyNotification(testAccessKey, testSecretKey, n))

			mutate(&n)
			assert.False(t, VerifyNotification(testAccessKey, testSecretKey, n))
		})
	}
}

func TestVerifyNotification_WrongKeys(t *testing.T) {
	n := sampleNotification()
	n.Signature = SignNotification(testAccessKey, testSecretKey, n)

	assert.False(t, VerifyNotification(testAccessKey, "other-secret", n))
	assert.False(t, VerifyNotification("other-access", testSecretKey, n))

	n.Signature = ""
	assert.False(t, VerifyNotification(testAccessKey, testSecretKey, n))
}
