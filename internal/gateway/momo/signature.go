package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Notification — IPN-уведомление MoMo о результате оплаты.
type Notification struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// Succeeded сообщает, что провайдер подтвердил списание.
func (n Notification) Succeeded() bool {
	return n.ResultCode == 0
}

type param struct {
	key   string
	value string
}

// canonical склеивает пары key=value через & без URL-кодирования.
// Порядок пар задаётся вызывающим и должен совпадать с документацией MoMo.
func canonical(params ...param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

// createCanonical — строка подписи запроса на создание платежа.
func createCanonical(accessKey string, req createRequest) string {
	return canonical(
		param{"accessKey", accessKey},
		param{"amount", strconv.FormatInt(req.Amount, 10)},
		param{"extraData", req.ExtraData},
		param{"ipnUrl", req.IPNURL},
		param{"orderId", req.OrderID},
		param{"orderInfo", req.OrderInfo},
		param{"partnerCode", req.PartnerCode},
		param{"redirectUrl", req.RedirectURL},
		param{"requestId", req.RequestID},
		param{"requestType", req.RequestType},
	)
}

// notificationCanonical — строка подписи IPN; поле signature не участвует.
func notificationCanonical(accessKey string, n Notification) string {
	return canonical(
		param{"accessKey", accessKey},
		param{"amount", strconv.FormatInt(n.Amount, 10)},
		param{"extraData", n.ExtraData},
		param{"message", n.Message},
		param{"orderId", n.OrderID},
		param{"orderInfo", n.OrderInfo},
		param{"orderType", n.OrderType},
		param{"partnerCode", n.PartnerCode},
		param{"payType", n.PayType},
		param{"requestId", n.RequestID},
		param{"responseTime", strconv.FormatInt(n.ResponseTime, 10)},
		param{"resultCode", strconv.Itoa(n.ResultCode)},
		param{"transId", strconv.FormatInt(n.TransID, 10)},
	)
}

// Sign возвращает HMAC-SHA256 от строки в нижнем hex.
func Sign(secretKey, data string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignNotification подписывает уведомление так же, как это делает MoMo.
// Используется в тестах и локальной симуляции webhook.
func SignNotification(accessKey, secretKey string, n Notification) string {
	return Sign(secretKey, notificationCanonical(accessKey, n))
}

// VerifyNotification пересчитывает подпись по полям уведомления и
// сравнивает за постоянное время.
func VerifyNotification(accessKey, secretKey string, n Notification) bool {
	expected := SignNotification(accessKey, secretKey, n)
	given := strings.ToLower(strings.TrimSpace(n.Signature))
	return hmac.Equal([]byte(expected), []byte(given))
}
