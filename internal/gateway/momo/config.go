// Package momo — клиент платёжного шлюза MoMo: подписанное создание
// платежа и проверка подписи IPN-уведомлений.
package momo

import (
	"errors"
	"strings"
	"time"
)

const (
	defaultEndpoint    = "https://test-payment.momo.vn/v2/gateway/api/create"
	defaultRequestType = "captureWallet"
	defaultLang        = "vi"
	defaultTimeout     = 10 * time.Second
)

// Config — параметры партнёра MoMo. Секреты приходят из окружения.
type Config struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IPNURL      string
	RequestType string
	Lang        string
	Timeout     time.Duration

	// BreakerFailures — подряд идущие сбои транспорта, после которых
	// запросы к шлюзу временно отклоняются без сетевого вызова.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig возвращает настройки sandbox-окружения без ключей.
func DefaultConfig() Config {
	return Config{
		Endpoint:        defaultEndpoint,
		RequestType:     defaultRequestType,
		Lang:            defaultLang,
		Timeout:         defaultTimeout,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Validate проверяет, что заданы все поля, участвующие в подписи.
func (c Config) Validate() error {
	var errs []error
	required := map[string]string{
		"endpoint":     c.Endpoint,
		"partner code": c.PartnerCode,
		"access key":   c.AccessKey,
		"secret key":   c.SecretKey,
		"redirect url": c.RedirectURL,
		"ipn url":      c.IPNURL,
	}
	for _, name := range []string{"endpoint", "partner code", "access key", "secret key", "redirect url", "ipn url"} {
		if strings.TrimSpace(required[name]) == "" {
			errs = append(errs, errors.New("momo "+name+" is required"))
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("momo timeout must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.RequestType == "" {
		c.RequestType = def.RequestType
	}
	if c.Lang == "" {
		c.Lang = def.Lang
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = def.BreakerFailures
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = def.BreakerCooldown
	}
	return c
}
