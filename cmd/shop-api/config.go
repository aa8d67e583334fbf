package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/app"
)

const (
	envHTTPAddr                    = "SHOP_HTTP_ADDR"
	envMetricsAddr                 = "SHOP_METRICS_ADDR"
	envGRPCHealthAddr              = "SHOP_GRPC_HEALTH_ADDR"
	envStorageDriver               = "SHOP_STORAGE_DRIVER"
	envPostgresDSN                 = "SHOP_POSTGRES_DSN"
	envPostgresAutoMigrate         = "SHOP_POSTGRES_AUTO_MIGRATE"
	envSeedDemoData                = "SHOP_SEED_DEMO_DATA"
	envKafkaBrokers                = "SHOP_KAFKA_BROKERS"
	envOutboxPollInterval          = "SHOP_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "SHOP_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "SHOP_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "SHOP_OUTBOX_RETRY_DELAY"
	envIdempotencyTTL              = "SHOP_IDEMPOTENCY_TTL"
	envIdempotencyCleanupInterval  = "SHOP_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "SHOP_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envJWTSecret                   = "SHOP_JWT_SECRET"
	envRateLimitRPS                = "SHOP_RATE_LIMIT_RPS"
	envRateLimitBurst              = "SHOP_RATE_LIMIT_BURST"
	envRequestTimeout              = "SHOP_REQUEST_TIMEOUT"
	envShippingFee                 = "SHOP_SHIPPING_FEE"
	envFreeShippingThreshold       = "SHOP_FREE_SHIPPING_THRESHOLD"
	envCurrency                    = "SHOP_CURRENCY"
	envNotifyTimeout               = "SHOP_NOTIFY_TIMEOUT"
	envMoMoEndpoint                = "SHOP_MOMO_ENDPOINT"
	envMoMoPartnerCode             = "SHOP_MOMO_PARTNER_CODE"
	envMoMoAccessKey               = "SHOP_MOMO_ACCESS_KEY"
	envMoMoSecretKey               = "SHOP_MOMO_SECRET_KEY"
	envMoMoRedirectURL             = "SHOP_MOMO_REDIRECT_URL"
	envMoMoIPNURL                  = "SHOP_MOMO_IPN_URL"
	envMoMoRequestType             = "SHOP_MOMO_REQUEST_TYPE"
	envMoMoLang                    = "SHOP_MOMO_LANG"
	envMoMoTimeout                 = "SHOP_MOMO_TIMEOUT"
)

type envLookup func(string) (string, bool)

func readConfig() (app.Config, []string) {
	return readConfigFromEnv(os.LookupEnv)
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения игнорируются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("invalid %s=%q: %v, using default", key, value, err))
	}
	str := func(key string, dst *string) {
		if v, ok := nonEmpty(lookup, key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := nonEmpty(lookup, key); ok {
			parsed, err := parseBool(v)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	positiveInt := func(key string, dst *int) {
		if v, ok := nonEmpty(lookup, key); ok {
			parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	money := func(key string, dst *int64) {
		if v, ok := nonEmpty(lookup, key); ok {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err == nil && parsed < 0 {
				err = fmt.Errorf("must be >= 0")
			}
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		if v, ok := nonEmpty(lookup, key); ok {
			parsed, err := parseDuration(v, valid, rule)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	positive := func(d time.Duration) bool { return d > 0 }
	nonNegative := func(d time.Duration) bool { return d >= 0 }

	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	str(envGRPCHealthAddr, &cfg.GRPCHealthAddr)
	if v, ok := nonEmpty(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	boolean(envSeedDemoData, &cfg.SeedDemoData)
	if v, ok := nonEmpty(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}

	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positive, "must be > 0")
	positiveInt(envOutboxBatchSize, &cfg.OutboxBatchSize)
	positiveInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegative, "must be >= 0")

	duration(envIdempotencyTTL, &cfg.IdempotencyTTL, positive, "must be > 0")
	duration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positive, "must be > 0")
	positiveInt(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize)

	str(envJWTSecret, &cfg.JWTSecret)
	if v, ok := nonEmpty(lookup, envRateLimitRPS); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err == nil && parsed < 0 {
			err = fmt.Errorf("must be >= 0")
		}
		if err != nil {
			warn(envRateLimitRPS, v, err)
		} else {
			cfg.RateLimitRPS = parsed
		}
	}
	positiveInt(envRateLimitBurst, &cfg.RateLimitBurst)
	duration(envRequestTimeout, &cfg.RequestTimeout, positive, "must be > 0")

	money(envShippingFee, &cfg.Shipping.FeeMinor)
	money(envFreeShippingThreshold, &cfg.Shipping.FreeThresholdMinor)
	if v, ok := nonEmpty(lookup, envCurrency); ok {
		cfg.Currency = strings.ToUpper(v)
	}
	duration(envNotifyTimeout, &cfg.NotifyTimeout, positive, "must be > 0")

	str(envMoMoEndpoint, &cfg.MoMo.Endpoint)
	str(envMoMoPartnerCode, &cfg.MoMo.PartnerCode)
	str(envMoMoAccessKey, &cfg.MoMo.AccessKey)
	str(envMoMoSecretKey, &cfg.MoMo.SecretKey)
	str(envMoMoRedirectURL, &cfg.MoMo.RedirectURL)
	str(envMoMoIPNURL, &cfg.MoMo.IPNURL)
	str(envMoMoRequestType, &cfg.MoMo.RequestType)
	str(envMoMoLang, &cfg.MoMo.Lang)
	duration(envMoMoTimeout, &cfg.MoMo.Timeout, positive, "must be > 0")

	return cfg, warnings
}

func nonEmpty(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean")
	}
}

func parseInt(v string, valid func(int) bool, rule string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if !valid(parsed) {
		return 0, fmt.Errorf("%s", rule)
	}
	return parsed, nil
}

func parseDuration(v string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if !valid(parsed) {
		return 0, fmt.Errorf("%s", rule)
	}
	return parsed, nil
}
