// Команда loadtest гоняет сценарии оформления заказа против HTTP API
// и проверяет, что под конкуренцией склад не уходит в минус.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	httpsvc "github.com/vladislavdragonenkov/shop/internal/service/http"
)

const (
	defaultQty      = int32(1)
	defaultTokenTTL = time.Hour
)

type loadMode string

const (
	modeBuyNow       loadMode = "buy-now"
	modeBuyNowPay    loadMode = "buy-now-pay"
	modeBuyNowCancel loadMode = "buy-now-cancel"
)

type config struct {
	baseURL     string
	token       string
	jwtSecret   string
	userID      string
	addressID   string
	variantID   string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	outputPath  string
}

func parseConfig(args []string, getenv func(string) string) (config, error) {
	var cfg config
	var modeValue string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "shop-api base URL")
	fs.StringVar(&cfg.token, "token", "", "bearer token (default: issued with -jwt-secret)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "JWT secret used to issue a token (fallback: SHOP_JWT_SECRET)")
	fs.StringVar(&cfg.userID, "user", "demo-user", "user id for the issued token")
	fs.StringVar(&cfg.addressID, "address", "demo-address", "shipping address id owned by the user")
	fs.StringVar(&cfg.variantID, "variant", "tee-white-m", "variant to buy")
	fs.IntVar(&cfg.total, "total", 200, "total scenarios in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 1m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeBuyNow), "load mode: buy-now | buy-now-pay | buy-now-cancel")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "cancel share in percent for buy-now-pay mode (0..100)")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.jwtSecret == "" {
		cfg.jwtSecret = getenv("SHOP_JWT_SECRET")
	}

	switch {
	case cfg.baseURL == "":
		return cfg, errors.New("url is required")
	case cfg.token == "" && cfg.jwtSecret == "":
		return cfg, errors.New("token or jwt-secret is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.cancelRate < 0 || cfg.cancelRate > 100:
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	case strings.TrimSpace(cfg.variantID) == "" || strings.TrimSpace(cfg.addressID) == "":
		return cfg, errors.New("variant and address are required")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeBuyNow, modeBuyNowPay, modeBuyNowCancel:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

// bearerToken возвращает явный токен или выпускает его общим секретом API.
func bearerToken(cfg config) (string, error) {
	if cfg.token != "" {
		return cfg.token, nil
	}
	return httpsvc.NewAuthenticator(cfg.jwtSecret).Issue(cfg.userID, httpsvc.RoleUser, defaultTokenTTL)
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result, err := run(context.Background(), cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) (report, error) {
	token, err := bearerToken(cfg)
	if err != nil {
		return report{}, fmt.Errorf("issue token: %w", err)
	}
	client := newAPIClient(cfg.baseURL, token, cfg.timeout, cfg.concurrency)

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(ctx, client, cfg, id, runID, col)
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt)), nil
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

// runScenario выполняет один сценарий. Отказ по остатку склада считается
// ожидаемым исходом: сценарий успешен, заказ просто не создан.
func runScenario(ctx context.Context, client *apiClient, cfg config, index int, runID string, col *collector) (err error) {
	start := time.Now()
	result := outcome{label: "ok", ok: true}
	defer func() {
		col.record(scenarioStep, time.Since(start), result)
	}()

	method := "cod"
	if cfg.mode != modeBuyNow {
		method = "momo"
	}

	stepStart := time.Now()
	order, o, err := client.buyNow(ctx, fmt.Sprintf("lt-buy-%s-%d", runID, index), buyNowBody{
		VariantID:     cfg.variantID,
		Qty:           defaultQty,
		AddressID:     cfg.addressID,
		PaymentMethod: method,
	})
	if o.label == codeStockExceeded {
		o.ok = true
	}
	col.record("buy-now", time.Since(stepStart), o)
	if err != nil {
		if o.label == codeStockExceeded {
			col.stockOut()
			result = outcome{label: codeStockExceeded, ok: true}
			return nil
		}
		result = o
		return err
	}
	if order.ID == "" {
		result = outcome{label: "empty_order_id"}
		return errors.New("buy-now returned empty order id")
	}
	col.orderPlaced()

	if cfg.mode == modeBuyNow {
		return nil
	}

	if cfg.mode == modeBuyNowPay {
		stepStart = time.Now()
		o, err = client.initiatePayment(ctx, order.ID)
		col.record("payment", time.Since(stepStart), o)
		if err != nil {
			result = o
			return err
		}
	}

	if cfg.mode == modeBuyNowCancel || shouldCancelScenario(index, cfg.cancelRate) {
		stepStart = time.Now()
		o, err = client.cancelOrder(ctx, order.ID)
		col.record("cancel", time.Since(stepStart), o)
		if err != nil {
			result = o
			return err
		}
	}
	return nil
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}
