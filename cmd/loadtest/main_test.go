package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	httpsvc "github.com/vladislavdragonenkov/shop/internal/service/http"
)

const testSecret = "loadtest-secret"

// fakeShop имитирует API: продаёт не больше stock единиц и проверяет токен.
type fakeShop struct {
	mu       sync.Mutex
	stock    int
	seq      int
	keys     map[string]bool
	payments atomic.Int64
	cancels  atomic.Int64
	auth     *httpsvc.Authenticator
}

func newFakeShop(stock int) *fakeShop {
	return &fakeShop{stock: stock, keys: make(map[string]bool), auth: httpsvc.NewAuthenticator(testSecret)}
}

func (f *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if _, err := f.auth.Verify(token); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "unauthorized"})
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/orders/buy-now":
		var body buyNowBody
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		key := r.Header.Get(idempotencyHeader)
		if key == "" || f.keys[key] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.keys[key] = true
		if f.stock < int(body.Qty) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not enough stock", "code": codeStockExceeded})
			return
		}
		f.stock -= int(body.Qty)
		f.seq++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(placedOrder{ID: fmt.Sprintf("order-%d", f.seq), Status: "pending", AmountDue: 229000})
	case r.Method == http.MethodPost && r.URL.Path == "/api/payments":
		f.payments.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"approvalUrl": "https://pay.example/x"})
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/cancel"):
		f.cancels.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found", "code": "not_found"})
	}
}

func testConfig(url string, mode loadMode, total int) config {
	return config{
		baseURL:     url,
		jwtSecret:   testSecret,
		userID:      "demo-user",
		addressID:   "demo-address",
		variantID:   "tee-white-m",
		total:       total,
		concurrency: 4,
		timeout:     2 * time.Second,
		mode:        mode,
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []loadMode{modeBuyNow, modeBuyNowPay, modeBuyNowCancel} {
		got, err := parseMode(" " + string(mode) + " ")
		if err != nil || got != mode {
			t.Fatalf("parseMode(%q) = %q, %v", mode, got, err)
		}
	}
	if _, err := parseMode("create"); err == nil || !strings.Contains(err.Error(), "unsupported mode") {
		t.Fatalf("expected unsupported mode error, got %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	env := func(key string) string {
		if key == "SHOP_JWT_SECRET" {
			return "from-env"
		}
		return ""
	}

	cfg, err := parseConfig([]string{"-url=http://shop:8080/", "-mode=buy-now-pay", "-duration=2s", "-cancel-rate=10"}, env)
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.baseURL != "http://shop:8080" || cfg.jwtSecret != "from-env" || cfg.mode != modeBuyNowPay {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.duration != 2*time.Second || cfg.totalSet || cfg.cancelRate != 10 {
		t.Fatalf("unexpected run target: %+v", cfg)
	}

	errCases := map[string][]string{
		"token or jwt-secret is required":       {"-total=1"},
		"duration must be >= 0":                 {"-token=t", "-duration=-1s"},
		"total must be > 0":                     {"-token=t", "-total=0"},
		"concurrency must be > 0":               {"-token=t", "-concurrency=0"},
		"timeout must be > 0":                   {"-token=t", "-timeout=0s"},
		"cancel-rate must be between 0 and 100": {"-token=t", "-cancel-rate=101"},
		"unsupported mode":                      {"-token=t", "-mode=bad"},
	}
	for want, args := range errCases {
		if _, err := parseConfig(args, func(string) string { return "" }); err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("parseConfig(%v): expected %q, got %v", args, want, err)
		}
	}
}

func TestRun_BuyNowNeverOversells(t *testing.T) {
	shop := newFakeShop(5)
	srv := httptest.NewServer(shop)
	defer srv.Close()

	result, err := run(context.Background(), testConfig(srv.URL, modeBuyNow, 20))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.TotalScenarios != 20 || result.FailedScenarios != 0 {
		t.Fatalf("unexpected scenario totals: %+v", result)
	}
	if result.OrdersPlaced != 5 || result.StockRejected != 15 {
		t.Fatalf("expected 5 orders and 15 stock rejections, got %d/%d", result.OrdersPlaced, result.StockRejected)
	}
	buy := result.Steps["buy-now"]
	if buy.Outcomes["201"] != 5 || buy.Outcomes[codeStockExceeded] != 15 {
		t.Fatalf("unexpected buy-now outcomes: %+v", buy.Outcomes)
	}
}

func TestRun_PayAndCancelModes(t *testing.T) {
	shop := newFakeShop(100)
	srv := httptest.NewServer(shop)
	defer srv.Close()

	cfg := testConfig(srv.URL, modeBuyNowPay, 10)
	cfg.cancelRate = 100
	result, err := run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.FailedScenarios != 0 || shop.payments.Load() != 10 || shop.cancels.Load() != 10 {
		t.Fatalf("unexpected pay run: failed=%d payments=%d cancels=%d", result.FailedScenarios, shop.payments.Load(), shop.cancels.Load())
	}

	result, err = run(context.Background(), testConfig(srv.URL, modeBuyNowCancel, 3))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Steps["payment"].Calls != 0 || result.Steps["cancel"].Calls != 3 {
		t.Fatalf("cancel mode must skip payment: %+v", result.Steps)
	}
}

func TestRun_UnauthorizedScenariosFail(t *testing.T) {
	srv := httptest.NewServer(newFakeShop(10))
	defer srv.Close()

	cfg := testConfig(srv.URL, modeBuyNow, 3)
	cfg.token = "bogus"
	result, err := run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.FailedScenarios != 3 || result.Steps[scenarioStep].Outcomes["unauthorized"] != 3 {
		t.Fatalf("expected unauthorized failures, got %+v", result.Steps[scenarioStep])
	}
}

func TestDispatchJobs(t *testing.T) {
	jobs := make(chan int, 10)
	dispatchJobs(context.Background(), jobs, config{total: 3})
	var got []int
	for id := range jobs {
		got = append(got, id)
	}
	if len(got) != 3 || got[2] != 2 {
		t.Fatalf("unexpected jobs: %v", got)
	}

	jobs = make(chan int, 100)
	dispatchJobs(context.Background(), jobs, config{total: 5, totalSet: true, duration: time.Second})
	if len(jobs) != 5 {
		t.Fatalf("duration mode must respect explicit total, got %d", len(jobs))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	unbuffered := make(chan int)
	dispatchJobs(ctx, unbuffered, config{duration: time.Minute})
	if _, ok := <-unbuffered; ok {
		t.Fatal("expected channel to be closed after cancellation")
	}
}

func TestReportHelpers(t *testing.T) {
	summary := buildLatencySummary([]float64{4, 1, 3, 2})
	if summary.Min != 1 || summary.Max != 4 || summary.Avg != 2.5 || summary.P50 != 2.5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if percentile(nil, 50) != 0 || percentile([]float64{7}, 99) != 7 {
		t.Fatal("unexpected percentile edge cases")
	}
	if ratio(1, 0) != 0 || ratio(1, 4) != 0.25 {
		t.Fatal("unexpected ratio")
	}
	if shouldCancelScenario(5, 0) || !shouldCancelScenario(5, 100) || !shouldCancelScenario(105, 10) || shouldCancelScenario(50, 10) {
		t.Fatal("unexpected cancel selection")
	}
	if got := runTarget(config{total: 7}); got != "count:7" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: time.Minute, total: 3, totalSet: true}); got != "duration:1m0s,max-total:3" {
		t.Fatalf("unexpected run target: %s", got)
	}
}

func TestPrintAndWriteReport(t *testing.T) {
	col := newCollector()
	col.record(scenarioStep, 10*time.Millisecond, outcome{label: "ok", ok: true})
	col.record("buy-now", 8*time.Millisecond, outcome{label: "201", ok: true})
	col.orderPlaced()
	result := col.buildReport(time.Now(), time.Second)

	var out bytes.Buffer
	printReport(&out, result, config{mode: modeBuyNow, total: 1})
	if !strings.Contains(out.String(), "orders_placed=1") || !strings.Contains(out.String(), "buy-now: calls=1") {
		t.Fatalf("unexpected report output:\n%s", out.String())
	}

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	if err := writeJSONReport("report.json", result); err != nil {
		t.Fatalf("writeJSONReport failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded report
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.OrdersPlaced != 1 {
		t.Fatalf("unexpected report file: %v %s", err, raw)
	}

	if err := writeJSONReport("../escape.json", result); err == nil {
		t.Fatal("expected error for path outside working directory")
	}
	if err := writeJSONReport(".", result); err == nil {
		t.Fatal("expected error for directory path")
	}
}
