package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/service/cart"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
	httpsvc "github.com/vladislavdragonenkov/shop/internal/service/http"
	"github.com/vladislavdragonenkov/shop/internal/service/idempotency"
	"github.com/vladislavdragonenkov/shop/internal/service/inventory"
	"github.com/vladislavdragonenkov/shop/internal/service/outbox"
	"github.com/vladislavdragonenkov/shop/internal/service/payment"
	"github.com/vladislavdragonenkov/shop/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second
	devJWTSecret    = "shop-dev-secret"
	demoTokenTTL    = 24 * time.Hour
)

// Run поднимает HTTP API, сервер метрик, gRPC health и фоновые воркеры
// и блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithFields(version.Fields()).Info("starting shop-api")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	registerer := prometheus.DefaultRegisterer
	checkoutMetrics := metrics.NewCheckoutMetricsWithRegisterer(registerer)
	paymentMetrics := metrics.NewPaymentMetricsWithRegisterer(registerer)
	httpMetrics := metrics.NewHTTPMetricsWithRegisterer(registerer)
	outboxMetrics := metrics.NewOutboxMetricsWithRegisterer(registerer)
	idempotencyMetrics := metrics.NewIdempotencyMetricsWithRegisterer(registerer)

	producer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	gateway, err := newPaymentGateway(cfg, paymentMetrics, logger)
	if err != nil {
		return err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.StorageDriver == StorageDriverPostgres {
			return errors.New("jwt secret is required for postgres storage")
		}
		logger.Warn("jwt secret is not set, using development secret")
		secret = devJWTSecret
	}
	auth := httpsvc.NewAuthenticator(secret)

	ledger := inventory.NewLedger(logger.WithField("component", "inventory"))
	cartSvc := cart.NewService(deps.tx, logger.WithField("component", "cart"))
	checkoutSvc := checkout.NewService(deps.tx, ledger, checkout.Config{
		Shipping:      cfg.Shipping,
		Currency:      cfg.Currency,
		NotifyTimeout: cfg.NotifyTimeout,
	},
		checkout.WithNotifier(newNotifier(producer, logger)),
		checkout.WithMetrics(checkoutMetrics),
		checkout.WithLogger(logger.WithField("component", "checkout")),
	)
	paymentSvc := payment.NewService(deps.tx, gateway,
		payment.WithMetrics(paymentMetrics),
		payment.WithLogger(logger.WithField("component", "payment")),
	)

	api := httpsvc.NewServer(httpsvc.Config{
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}, cartSvc, checkoutSvc, paymentSvc, auth,
		httpsvc.WithIdempotency(deps.idempotencyRepo),
		httpsvc.WithMetrics(httpMetrics),
		httpsvc.WithLogger(logger.WithField("component", "http")),
	)

	if cfg.SeedDemoData && cfg.StorageDriver != StorageDriverPostgres {
		logDemoTokens(auth, logger)
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if len(cfg.KafkaBrokers) > 0 {
		healthHandler.RegisterChecker("kafka", healthcheck.NewFuncChecker("kafka", false, func(context.Context) error {
			if producer == nil {
				return kafkaErr
			}
			return nil
		}))
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	startWorkers(workersCtx, &workers, cfg, deps, producer, outboxMetrics, idempotencyMetrics, api, logger)

	metricsSrv, err := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	if err != nil {
		stopWorkers()
		workers.Wait()
		return err
	}

	probe, err := newGRPCProbe(cfg.GRPCHealthAddr, registerer, logger)
	if err != nil {
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		probe.server.Stop()
		return err
	}
	apiSrv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Infof("gRPC health слушает %s", probe.addr())
		if err := probe.serve(); err != nil {
			errCh <- err
		}
	}()
	probe.setServing(true)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case runErr = <-errCh:
		logger.WithError(runErr).Error("server failed")
	}

	probe.setServing(false)
	shutdownHTTP(apiSrv, logger)
	stopGRPC(probe, logger)
	shutdownHTTP(metricsSrv, logger)
	stopWorkers()
	workers.Wait()

	return runErr
}

func startWorkers(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg Config,
	deps *runtimeDependencies,
	producer *kafka.Producer,
	outboxMetrics *metrics.OutboxMetrics,
	idempotencyMetrics *metrics.IdempotencyMetrics,
	api *httpsvc.Server,
	logger *log.Entry,
) {
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	if producer != nil {
		worker := outbox.NewWorker(deps.outboxRepo, kafka.NewOutboxPublisher(producer),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithMetrics(outboxMetrics),
			outbox.WithDLQPublisher(kafka.NewTopicPublisher(producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		run(worker.Run)
	} else {
		logger.Info("kafka is not configured, outbox relay is disabled")
	}

	sweeper := idempotency.NewSweeper(deps.idempotencyRepo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-sweeper")),
		idempotency.WithMetrics(idempotencyMetrics),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	run(sweeper.Run)
	run(api.RunMaintenance)
}

// logDemoTokens печатает токены демо-пользователей для ручной проверки API.
func logDemoTokens(auth *httpsvc.Authenticator, logger *log.Entry) {
	for _, u := range []struct{ id, role string }{
		{demoUserID, httpsvc.RoleUser},
		{demoAdminID, httpsvc.RoleAdmin},
	} {
		token, err := auth.Issue(u.id, u.role, demoTokenTTL)
		if err != nil {
			logger.WithError(err).Warn("failed to issue demo token")
			continue
		}
		logger.WithFields(log.Fields{"user_id": u.id, "role": u.role, "token": token}).Info("demo bearer token")
	}
}

// startMetricsServer запускает /metrics и health-пробы на отдельном порту.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) (*http.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", lis.Addr())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv, nil
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// stopGRPC ждёт GracefulStop не дольше shutdownTimeout.
func stopGRPC(probe *grpcProbe, logger *log.Entry) {
	if probe == nil {
		return
	}
	stopped := make(chan struct{})
	go func() {
		probe.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		probe.server.Stop()
	}
}
