package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/app"
	"github.com/vladislavdragonenkov/shop/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	if strings.EqualFold(os.Getenv("SHOP_LOG_FORMAT"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	log.SetLevel(log.InfoLevel)
	if raw := os.Getenv("SHOP_LOG_LEVEL"); raw != "" {
		level, err := log.ParseLevel(raw)
		if err != nil {
			log.WithError(err).Warn("invalid SHOP_LOG_LEVEL, using info")
			return
		}
		log.SetLevel(level)
	}
}

func main() {
	setupLogger()
	cfg, warnings := readConfig()
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"grpc_health":    cfg.GRPCHealthAddr,
		"storage_driver": cfg.StorageDriver,
		"version":        version.GetVersion(),
	}).Info("запускаем shop-api")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("shop-api остановлен")
}
