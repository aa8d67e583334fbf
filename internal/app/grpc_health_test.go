package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestGRPCProbe_ServingStatus(t *testing.T) {
	logger := log.WithField("test", "grpc-probe")

	probe, err := newGRPCProbe("127.0.0.1:0", prometheus.NewRegistry(), logger)
	if err != nil {
		t.Fatalf("newGRPCProbe failed: %v", err)
	}
	go func() { _ = probe.serve() }()
	defer stopGRPC(probe, logger)

	conn, err := grpc.NewClient(probe.addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial probe: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("health check %q: %v", service, err)
		}
		return resp.GetStatus()
	}

	probe.setServing(true)
	if got := check(apiServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", got)
	}

	probe.setServing(false)
	if got := check(""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %s", got)
	}
}

func TestGRPCProbe_ReusesRegisteredMetrics(t *testing.T) {
	logger := log.WithField("test", "grpc-probe")
	registry := prometheus.NewRegistry()

	first, err := newGRPCProbe("127.0.0.1:0", registry, logger)
	if err != nil {
		t.Fatalf("first probe: %v", err)
	}
	defer first.server.Stop()

	second, err := newGRPCProbe("127.0.0.1:0", registry, logger)
	if err != nil {
		t.Fatalf("second probe: %v", err)
	}
	defer second.server.Stop()
}
