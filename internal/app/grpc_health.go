package app

import (
	"errors"
	"net"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// apiServiceName — имя сервиса в grpc_health_v1 для проб оркестратора.
const apiServiceName = "shop.api"

// grpcProbe — gRPC-сервер, который отдаёт только health и reflection.
type grpcProbe struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

func newGRPCProbe(addr string, registerer prometheus.Registerer, logger *log.Entry) (*grpcProbe, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	grpcMetrics.InitializeMetrics(server)

	return &grpcProbe{server: server, health: healthServer, lis: lis}, nil
}

// setServing выставляет статус и для пустого имени, и для имени API.
func (p *grpcProbe) setServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	p.health.SetServingStatus("", status)
	p.health.SetServingStatus(apiServiceName, status)
}

func (p *grpcProbe) serve() error {
	err := p.server.Serve(p.lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (p *grpcProbe) addr() string {
	return p.lis.Addr().String()
}
