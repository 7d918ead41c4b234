package grpc

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"minichat/internal/observability"
)

// ServiceName is the health-checked service name next to the overall "" entry.
const ServiceName = "minichat"

// Checker reports whether the backing stores are reachable.
type Checker func(ctx context.Context) error

// HealthServer runs the grpc.health.v1 service and keeps its status in line
// with Checker.
type HealthServer struct {
	server   *grpclib.Server
	health   *health.Server
	check    Checker
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewHealthServer builds the server. A nil check always reports serving.
func NewHealthServer(check Checker, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	server := grpclib.NewServer(
		grpclib.StatsHandler(otelgrpc.NewServerHandler()),
		grpclib.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &HealthServer{
		server:   server,
		health:   hs,
		check:    check,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Serve probes once, then keeps probing in the background while serving lis.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.Refresh(context.Background())
	go s.probeLoop()
	log.Printf("grpc health listening addr=%s", lis.Addr())
	return s.server.Serve(lis)
}

// Refresh runs the checker once and publishes the result.
func (s *HealthServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.check(ctx); err != nil {
			log.Printf("health check failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// GracefulStop marks the service as not serving and drains connections.
func (s *HealthServer) GracefulStop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthServer) probeLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Refresh(context.Background())
		case <-s.stop:
			return
		}
	}
}
