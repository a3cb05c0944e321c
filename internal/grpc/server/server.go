package server

import (
	"net"
	"time"

	"socialprobe/internal/background"
	"socialprobe/internal/config"
	"socialprobe/internal/grpc/interceptors"
	"socialprobe/internal/logging"
	"socialprobe/internal/logging/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// Server serves ProfileService and the standard health service
type Server struct {
	cfg         *config.Config
	analyzer    Analyzer
	taskManager background.TaskManager
	logger      types.Logger
	metrics     *interceptors.MetricsCollector
	health      *health.Server
	grpcServer  *grpc.Server
}

// NewServer builds the gRPC server and registers its services. taskManager
// may be nil, in which case AnalyzeAsync and GetTask report Unavailable.
func NewServer(cfg *config.Config, analyzer Analyzer, taskManager background.TaskManager, logger types.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	maxMsg := cfg.GRPC.MaxMessageSize
	if maxMsg <= 0 {
		maxMsg = 16 * 1024 * 1024
	}

	s := &Server{
		cfg:         cfg,
		analyzer:    analyzer,
		taskManager: taskManager,
		logger:      logger.WithField("component", "grpc"),
		metrics:     interceptors.NewMetricsCollector(),
		health:      health.NewServer(),
	}

	s.grpcServer = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.MaxSendMsgSize(maxMsg),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(),
			interceptors.LoggingInterceptor(),
			interceptors.MetricsInterceptor(s.metrics),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(),
			interceptors.StreamLoggingInterceptor(),
			interceptors.StreamMetricsInterceptor(s.metrics),
		),
	)

	RegisterProfileServiceServer(s.grpcServer, s)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ProfileServiceName, healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for debugging
	reflection.Register(s.grpcServer)

	return s
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", map[string]interface{}{
		"address": lis.Addr().String(),
	})
	return s.grpcServer.Serve(lis)
}

// Stop marks the services as not serving and drains in-flight calls
func (s *Server) Stop() {
	s.logger.Info("Shutting down gRPC server...", nil)
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Metrics returns the per-method call statistics
func (s *Server) Metrics() *interceptors.MetricsCollector {
	return s.metrics
}
