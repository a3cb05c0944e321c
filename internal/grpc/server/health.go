package server

import (
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SetServing flips the health status reported for ProfileService and the
// server as a whole
func (s *Server) SetServing(serving bool) {
	state := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		state = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", state)
	s.health.SetServingStatus(ProfileServiceName, state)

	s.logger.Info("gRPC health status changed", map[string]interface{}{
		"status": state.String(),
	})
}
