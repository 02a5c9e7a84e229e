package grpc

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/application"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// FundingInternalServer is the internal gRPC surface. Only the standard
// health service is registered until the shared funding contract is
// published.
type FundingInternalServer struct {
	grpc_health_v1.UnimplementedHealthServer
	service *application.Service
}

func NewFundingInternalServer(service *application.Service) *FundingInternalServer {
	return &FundingInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc *FundingInternalServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *FundingInternalServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	_ = ctx
	_ = req
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *FundingInternalServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	_ = req
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING})
}
