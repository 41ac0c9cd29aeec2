package main

import (
	"context"
	"log/slog"
	"net"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/llcportal/consultations/libs/config"
	"github.com/llcportal/consultations/libs/grpcx"
)

// startGrpcServer exposes the standard health service. Serving status drops to
// NOT_SERVING when ctx is cancelled, before the server drains.
func startGrpcServer(ctx context.Context, logger *slog.Logger) error {
	port, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, hs := grpcx.NewServer(logger)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("booking", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}
