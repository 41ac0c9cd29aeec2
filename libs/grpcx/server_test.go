package grpcx

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/llcportal/consultations/libs/httpx"
)

func TestHealthServerAndRequestID(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	srv, hs := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hs.SetServingStatus("booking", healthpb.HealthCheckResponse_SERVING)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, "req-42")

	var header metadata.MD
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "booking"}, grpc.Header(&header))
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status: %s", resp.GetStatus())
	}
	if got := header.Get(RequestIDMetadataKey); len(got) != 1 || got[0] != "req-42" {
		t.Fatalf("expected echoed request id, got %v", got)
	}
}

func TestRequestIDSharedWithHTTPContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	if got := httpx.RequestIDFromContext(ctx); got != "req-7" {
		t.Fatalf("expected id visible to httpx, got %q", got)
	}
	if WithRequestID(ctx, "") != ctx {
		t.Fatal("expected empty id to leave context unchanged")
	}
	if got := requestID(strings.Repeat("x", httpx.MaxRequestIDLen+1)); len(got) > httpx.MaxRequestIDLen {
		t.Fatalf("expected oversized id replaced, got %d chars", len(got))
	}
	if got := requestID(" abc "); got != "abc" {
		t.Fatalf("expected trimmed id, got %q", got)
	}
}
