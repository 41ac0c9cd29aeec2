package grpcx

import (
	"context"
	"strings"

	"github.com/llcportal/consultations/libs/httpx"
)

// RequestIDMetadataKey is the lowercase metadata form of httpx.RequestIDHeader.
const RequestIDMetadataKey = "x-request-id"

// Request ids share the httpx context slot, so loggers read them the same way on both transports.

func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return httpx.ContextWithRequestID(ctx, id)
}

// requestID keeps a usable inbound id or mints a new one.
func requestID(inbound string) string {
	id := strings.TrimSpace(inbound)
	if id == "" || len(id) > httpx.MaxRequestIDLen {
		return httpx.NewRequestID()
	}
	return id
}
