package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/rpc"
	"github.com/dmitrijs2005/healthsync/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const workerIDKey ctxKey = "workerID"

const healthServicePrefix = "/grpc.health.v1.Health/"

func workerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workerIDKey).(string)
	return id
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requiresToken reports whether method is protected. Connectivity probes
// are open so devices can tell "unreachable" from "not authorized".
func requiresToken(method string) bool {
	return method != rpc.PingMethod && !strings.HasPrefix(method, healthServicePrefix)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !requiresToken(info.FullMethod) {
		return handler(ctx, req)
	}

	accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	workerID, err := auth.GetWorkerIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, workerIDKey, workerID), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	args := []any{
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	}
	if key := firstMetadata(ctx, common.IdempotencyKeyHeaderName); key != "" {
		args = append(args, "idempotency_key", key)
	}

	switch {
	case err == nil:
		s.logger.Debug(ctx, "request served", args...)
	case status.Code(err) == codes.Internal || status.Code(err) == codes.Unknown:
		s.logger.Error(ctx, "request failed", append(args, "error", err)...)
	default:
		s.logger.Info(ctx, "request rejected", append(args, "error", err)...)
	}
	return resp, err
}
