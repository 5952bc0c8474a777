package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/dmitrijs2005/healthsync/internal/rpc"
	"github.com/dmitrijs2005/healthsync/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(secret string, ss Screenings) *GRPCServer {
	return NewGRPCServer("", logging.Nop{}, ss, secret)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(common.AccessTokenHeaderName, token))
}

func TestInterceptor_OpenMethods(t *testing.T) {
	s := newTestServer("secret", nil)

	for _, method := range []string{rpc.PingMethod, "/grpc.health.v1.Health/Check"} {
		called := false
		h := func(ctx context.Context, req any) (any, error) {
			called = true
			return "ok", nil
		}

		resp, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: method}, h)
		require.NoError(t, err, method)
		assert.True(t, called, method)
		assert.Equal(t, "ok", resp)
	}
}

func TestInterceptor_RejectsMissingOrBadToken(t *testing.T) {
	s := newTestServer("secret", nil)
	info := &grpc.UnaryServerInfo{FullMethod: rpc.CreatePatientMethod}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler must not be called")
		return nil, nil
	}

	expired, err := auth.GenerateToken("worker-7", []byte("secret"), -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("worker-7", []byte("other"), time.Hour)
	require.NoError(t, err)

	for name, ctx := range map[string]context.Context{
		"missing": context.Background(),
		"empty":   withToken(context.Background(), ""),
		"expired": withToken(context.Background(), expired),
		"foreign": withToken(context.Background(), foreign),
	} {
		_, err := s.accessTokenInterceptor(ctx, nil, info, h)
		assert.Equal(t, codes.Unauthenticated, status.Code(err), name)
	}
}

func TestInterceptor_PassesWorkerID(t *testing.T) {
	s := newTestServer("secret", nil)
	tok, err := auth.GenerateToken("worker-7", []byte("secret"), time.Hour)
	require.NoError(t, err)

	var got string
	h := func(ctx context.Context, req any) (any, error) {
		got = workerIDFromContext(ctx)
		return nil, nil
	}

	_, err = s.accessTokenInterceptor(withToken(context.Background(), tok), nil, &grpc.UnaryServerInfo{FullMethod: rpc.CreateScreeningMethod}, h)
	require.NoError(t, err)
	assert.Equal(t, "worker-7", got)
}

func TestLoggingInterceptor_ReturnsHandlerResult(t *testing.T) {
	s := newTestServer("secret", nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.IdempotencyKeyHeaderName, "local_p1"))
	info := &grpc.UnaryServerInfo{FullMethod: rpc.CreatePatientMethod}

	resp, err := s.loggingInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = s.loggingInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.Internal, "boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
