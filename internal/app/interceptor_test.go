package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/ledger.v1.Ledger/CreateOrder"}

// observeLogs 替换全局 logger 以便断言日志
func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(nil) })
	return logs
}

func TestLoggingUnaryInterceptor_MapsBusinessErrors(t *testing.T) {
	logs := observeLogs(t)
	interceptor := loggingUnaryInterceptor()

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"insufficient balance", errors.ErrInsufficientBalance.WithMessage("available: 10"), codes.FailedPrecondition},
		{"not found", errors.ErrOrderNotFound, codes.NotFound},
		{"conflict", errors.ErrConcurrencyConflict, codes.Aborted},
		{"status passes through", status.Error(codes.Unavailable, "draining"), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interceptor(context.Background(), nil, testInfo,
				func(ctx context.Context, req interface{}) (interface{}, error) {
					return nil, tt.err
				})
			assert.Equal(t, tt.want, status.Code(err))
		})
	}

	failed := logs.FilterMessage("grpc request failed").All()
	require.Len(t, failed, len(tests))
	assert.Equal(t, "FailedPrecondition", failed[0].ContextMap()["code"])
	assert.Equal(t, testInfo.FullMethod, failed[0].ContextMap()["method"])
}

func TestLoggingUnaryInterceptor_PropagatesTraceID(t *testing.T) {
	logs := observeLogs(t)
	interceptor := loggingUnaryInterceptor()
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(traceIDMetadataKey, "trace-42"))

	resp, err := interceptor(ctx, "req", testInfo,
		func(ctx context.Context, req interface{}) (interface{}, error) {
			logger.WithContext(ctx).Info("handled")
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	handled := logs.FilterMessage("handled").All()
	require.Len(t, handled, 1)
	assert.Equal(t, "trace-42", handled[0].ContextMap()["trace_id"])
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	logs := observeLogs(t)
	interceptor := recoveryUnaryInterceptor()

	_, err := interceptor(context.Background(), nil, testInfo,
		func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})

	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, 1, logs.FilterMessage("grpc panic recovered").Len())
}
