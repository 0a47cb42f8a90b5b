package app

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

const traceIDMetadataKey = "x-trace-id"

// recoveryUnaryInterceptor panic 恢复拦截器
func recoveryUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					zap.Any("panic", r),
					zap.String("method", info.FullMethod),
					zap.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// loggingUnaryInterceptor 注入 trace_id，记录请求日志，并把业务错误转换为 gRPC 状态
func loggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		traceID := traceIDFromMetadata(ctx)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx = logger.NewContext(ctx,
			zap.String("trace_id", traceID),
			zap.String("method", info.FullMethod))

		resp, err := handler(ctx, req)
		if err != nil {
			if _, ok := status.FromError(err); !ok {
				err = errors.ToGRPCError(err)
			}
			st := status.Convert(err)
			logger.WithContext(ctx).Warn("grpc request failed",
				zap.Duration("duration", time.Since(start)),
				zap.String("code", st.Code().String()),
				zap.String("error", st.Message()))
			return resp, err
		}

		logger.WithContext(ctx).Debug("grpc request completed",
			zap.Duration("duration", time.Since(start)))
		return resp, nil
	}
}

func traceIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(traceIDMetadataKey); len(values) > 0 {
		return values[0]
	}
	return ""
}
