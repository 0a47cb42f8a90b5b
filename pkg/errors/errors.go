// Package errors 定义账本服务的业务错误
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error 业务错误
// Code 是对外稳定的错误码，客户端据此判断是否可重试
type Error struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	HTTPStatus int               `json:"-"`
	GRPCCode   codes.Code        `json:"-"`
	Cause      error             `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Copy 复制错误
func (e *Error) Copy() *Error {
	newErr := &Error{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		GRPCCode:   e.GRPCCode,
		Cause:      e.Cause,
	}
	if e.Details != nil {
		newErr.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			newErr.Details[k] = v
		}
	}
	return newErr
}

// WithMessage 替换错误消息
func (e *Error) WithMessage(message string) *Error {
	newErr := e.Copy()
	newErr.Message = message
	return newErr
}

// WithMessagef 格式化替换错误消息
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetail 添加单个详情
func (e *Error) WithDetail(key, value string) *Error {
	newErr := e.Copy()
	if newErr.Details == nil {
		newErr.Details = make(map[string]string)
	}
	newErr.Details[key] = value
	return newErr
}

// NewWithStatus 创建带状态码的错误
func NewWithStatus(code, message string, httpStatus int, grpcCode codes.Code) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		GRPCCode:   grpcCode,
	}
}

// Wrap 包装底层错误
func Wrap(err *Error, cause error) *Error {
	newErr := err.Copy()
	newErr.Cause = cause
	return newErr
}

// FromError 从标准错误转换，未知错误一律视为内部错误
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return bizErr
	}
	return Wrap(ErrInternal, err)
}

// 通用错误码
var (
	ErrInternal       = NewWithStatus("INTERNAL_ERROR", "internal error", http.StatusInternalServerError, codes.Internal)
	ErrInvalidRequest = NewWithStatus("INVALID_REQUEST", "invalid request", http.StatusBadRequest, codes.InvalidArgument)
	ErrUnauthorized   = NewWithStatus("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, codes.Unauthenticated)
	ErrForbidden      = NewWithStatus("FORBIDDEN", "forbidden", http.StatusForbidden, codes.PermissionDenied)
	ErrNotFound       = NewWithStatus("NOT_FOUND", "resource not found", http.StatusNotFound, codes.NotFound)
)

// 账本错误码
var (
	ErrInsufficientBalance = NewWithStatus("INSUFFICIENT_BALANCE", "insufficient balance", http.StatusBadRequest, codes.FailedPrecondition)
	ErrInvalidOrder        = NewWithStatus("INVALID_ORDER", "invalid order", http.StatusBadRequest, codes.FailedPrecondition)
	ErrOrderNotFound       = NewWithStatus("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, codes.NotFound)
	ErrWalletNotFound      = NewWithStatus("WALLET_NOT_FOUND", "wallet not found", http.StatusNotFound, codes.NotFound)
	ErrConcurrencyConflict = NewWithStatus("CONCURRENCY_CONFLICT", "concurrent modification, retry the request", http.StatusConflict, codes.Aborted)
)

// ToGRPCError 转换为 gRPC 错误
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return status.Error(bizErr.GRPCCode, bizErr.Message)
	}
	return status.Error(codes.Internal, err.Error())
}

// ToHTTPStatus 获取 HTTP 状态码
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var bizErr *Error
	if errors.As(err, &bizErr) && bizErr.HTTPStatus != 0 {
		return bizErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is 判断错误类型
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.Is(err, target)
}

// GetCode 获取错误码
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return bizErr.Code
	}
	return ErrInternal.Code
}

// IsNotFound 判断是否为未找到错误
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound) || Is(err, ErrOrderNotFound) || Is(err, ErrWalletNotFound)
}

// IsRetryable 判断客户端能否原样重试整个请求
// 只有并发冲突和内部错误可以重试，余额不足、非法订单等需要用户修改请求
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var bizErr *Error
	if !errors.As(err, &bizErr) {
		return true
	}
	return bizErr.Code == ErrConcurrencyConflict.Code || bizErr.Code == ErrInternal.Code
}
