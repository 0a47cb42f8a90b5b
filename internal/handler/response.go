// Package handler 提供账本服务的 HTTP 接口
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// CodeSuccess 成功响应码
const CodeSuccess = "OK"

// Response 统一响应结构
type Response struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// PagedData 分页数据
type PagedData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{Code: CodeSuccess, Message: "success", Data: data})
}

// Created 返回创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, &Response{Code: CodeSuccess, Message: "success", Data: data})
}

// SuccessWithPagination 返回分页成功响应
func SuccessWithPagination(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	Success(c, &PagedData{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Error 返回业务错误响应
// 未知错误统一按内部错误处理，不向客户端暴露底层原因
func Error(c *gin.Context, err error) {
	bizErr := errors.FromError(err)
	if bizErr.Code == errors.ErrInternal.Code {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("trace_id", GetTraceID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, &Response{
			Code:    errors.ErrInternal.Code,
			Message: errors.ErrInternal.Message,
		})
		return
	}
	c.JSON(errors.ToHTTPStatus(bizErr), &Response{
		Code:    bizErr.Code,
		Message: bizErr.Message,
		Details: bizErr.Details,
	})
}

// BadRequest 返回参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, errors.ErrInvalidRequest.WithMessage(message))
}

// GetTraceID 从 context 获取 TraceID
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(TraceIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
