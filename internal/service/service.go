package service

import (
	"context"
	"time"

	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
)

// DefaultMaxRetries 乐观锁冲突默认重试次数
const DefaultMaxRetries = 3

// Transactor 在同一数据库事务中执行 fn
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// internalError 将非业务错误包装为 INTERNAL_ERROR，业务错误原样返回
func internalError(err error) error {
	if err == nil {
		return nil
	}
	return errors.FromError(err)
}
