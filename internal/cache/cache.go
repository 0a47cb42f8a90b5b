// Package cache 提供账本读路径的旁路缓存
// 缓存永远不是权威数据，写路径在事务提交后删除相关键
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 键不存在
var ErrCacheMiss = errors.New("cache miss")

// Cache 键值缓存
type Cache interface {
	// Get 读取键，不存在返回 ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入键，ttl <= 0 表示不过期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除一个或多个键，键不存在不报错
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPrefix 删除所有以 prefix 开头的键
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// NopCache 不缓存任何内容，每次读取都未命中
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NopCache) Delete(context.Context, ...string) error {
	return nil
}

func (NopCache) DeleteByPrefix(context.Context, string) error {
	return nil
}
