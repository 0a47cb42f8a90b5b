package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 基础仓储
// 所有仓储实现都嵌入此结构，共享 context 中的事务
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建基础仓储
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB 返回数据库连接
// 如果 context 中有事务，返回事务连接
func (r *Repository) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// txKey 事务上下文键
type txKey struct{}

// Transaction 执行事务
// fn 中通过 ctx 访问的所有仓储操作都在同一事务中执行
// 已处于事务中时直接复用外层事务
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx)
	})
}

// InTransaction 判断 ctx 是否携带事务
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// Pagination 分页参数
type Pagination struct {
	Page     int   // 页码 (从 1 开始)
	PageSize int   // 每页数量
	Total    int64 // 总数 (查询后填充)
}

// Offset 计算偏移量
func (p *Pagination) Offset() int {
	if p.Page <= 0 {
		p.Page = 1
	}
	return (p.Page - 1) * p.Limit()
}

// Limit 返回限制数量
func (p *Pagination) Limit() int {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p.PageSize
}
