// Package migrations 内嵌账本服务的数据库迁移脚本
package migrations

import "embed"

// FS 包含全部 *.sql 迁移文件
//
//go:embed *.sql
var FS embed.FS
