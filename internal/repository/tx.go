// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager 在一个数据库事务中执行 fn。fn 返回错误时整个事务回滚。
// 事务内需要通过各仓库的 WithTx(tx) 获取绑定到同一事务的仓库实例。
type TxManager interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager 创建一个基于 GORM 的 TxManager。
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
