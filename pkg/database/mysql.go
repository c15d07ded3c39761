// Package database 负责打开关系库和 Redis 连接，并维护表结构。
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"org-directory-go/internal/config"
	"org-directory-go/pkg/log"
)

// Open 根据 driver 选择 MySQL 或 SQLite。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "", "mysql":
		return OpenMySQL(cfg.MySQL)
	case "sqlite":
		return OpenSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// 唯一键冲突统一翻译成 gorm.ErrDuplicatedKey，电话号码的并发认领依赖它
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// OpenMySQL 打开 MySQL 连接并配置连接池。
func OpenMySQL(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("MySQL database connected successfully")
	return db, nil
}
