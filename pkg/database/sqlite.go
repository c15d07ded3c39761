package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
	"org-directory-go/pkg/log"
)

// OpenSQLite 通过纯 Go 的 modernc 驱动打开 SQLite 文件，用于本地开发和测试。
// SQLite 只允许单写者，连接池固定为 1，事务内外的语句因此串行执行。
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=busy_timeout(5000)",
	}, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Infof("SQLite database opened at %s", path)
	return db, nil
}
