package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry 是 MySQL 的 ER_DUP_ENTRY 错误码。
const mysqlDuplicateEntry = 1062

// IsDuplicateKey 判断 err 是否为唯一约束冲突。
// 开启 TranslateError 时 GORM 会返回 gorm.ErrDuplicatedKey，这里同时兼容未翻译的驱动错误。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	// modernc sqlite 的错误类型不稳定，只能按消息匹配
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound 判断 err 是否为记录不存在。
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
