package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler 检查存储是否可用。
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check 对数据库执行 ping。
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		respond(c, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	ok(c, gin.H{"status": "ok"})
}
