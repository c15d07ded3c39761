// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"org-directory-go/internal/service"
	"org-directory-go/pkg/log"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": data})
}

func ok(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "success", data)
}

func created(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, "success", data)
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, message, nil)
}

// statusOf 把业务错误映射为 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDepthExceeded),
		errors.Is(err, service.ErrInvalidParent),
		errors.Is(err, service.ErrInvalidGeoQuery),
		errors.Is(err, service.ErrInvalidBuilding),
		errors.Is(err, service.ErrInvalidOrganization),
		errors.Is(err, service.ErrDuplicatePhoneNumber):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateAddress),
		errors.Is(err, service.ErrPhoneReconciliationFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录并返回错误。5xx 不向客户端暴露内部错误信息。
func fail(c *gin.Context, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+": internal error", err)
		respond(c, status, "internal server error", nil)
		return
	}
	log.Debugf("%s: rejected with %d: %v", op, status, err)
	respond(c, status, err.Error(), nil)
}

// pathID 解析路径中的无符号整数 ID，失败时直接返回 400。
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pageQuery 读取 skip/limit 查询参数，缺省为 0，具体上下限由 service 层规范化。
func pageQuery(c *gin.Context) (offset, limit int, valid bool) {
	var err error
	if s := c.Query("skip"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			badRequest(c, "invalid skip")
			return 0, 0, false
		}
	}
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			badRequest(c, "invalid limit")
			return 0, 0, false
		}
	}
	return offset, limit, true
}

// nullableUint 区分字段缺失、显式 null 和具体数值，用于部分更新。
type nullableUint struct {
	Set   bool
	Null  bool
	Value uint
}

func (n *nullableUint) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Null = true
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}
