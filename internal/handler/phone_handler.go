package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"org-directory-go/internal/service"
)

// PhoneHandler 负责处理电话号码相关的 API 请求。
type PhoneHandler struct {
	phoneService service.PhoneService
}

// NewPhoneHandler 创建一个新的 PhoneHandler 实例。
func NewPhoneHandler(phoneService service.PhoneService) *PhoneHandler {
	return &PhoneHandler{phoneService: phoneService}
}

// CreatePhoneRequest 定义了登记电话号码 API 的请求体结构。
type CreatePhoneRequest struct {
	Number         string `json:"number" binding:"required"`
	OrganizationID *uint  `json:"organizationId"`
}

// CreateOrClaim 登记号码；号码已存在时把归属转移给请求中的组织。
func (h *PhoneHandler) CreateOrClaim(c *gin.Context) {
	var req CreatePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	phone, err := h.phoneService.CreateOrClaim(c.Request.Context(), req.Number, req.OrganizationID)
	if err != nil {
		fail(c, "CreateOrClaimPhone", err)
		return
	}
	ok(c, phone)
}

// Get 处理获取单个号码的请求。
func (h *PhoneHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	phone, err := h.phoneService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetPhone", err)
		return
	}
	ok(c, phone)
}

// GetByNumber 按号码查询。
func (h *PhoneHandler) GetByNumber(c *gin.Context) {
	phone, err := h.phoneService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		fail(c, "GetPhoneByNumber", err)
		return
	}
	ok(c, phone)
}

// Delete 删除号码。
func (h *PhoneHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	deleted, err := h.phoneService.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, "DeletePhone", err)
		return
	}
	if !deleted {
		respond(c, http.StatusNotFound, "phone not found", nil)
		return
	}
	ok(c, nil)
}
