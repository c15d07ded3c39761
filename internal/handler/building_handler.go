package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"org-directory-go/internal/service"
)

// BuildingHandler 负责处理楼宇相关的 API 请求。
type BuildingHandler struct {
	buildingService service.BuildingService
}

// NewBuildingHandler 创建一个新的 BuildingHandler 实例。
func NewBuildingHandler(buildingService service.BuildingService) *BuildingHandler {
	return &BuildingHandler{buildingService: buildingService}
}

// CreateBuildingRequest 定义了创建楼宇 API 的请求体结构。
type CreateBuildingRequest struct {
	Address   string   `json:"address" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// Create 处理创建楼宇的请求。
func (h *BuildingHandler) Create(c *gin.Context) {
	var req CreateBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	building, err := h.buildingService.Create(c.Request.Context(), service.BuildingInput{
		Address:   req.Address,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		fail(c, "CreateBuilding", err)
		return
	}
	created(c, building)
}

// List 处理分页列出楼宇的请求。
func (h *BuildingHandler) List(c *gin.Context) {
	offset, limit, valid := pageQuery(c)
	if !valid {
		return
	}
	buildings, err := h.buildingService.List(c.Request.Context(), offset, limit)
	if err != nil {
		fail(c, "ListBuildings", err)
		return
	}
	ok(c, buildings)
}

// Get 处理获取单个楼宇的请求。
func (h *BuildingHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	building, err := h.buildingService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetBuilding", err)
		return
	}
	ok(c, building)
}

// Delete 删除楼宇及楼内的组织。
func (h *BuildingHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	deleted, err := h.buildingService.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, "DeleteBuilding", err)
		return
	}
	if !deleted {
		respond(c, http.StatusNotFound, "building not found", nil)
		return
	}
	ok(c, nil)
}
