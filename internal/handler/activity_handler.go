package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"org-directory-go/internal/service"
)

// ActivityHandler 负责处理活动树相关的 API 请求。
type ActivityHandler struct {
	activityService service.ActivityService
}

// NewActivityHandler 创建一个新的 ActivityHandler 实例。
func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// CreateActivityRequest 定义了创建活动 API 的请求体结构。
type CreateActivityRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID *uint  `json:"parentId"`
}

// UpdateActivityRequest 定义了更新活动 API 的请求体结构。parentId 为 null 表示移为根节点。
type UpdateActivityRequest struct {
	Name     *string      `json:"name"`
	ParentID nullableUint `json:"parentId"`
}

// Create 处理创建活动的请求。
func (h *ActivityHandler) Create(c *gin.Context) {
	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	activity, err := h.activityService.Create(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		fail(c, "CreateActivity", err)
		return
	}
	created(c, activity)
}

// List 处理分页列出活动的请求。
func (h *ActivityHandler) List(c *gin.Context) {
	offset, limit, valid := pageQuery(c)
	if !valid {
		return
	}
	activities, err := h.activityService.List(c.Request.Context(), offset, limit)
	if err != nil {
		fail(c, "ListActivities", err)
		return
	}
	ok(c, activities)
}

// Tree 返回活动森林；提供 parent_id 时只返回该节点之下的部分。
func (h *ActivityHandler) Tree(c *gin.Context) {
	var parentID *uint
	if s := c.Query("parent_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			badRequest(c, "invalid parent_id")
			return
		}
		v := uint(id)
		parentID = &v
	}
	tree, err := h.activityService.Tree(c.Request.Context(), parentID)
	if err != nil {
		fail(c, "ActivityTree", err)
		return
	}
	ok(c, tree)
}

// Get 处理获取单个活动的请求。
func (h *ActivityHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	activity, err := h.activityService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetActivity", err)
		return
	}
	ok(c, activity)
}

// Children 返回直接子节点。
func (h *ActivityHandler) Children(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	children, err := h.activityService.Children(c.Request.Context(), id)
	if err != nil {
		fail(c, "ActivityChildren", err)
		return
	}
	ok(c, children)
}

// Descendants 返回全部子孙节点的 ID。
func (h *ActivityHandler) Descendants(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ids, err := h.activityService.DescendantIDs(c.Request.Context(), id)
	if err != nil {
		fail(c, "ActivityDescendants", err)
		return
	}
	ok(c, ids)
}

// Update 处理部分更新活动的请求。
func (h *ActivityHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}

	patch := service.ActivityPatch{Name: req.Name, ToRoot: req.ParentID.Null}
	if req.ParentID.Set && !req.ParentID.Null {
		patch.ParentID = &req.ParentID.Value
	}
	activity, err := h.activityService.Update(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, "UpdateActivity", err)
		return
	}
	ok(c, activity)
}

// Delete 删除活动及其全部子孙。
func (h *ActivityHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	deleted, err := h.activityService.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, "DeleteActivity", err)
		return
	}
	if !deleted {
		respond(c, http.StatusNotFound, "activity not found", nil)
		return
	}
	ok(c, nil)
}
