package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"org-directory-go/internal/model"
	"org-directory-go/internal/service"
)

// OrganizationSearcher 是全文检索读模型，未配置 Elasticsearch 时为 nil。
type OrganizationSearcher interface {
	SearchOrganizations(ctx context.Context, query string, size int) ([]model.OrganizationDocument, error)
}

// OrganizationHandler 负责处理所有与组织相关的 API 请求。
type OrganizationHandler struct {
	orgService service.OrganizationService
	searcher   OrganizationSearcher
	paging     service.Paging
}

// NewOrganizationHandler 创建一个新的 OrganizationHandler 实例。
// paging.MaxSize 同时限制全文检索的返回条数。
func NewOrganizationHandler(orgService service.OrganizationService, searcher OrganizationSearcher, paging service.Paging) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService, searcher: searcher, paging: paging}
}

const (
	defaultFulltextSize = 20
	// Elasticsearch 默认的 index.max_result_window
	maxFulltextSize = 10000
)

// CreateOrganizationRequest 定义了创建组织 API 的请求体结构。
type CreateOrganizationRequest struct {
	Name         string   `json:"name" binding:"required"`
	BuildingID   *uint    `json:"buildingId"`
	PhoneNumbers []string `json:"phoneNumbers"`
	ActivityIDs  []uint   `json:"activityIds"`
}

// UpdateOrganizationRequest 定义了更新组织 API 的请求体结构，缺失的字段保持不变。
type UpdateOrganizationRequest struct {
	Name         *string      `json:"name"`
	BuildingID   nullableUint `json:"buildingId"`
	PhoneNumbers []string     `json:"phoneNumbers"`
	ActivityIDs  []uint       `json:"activityIds"`
}

// RadiusRequest 定义了半径查询的请求体结构。
type RadiusRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Radius    float64  `json:"radius"`
	Unit      string   `json:"unit"`
}

// Create 处理创建组织的请求。
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), service.OrganizationInput{
		Name:         req.Name,
		BuildingID:   req.BuildingID,
		PhoneNumbers: req.PhoneNumbers,
		ActivityIDs:  req.ActivityIDs,
	})
	if err != nil {
		fail(c, "CreateOrganization", err)
		return
	}
	created(c, org)
}

// List 处理分页列出组织的请求。
func (h *OrganizationHandler) List(c *gin.Context) {
	offset, limit, valid := pageQuery(c)
	if !valid {
		return
	}
	orgs, err := h.orgService.List(c.Request.Context(), offset, limit)
	if err != nil {
		fail(c, "ListOrganizations", err)
		return
	}
	ok(c, orgs)
}

// Get 处理获取单个组织的请求。
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	org, err := h.orgService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetOrganization", err)
		return
	}
	ok(c, org)
}

// Update 处理部分更新组织的请求。buildingId 为 null 时解除楼宇关联。
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}

	patch := service.OrganizationPatch{
		Name:          req.Name,
		ClearBuilding: req.BuildingID.Null,
		PhoneNumbers:  req.PhoneNumbers,
		ActivityIDs:   req.ActivityIDs,
	}
	if req.BuildingID.Set && !req.BuildingID.Null {
		patch.BuildingID = &req.BuildingID.Value
	}

	org, err := h.orgService.Update(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, "UpdateOrganization", err)
		return
	}
	ok(c, org)
}

// Delete 处理删除组织的请求。
func (h *OrganizationHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	deleted, err := h.orgService.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, "DeleteOrganization", err)
		return
	}
	if !deleted {
		respond(c, http.StatusNotFound, "organization not found", nil)
		return
	}
	ok(c, nil)
}

// Search 处理按名称搜索组织的请求。
func (h *OrganizationHandler) Search(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		badRequest(c, "name is required")
		return
	}
	orgs, err := h.orgService.SearchByName(c.Request.Context(), name)
	if err != nil {
		fail(c, "SearchOrganizations", err)
		return
	}
	ok(c, orgs)
}

// ByBuilding 处理按楼宇查询组织的请求。
func (h *OrganizationHandler) ByBuilding(c *gin.Context) {
	buildingID, valid := pathID(c, "building_id")
	if !valid {
		return
	}
	orgs, err := h.orgService.GetByBuilding(c.Request.Context(), buildingID)
	if err != nil {
		fail(c, "OrganizationsByBuilding", err)
		return
	}
	ok(c, orgs)
}

// ByActivity 处理按活动（含其全部子孙）查询组织的请求。
func (h *OrganizationHandler) ByActivity(c *gin.Context) {
	activityID, valid := pathID(c, "activity_id")
	if !valid {
		return
	}
	orgs, err := h.orgService.GetByActivity(c.Request.Context(), activityID)
	if err != nil {
		fail(c, "OrganizationsByActivity", err)
		return
	}
	ok(c, orgs)
}

// ByRadius 处理半径查询请求。
func (h *OrganizationHandler) ByRadius(c *gin.Context) {
	var req RadiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	orgs, err := h.orgService.FindWithinRadius(c.Request.Context(), service.GeoQuery{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Radius:    req.Radius,
		Unit:      req.Unit,
	})
	if err != nil {
		fail(c, "OrganizationsByRadius", err)
		return
	}
	ok(c, orgs)
}

// Fulltext 在检索索引中做全文搜索。未配置检索索引时返回 503。
func (h *OrganizationHandler) Fulltext(c *gin.Context) {
	if h.searcher == nil {
		respond(c, http.StatusServiceUnavailable, "full-text search is not configured", nil)
		return
	}
	q := c.Query("q")
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	size := defaultFulltextSize
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		size = n
	}
	if h.paging.MaxSize > 0 && size > h.paging.MaxSize {
		size = h.paging.MaxSize
	}
	if size > maxFulltextSize {
		size = maxFulltextSize
	}
	docs, err := h.searcher.SearchOrganizations(c.Request.Context(), q, size)
	if err != nil {
		fail(c, "FulltextOrganizations", err)
		return
	}
	ok(c, docs)
}
