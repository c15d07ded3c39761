package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers 汇集了所有路由需要的 handler。
type Handlers struct {
	Organizations *OrganizationHandler
	Activities    *ActivityHandler
	Phones        *PhoneHandler
	Buildings     *BuildingHandler
	Health        *HealthHandler
}

// RegisterRoutes 在 r 上注册全部 API 路由。
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/healthz", h.Health.Check)

	api := r.Group("/api/v1")
	{
		orgs := api.Group("/organizations")
		{
			orgs.POST("", h.Organizations.Create)
			orgs.GET("", h.Organizations.List)
			orgs.GET("/search", h.Organizations.Search)
			orgs.GET("/fulltext", h.Organizations.Fulltext)
			orgs.POST("/by_radius", h.Organizations.ByRadius)
			orgs.GET("/by_building/:building_id", h.Organizations.ByBuilding)
			orgs.GET("/by_activity/:activity_id", h.Organizations.ByActivity)
			orgs.GET("/:id", h.Organizations.Get)
			orgs.PUT("/:id", h.Organizations.Update)
			orgs.DELETE("/:id", h.Organizations.Delete)
		}

		phones := api.Group("/phones")
		{
			phones.POST("", h.Phones.CreateOrClaim)
			phones.GET("/by_number/:number", h.Phones.GetByNumber)
			phones.GET("/:id", h.Phones.Get)
			phones.DELETE("/:id", h.Phones.Delete)
		}

		activities := api.Group("/activities")
		{
			activities.POST("", h.Activities.Create)
			activities.GET("", h.Activities.List)
			activities.GET("/tree", h.Activities.Tree)
			activities.GET("/:id", h.Activities.Get)
			activities.GET("/:id/children", h.Activities.Children)
			activities.GET("/:id/descendants", h.Activities.Descendants)
			activities.PUT("/:id", h.Activities.Update)
			activities.DELETE("/:id", h.Activities.Delete)
		}

		buildings := api.Group("/buildings")
		{
			buildings.POST("", h.Buildings.Create)
			buildings.GET("", h.Buildings.List)
			buildings.GET("/:id", h.Buildings.Get)
			buildings.DELETE("/:id", h.Buildings.Delete)
		}
	}
}
