package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatecrm/internal/handlers"
	"github.com/charlesng35/estatecrm/internal/middleware"
	"github.com/charlesng35/estatecrm/internal/models"
)

var managerRoles = []string{string(models.RoleSuperAdmin), string(models.RoleAdmin)}

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, throttle gin.HandlerFunc) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.GET("/stream", handler.Stream)
		group.POST("/read-all", handler.MarkAllRead)

		group.POST("", middleware.RequireRole(managerRoles...), throttle, handler.Create)
		group.GET("/:id", middleware.RequireRole(managerRoles...), handler.Details)
		group.GET("/:id/archives", middleware.RequireRole(managerRoles...), handler.Archives)
		group.GET("/:id/actions", middleware.RequireRole(managerRoles...), handler.Actions)

		group.POST("/:id/read", handler.MarkRead)
		group.POST("/:id/archive", handler.Archive)
		group.POST("/:id/pin", handler.Pin)
		group.POST("/:id/actions", throttle, handler.ExecuteAction)
		group.DELETE("/:id", handler.Delete)
	}
}

func registerTicketRoutes(api *gin.RouterGroup, handler *handlers.TicketHandler, throttle gin.HandlerFunc) {
	group := api.Group("/tickets")
	{
		group.POST("", throttle, handler.Create)
		group.GET("/:id", handler.Get)
		group.POST("/:id/votes", throttle, handler.Vote)
	}
}
