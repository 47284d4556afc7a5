package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatecrm/internal/app"
	"github.com/charlesng35/estatecrm/internal/handlers"
	"github.com/charlesng35/estatecrm/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, health *monitoring.Health) {
	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", disabledHealthHandler)
		r.GET("/api/health", disabledHealthHandler)
		return
	}

	handler := handlers.Health(health)
	r.GET("/health", handler)
	r.GET("/api/health", handler)
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
