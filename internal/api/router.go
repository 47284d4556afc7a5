package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/app"
	iauth "github.com/charlesng35/estatecrm/internal/auth"
	"github.com/charlesng35/estatecrm/internal/cache"
	"github.com/charlesng35/estatecrm/internal/handlers"
	"github.com/charlesng35/estatecrm/internal/middleware"
	"github.com/charlesng35/estatecrm/internal/monitoring"
	"github.com/charlesng35/estatecrm/internal/monitoring/checks"
	"github.com/charlesng35/estatecrm/internal/notifications"
	"github.com/charlesng35/estatecrm/internal/services"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Config        *app.Config
	Notifications *services.NotificationService
	Approvals     *services.ApprovalService
	Roles         *services.RoleCatalog
	// Hub is optional; without it the stream endpoint answers 404.
	Hub *notifications.Hub
	// Health defaults to a database probe.
	Health *monitoring.Health
	// Counter backs the write throttle; it defaults to the store named in config.
	Counter cache.Counter
}

// NewRouter builds the Gin engine, wires middleware and registers the API routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Notifications == nil || deps.Approvals == nil {
		return nil, fmt.Errorf("notification and approval services must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.Config.Server.CORS.AllowedOrigins...))

	health := deps.Health
	if health == nil {
		health = monitoring.NewHealth(checks.Database(deps.DB, 0))
	}
	registerHealthRoutes(r, deps.Config, health)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	throttle := writeThrottle(deps)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Notifications, deps.Roles, deps.Hub), throttle)
	registerTicketRoutes(api, handlers.NewTicketHandler(deps.Approvals), throttle)

	if prom := deps.Config.Monitoring.Prometheus; prom.Enabled {
		endpoint := prom.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func writeThrottle(deps Dependencies) gin.HandlerFunc {
	cfg := deps.Config.Server.RateLimit
	counter := deps.Counter
	if counter == nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
		case "memory":
			counter = cache.NewMemoryStore()
		default:
			counter = cache.NewDatabaseStore(deps.DB)
		}
	}
	return middleware.RateLimit(counter, cfg.Requests, cfg.Window)
}
