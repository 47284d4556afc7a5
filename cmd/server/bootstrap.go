package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/api"
	"github.com/charlesng35/estatecrm/internal/app"
	"github.com/charlesng35/estatecrm/internal/app/scheduler"
	iauth "github.com/charlesng35/estatecrm/internal/auth"
	"github.com/charlesng35/estatecrm/internal/database"
	"github.com/charlesng35/estatecrm/internal/monitoring"
	"github.com/charlesng35/estatecrm/internal/monitoring/checks"
	"github.com/charlesng35/estatecrm/internal/notifications"
	"github.com/charlesng35/estatecrm/internal/services"
	"github.com/charlesng35/estatecrm/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	Hub           *notifications.Hub
	Roles         *services.RoleCatalog
	Notifications *services.NotificationService
	Triggers      *services.NotificationTriggers
	Approvals     *services.ApprovalService
	Scheduler     *scheduler.Scheduler
	Router        *gin.Engine
}

// bootstrapRuntime initialises the database, notification services, scheduled jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background()); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup failed", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Roles, err = services.LoadRoleCatalog(ctx, stack.DB)
	if err != nil {
		return nil, fmt.Errorf("load role catalog: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	registry := notifications.NewRegistry()
	opts := []services.NotificationOption{
		services.WithRegistry(registry),
		services.WithFeedLimit(cfg.Notifications.FeedLimit),
	}
	if cfg.Notifications.Realtime.Enabled {
		stack.Hub = notifications.NewHub()
		opts = append(opts, services.WithPublisher(stack.Hub))
	}

	stack.Notifications, err = services.NewNotificationService(stack.DB, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	stack.Triggers = services.NewNotificationTriggers(stack.Notifications, stack.Roles)

	stack.Approvals, err = services.NewApprovalService(stack.DB, nil, stack.Triggers)
	if err != nil {
		return nil, fmt.Errorf("initialise approval service: %w", err)
	}
	if err := registry.Register(services.TicketContextType, stack.Approvals); err != nil {
		return nil, fmt.Errorf("register ticket actions: %w", err)
	}

	if cfg.Scheduler.Enabled {
		stack.Scheduler, err = scheduler.New(stack.DB, stack.Notifications, stack.Roles, scheduler.ConfigOptions(cfg.Scheduler)...)
		if err != nil {
			return nil, fmt.Errorf("initialise scheduler: %w", err)
		}
		if err := stack.Scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start scheduled jobs: %w", err)
		}
		log.Info("scheduler started", zap.Any("jobs", stack.Scheduler.Jobs()))
	}

	health := monitoring.NewHealth(checks.Database(stack.DB, 0))
	if stack.Scheduler != nil {
		health.Register(checks.Scheduler(stack.DB, stack.Scheduler.Jobs(), nil))
	}
	if stack.Hub != nil {
		health.Register(checks.Realtime(stack.Hub))
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Config:        cfg,
		Notifications: stack.Notifications,
		Approvals:     stack.Approvals,
		Roles:         stack.Roles,
		Hub:           stack.Hub,
		Health:        health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("scheduler stop: %w", ctx.Err()))
		}
	}

	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB))
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = closeDatabase(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql DB for closing: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
