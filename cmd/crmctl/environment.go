package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/app"
	"github.com/charlesng35/estatecrm/internal/database"
	"github.com/charlesng35/estatecrm/internal/services"
)

type rootOptions struct {
	configPath string
}

// environment is the subset of the server runtime a command needs.
type environment struct {
	cfg   *app.Config
	db    *gorm.DB
	roles *services.RoleCatalog
}

// open loads configuration, connects to the database and applies migrations.
func (o *rootOptions) open(ctx context.Context) (*environment, error) {
	cfg, err := app.LoadConfigPath(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	db, err := database.Open(cfg.Database.ConnectionConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	env := &environment{cfg: cfg, db: db}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	env.roles, err = services.LoadRoleCatalog(ctx, db)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("load role catalog: %w", err)
	}
	return env, nil
}

func (e *environment) notificationService() (*services.NotificationService, error) {
	return services.NewNotificationService(e.db, nil, services.WithFeedLimit(e.cfg.Notifications.FeedLimit))
}

func (e *environment) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
