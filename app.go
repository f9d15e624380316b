package main

import (
	"fmt"

	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/database"
	"github.com/thenithin342/Attendance-ios/internal/logging"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bootstrap loads the config and opens the logger and the database shared
// by every subcommand. The caller closes both.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("init database: %w", err)
	}

	logger.Info("database opened", zap.String("driver", cfg.Database.Driver))
	return cfg, logger, db, nil
}
