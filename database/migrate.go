package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"crmchat_backend/internal/config"
	"crmchat_backend/internal/logger"
	"crmchat_backend/internal/models"
	chatmodels "crmchat_backend/internal/models/chat"
)

var gormDB *gorm.DB

// ConnectGorm opens (or reuses) the GORM connection from config.
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// Migrate runs the schema migration against an existing connection.
func Migrate(db *gorm.DB) error {
	// Chat tables live in their own schema.
	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS chat").Error; err != nil {
		return fmt.Errorf("failed to create chat schema: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&chatmodels.Room{},
		&chatmodels.RoomMember{},
		&chatmodels.Message{},
		&chatmodels.MessageReadReceipt{},
		&chatmodels.MessageAttachment{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	logger.Info("database migration completed")
	return nil
}
