package repository

import (
	"fmt"
	"os"

	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// The users table is shared with the main dashboard backend;
	// AutoMigrate only adds columns it is missing, never drops.
	if err := db.AutoMigrate(
		&models.User{},
		&models.Message{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
