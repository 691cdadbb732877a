package db

import (
	"fmt"
	"os"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection and runs the migrations. The caller
// owns the handle; nothing in this package keeps a global reference.
func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: utils.GetGormLogger(),
	})
	if err != nil {
		utils.LogError(err, "Error connecting to the database")
		return nil, err
	}

	err = database.AutoMigrate(
		&models.UserSubscription{},
		&models.UserAppointment{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		utils.LogError(err, "Error migrating database")
		return nil, err
	}

	utils.LogSuccess("Database connection successful")
	return database, nil
}
