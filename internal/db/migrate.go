/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"github.com/seatwise/seatwise/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		// Platform-level models
		&models.User{},
		&models.APIKey{},

		// Tenant-level models
		&models.Restaurant{},
		&models.RestaurantUser{},
		&models.RestaurantSetting{},

		// Booking data
		&models.Reservation{},
		&models.WaitlistEntry{},

		// Guest messaging
		&models.Notification{},

		// Integrations
		&models.WebhookTarget{},
		&models.WebhookLog{},

		// Compliance
		&models.AuditLog{},
	)
}
