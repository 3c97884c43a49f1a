/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"
)

// WebhookTarget is an external endpoint that receives signed event
// notifications for one restaurant (POS sync, CRM, custom dashboards).
type WebhookTarget struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	RestaurantID string `gorm:"type:uuid;index"`
	URL          string `gorm:"type:varchar(512)"`
	Secret       string `gorm:"type:varchar(128)"` // HMAC signing key, empty disables signing
	Events       string `gorm:"type:varchar(512)"` // comma-separated event filter, empty matches all
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WebhookLog records one delivery attempt.
type WebhookLog struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TargetID   string `gorm:"type:uuid;index"`
	Event      string `gorm:"type:varchar(64)"`
	StatusCode int
	Error      string `gorm:"type:text"`
	CreatedAt  time.Time
}
