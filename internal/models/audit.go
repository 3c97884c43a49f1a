/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"
)

// AuditAction identifies the type of audited operation.
type AuditAction string

// Audit action constants for all sensitive operations.
const (
	AuditActionAPIKeyCreate          AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke          AuditAction = "apikey.revoke"
	AuditActionSettingsUpdate        AuditAction = "settings.update"
	AuditActionReservationCreate     AuditAction = "reservation.create"
	AuditActionReservationTransition AuditAction = "reservation.transition"
	AuditActionWaitlistCheckIn       AuditAction = "waitlist.check_in"
	AuditActionWaitlistTransition    AuditAction = "waitlist.transition"
)

// AuditLog records sensitive operations for security and compliance.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null"`
	UserID       *string        `gorm:"type:uuid;index:idx_audit_user"`       // NULL for guest or system actions
	UserEmail    string         `gorm:"type:varchar(255)"`                    // Denormalized for readability
	RestaurantID *string        `gorm:"type:uuid;index:idx_audit_restaurant"` // NULL if platform-wide
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null"`
	ResourceType string         `gorm:"type:varchar(64)"` // "reservation", "apikey", "setting", etc.
	ResourceID   string         `gorm:"type:uuid"`        // ID of the affected resource
	Details      map[string]any `gorm:"type:jsonb;serializer:json"`
	IPAddress    string         `gorm:"type:varchar(45)"`
	UserAgent    string         `gorm:"type:varchar(512)"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
