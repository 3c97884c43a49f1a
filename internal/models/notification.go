/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// NotificationChannel is the delivery channel for a guest notification.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelSMS   NotificationChannel = "sms"
)

// NotificationStatus tracks delivery state.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification is one guest-facing message (booking confirmation,
// cancellation notice, waitlist table-ready text) and its delivery record.
type Notification struct {
	ID           string              `gorm:"type:uuid;primaryKey"`
	RestaurantID string              `gorm:"type:uuid;index"`
	Channel      NotificationChannel `gorm:"type:varchar(8)"`
	Recipient    string
	Subject      string
	Body         string              `gorm:"type:text"`
	Status       NotificationStatus  `gorm:"type:varchar(8);index"`
	Error        string              `gorm:"type:text"`

	// ReferenceType/ReferenceID link back to the reservation or
	// waitlist entry that triggered the message.
	ReferenceType string `gorm:"type:varchar(32)"`
	ReferenceID   string `gorm:"type:uuid;index"`

	SentAt    *time.Time
	CreatedAt time.Time
}
