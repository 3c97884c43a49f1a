/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"
)

// RoleName enumerates the staff RBAC roles.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleHost    RoleName = "host"
)

// User represents an authenticated staff account.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Password  string
	Name      string
	Role      RoleName `gorm:"type:varchar(16)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Restaurant is a tenant: one venue with its own schedule, policies and staff.
type Restaurant struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string
	Slug      string `gorm:"uniqueIndex"`
	Timezone  string `gorm:"type:varchar(32)"`
	Currency  string `gorm:"type:varchar(3)"`
	Phone     string
	Address   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RestaurantUser links staff accounts to restaurants with a per-venue role.
type RestaurantUser struct {
	RestaurantID string   `gorm:"type:uuid;primaryKey"`
	UserID       string   `gorm:"type:uuid;primaryKey"`
	Role         RoleName `gorm:"type:varchar(16)"`
	CreatedAt    time.Time
}

// ReservationStatus tracks the reservation lifecycle.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationArrived   ReservationStatus = "arrived"
	ReservationSeated    ReservationStatus = "seated"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationNoShow    ReservationStatus = "no_show"
	ReservationDeclined  ReservationStatus = "declined"
)

// CapacityStatuses are the statuses that consume seating capacity.
// Terminal statuses (completed, cancelled, no_show, declined) do not.
var CapacityStatuses = []ReservationStatus{
	ReservationPending,
	ReservationApproved,
	ReservationConfirmed,
	ReservationArrived,
	ReservationSeated,
}

// ConsumesCapacity reports whether a reservation in this status holds covers.
func (s ReservationStatus) ConsumesCapacity() bool {
	for _, cs := range CapacityStatuses {
		if s == cs {
			return true
		}
	}
	return false
}

// Reservation is a booked party for a concrete date and start time.
// Date is a calendar day in the restaurant's timezone (YYYY-MM-DD);
// Time and EndTime are wall-clock HH:MM.
type Reservation struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	RestaurantID string `gorm:"type:uuid;index:idx_reservations_day"`
	Date         string `gorm:"type:varchar(10);index:idx_reservations_day"`
	Time         string `gorm:"type:varchar(5)"`
	EndTime      string `gorm:"type:varchar(5)"`
	PartySize    int
	Status       ReservationStatus `gorm:"type:varchar(16);index"`
	GuestName    string
	GuestEmail   string
	GuestPhone   string
	Notes        string `gorm:"type:text"`

	DepositRequired    bool
	DepositAmountCents int64
	DepositPaymentRef  string

	SeatedAt    *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WaitlistStatus tracks a walk-in party on the waitlist.
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistNotified  WaitlistStatus = "notified"
	WaitlistSeated    WaitlistStatus = "seated"
	WaitlistCancelled WaitlistStatus = "cancelled"
	WaitlistNoShow    WaitlistStatus = "no_show"
)

// ActiveWaitlistStatuses are the statuses that occupy a queue position.
var ActiveWaitlistStatuses = []WaitlistStatus{WaitlistWaiting, WaitlistNotified}

// IsActive reports whether the entry still occupies a queue position.
func (s WaitlistStatus) IsActive() bool {
	return s == WaitlistWaiting || s == WaitlistNotified
}

// WaitlistEntry is a walk-in party queued for today. Positions for a given
// restaurant and date are dense and 1-based across active entries.
type WaitlistEntry struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	RestaurantID  string `gorm:"type:uuid;index:idx_waitlist_day"`
	Date          string `gorm:"type:varchar(10);index:idx_waitlist_day"`
	GuestName     string
	GuestPhone    string
	PartySize     int
	Status        WaitlistStatus `gorm:"type:varchar(16);index"`
	Position      int
	QuotedMinutes int
	QuotedAt      time.Time
	Notes         string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// APIKey grants programmatic access (widgets, POS sync jobs).
type APIKey struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	UserID     string `gorm:"type:uuid;index"`
	Name       string
	KeyHash    string `gorm:"uniqueIndex"`
	KeyPrefix  string `gorm:"type:varchar(16)"`
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// IsExpired reports whether the key is past its expiry. Keys without an
// expiry never expire.
func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}
