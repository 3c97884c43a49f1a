/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seatwise/seatwise/internal/db"
	"github.com/seatwise/seatwise/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load restaurants, staff and settings from a fixture file",
	Long:  "Load restaurants, staff accounts and per-venue settings from a YAML fixture file. Existing rows matched by slug or email are updated in place, so seeding is safe to re-run.",
	RunE:  runSeed,
}

var seedFilePath string

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "Path to YAML fixture file (required)")
	seedCmd.MarkFlagRequired("file")
}

// seedFixture is the YAML fixture document shape.
type seedFixture struct {
	Restaurants []seedRestaurant `yaml:"restaurants"`
	Users       []seedUser       `yaml:"users"`
}

type seedRestaurant struct {
	Name     string `yaml:"name"`
	Slug     string `yaml:"slug"`
	Timezone string `yaml:"timezone"`
	Currency string `yaml:"currency"`
	Phone    string `yaml:"phone"`
	Address  string `yaml:"address"`

	// Settings sections are kept as loose maps and stored as JSON. Keys
	// use the same snake_case names the settings API accepts.
	WeeklySchedule map[string]any `yaml:"weekly_schedule"`
	DateOverrides  map[string]any `yaml:"date_overrides"`
	DepositPolicy  map[string]any `yaml:"deposit_policy"`
	SpecialRules   map[string]any `yaml:"special_deposit_rules"`
	Durations      map[string]int `yaml:"dining_durations"`
	Booking        map[string]any `yaml:"booking"`
}

type seedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`

	// Memberships maps restaurant slug to per-venue role.
	Memberships map[string]string `yaml:"memberships"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(seedFilePath)
	if err != nil {
		return fmt.Errorf("read fixture file: %w", err)
	}

	var fixture seedFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("parse fixture file: %w", err)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	restaurantIDs := make(map[string]string, len(fixture.Restaurants))
	for _, r := range fixture.Restaurants {
		id, err := seedOneRestaurant(database, r)
		if err != nil {
			return fmt.Errorf("seed restaurant %q: %w", r.Slug, err)
		}
		restaurantIDs[r.Slug] = id
		logger.Info().Str("slug", r.Slug).Str("id", id).Msg("restaurant seeded")
	}

	for _, u := range fixture.Users {
		if err := seedOneUser(database, u, restaurantIDs); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Email, err)
		}
		logger.Info().Str("email", u.Email).Msg("user seeded")
	}

	fmt.Printf("Seeded %d restaurants and %d users.\n", len(fixture.Restaurants), len(fixture.Users))
	return nil
}

func seedOneRestaurant(database *gorm.DB, r seedRestaurant) (string, error) {
	if r.Slug == "" || r.Name == "" {
		return "", fmt.Errorf("restaurant requires name and slug")
	}
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}

	var existing models.Restaurant
	err := database.Where("slug = ?", r.Slug).First(&existing).Error
	switch {
	case err == nil:
		existing.Name = r.Name
		existing.Timezone = r.Timezone
		existing.Currency = r.Currency
		existing.Phone = r.Phone
		existing.Address = r.Address
		if err := database.Save(&existing).Error; err != nil {
			return "", err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = models.Restaurant{
			ID:       uuid.NewString(),
			Name:     r.Name,
			Slug:     r.Slug,
			Timezone: r.Timezone,
			Currency: r.Currency,
			Phone:    r.Phone,
			Address:  r.Address,
		}
		if err := database.Create(&existing).Error; err != nil {
			return "", err
		}
	default:
		return "", err
	}

	settings := map[string]any{}
	if len(r.WeeklySchedule) > 0 {
		settings[models.SettingWeeklySchedule] = r.WeeklySchedule
	}
	if len(r.DateOverrides) > 0 {
		settings[models.SettingDateOverrides] = r.DateOverrides
	}
	if len(r.DepositPolicy) > 0 {
		settings[models.SettingDepositPolicy] = r.DepositPolicy
	}
	if len(r.SpecialRules) > 0 {
		settings[models.SettingSpecialDeposits] = r.SpecialRules
	}
	if len(r.Durations) > 0 {
		settings[models.SettingDiningDurations] = r.Durations
	}
	if len(r.Booking) > 0 {
		settings[models.SettingBooking] = r.Booking
	}
	for key, value := range settings {
		if err := upsertSetting(database, existing.ID, key, value); err != nil {
			return "", fmt.Errorf("setting %s: %w", key, err)
		}
	}

	return existing.ID, nil
}

func upsertSetting(database *gorm.DB, restaurantID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	row := models.RestaurantSetting{
		RestaurantID: restaurantID,
		Key:          key,
		Value:        string(raw),
	}
	return database.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func seedOneUser(database *gorm.DB, u seedUser, restaurantIDs map[string]string) error {
	if u.Email == "" || u.Password == "" {
		return fmt.Errorf("user requires email and password")
	}
	role := models.RoleName(u.Role)
	if role == "" {
		role = models.RoleHost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = database.Where("email = ?", u.Email).First(&user).Error
	switch {
	case err == nil:
		user.Name = u.Name
		user.Password = string(hash)
		user.Role = role
		if err := database.Save(&user).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ID:       uuid.NewString(),
			Email:    u.Email,
			Name:     u.Name,
			Password: string(hash),
			Role:     role,
		}
		if err := database.Create(&user).Error; err != nil {
			return err
		}
	default:
		return err
	}

	for slug, memberRole := range u.Memberships {
		restaurantID, ok := restaurantIDs[slug]
		if !ok {
			var restaurant models.Restaurant
			if err := database.Where("slug = ?", slug).First(&restaurant).Error; err != nil {
				return fmt.Errorf("membership slug %q: %w", slug, err)
			}
			restaurantID = restaurant.ID
		}
		link := models.RestaurantUser{
			RestaurantID: restaurantID,
			UserID:       user.ID,
			Role:         models.RoleName(memberRole),
		}
		if link.Role == "" {
			link.Role = role
		}
		err := database.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"role"}),
			}).
			Create(&link).Error
		if err != nil {
			return fmt.Errorf("membership %s: %w", slug, err)
		}
	}

	return nil
}
