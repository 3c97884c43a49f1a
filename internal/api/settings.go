/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	bundle, err := a.settings.Load(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// saveSetting decodes the body into value, persists it under key and
// echoes the bundle as stored (after parse-time clamping).
func (a *API) saveSetting(w http.ResponseWriter, r *http.Request, key string, value any) {
	restaurantID := chi.URLParam(r, "restaurantID")

	if err := json.NewDecoder(r.Body).Decode(value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := a.settings.Save(r.Context(), restaurantID, key, value); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.publishAudit(r, events.EventAuditSettingsUpdate, events.Payload{
		"resource_type": "setting",
		"key":           key,
	})

	bundle, err := a.settings.Load(r.Context(), restaurantID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (a *API) handleScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	var value map[string]models.DayHours
	a.saveSetting(w, r, models.SettingWeeklySchedule, &value)
}

func (a *API) handleOverridesUpdate(w http.ResponseWriter, r *http.Request) {
	var value map[string]models.DateOverride
	a.saveSetting(w, r, models.SettingDateOverrides, &value)
}

func (a *API) handleDepositPolicyUpdate(w http.ResponseWriter, r *http.Request) {
	var value models.DepositPolicy
	a.saveSetting(w, r, models.SettingDepositPolicy, &value)
}

func (a *API) handleSpecialDepositsUpdate(w http.ResponseWriter, r *http.Request) {
	var value map[string]models.SpecialDepositRule
	a.saveSetting(w, r, models.SettingSpecialDeposits, &value)
}

func (a *API) handleDurationsUpdate(w http.ResponseWriter, r *http.Request) {
	var value models.DiningDurations
	a.saveSetting(w, r, models.SettingDiningDurations, &value)
}

func (a *API) handleBookingSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var value models.BookingSettings
	a.saveSetting(w, r, models.SettingBooking, &value)
}
