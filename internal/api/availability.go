/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (a *API) handlePublicRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := a.restaurantBySlug(r)
	if !ok {
		writeError(w, http.StatusNotFound, "restaurant_not_found")
		return
	}
	// Public projection only; no phone/address admin fields beyond display.
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       restaurant.ID,
		"name":     restaurant.Name,
		"slug":     restaurant.Slug,
		"timezone": restaurant.Timezone,
		"phone":    restaurant.Phone,
		"address":  restaurant.Address,
	})
}

func (a *API) handlePublicAvailability(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := a.restaurantBySlug(r)
	if !ok {
		writeError(w, http.StatusNotFound, "restaurant_not_found")
		return
	}
	a.serveAvailability(w, r, restaurant.ID)
}

func (a *API) handleAvailability(w http.ResponseWriter, r *http.Request) {
	a.serveAvailability(w, r, chi.URLParam(r, "restaurantID"))
}

func (a *API) serveAvailability(w http.ResponseWriter, r *http.Request, restaurantID string) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date_required")
		return
	}
	partySize, err := strconv.Atoi(r.URL.Query().Get("party_size"))
	if err != nil || partySize < 1 {
		writeError(w, http.StatusBadRequest, "party_size_required")
		return
	}
	excludeID := r.URL.Query().Get("exclude_reservation_id")

	day, err := a.booking.Availability(r.Context(), restaurantID, date, partySize, excludeID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (a *API) handlePublicDepositQuote(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := a.restaurantBySlug(r)
	if !ok {
		writeError(w, http.StatusNotFound, "restaurant_not_found")
		return
	}

	date := r.URL.Query().Get("date")
	partySize, err := strconv.Atoi(r.URL.Query().Get("party_size"))
	if err != nil || partySize < 1 {
		writeError(w, http.StatusBadRequest, "party_size_required")
		return
	}

	quote, err := a.booking.QuoteDeposit(r.Context(), restaurant.ID, date, partySize)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleTurnTimes(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")
	averages, err := a.booking.TurnTimeAverages(r.Context(), restaurantID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, averages)
}
