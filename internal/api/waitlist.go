/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/telemetry"
	"github.com/seatwise/seatwise/internal/waitlist"
)

func (a *API) handleWaitlistCheckIn(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	var req struct {
		Date       string `json:"date"`
		GuestName  string `json:"guest_name"`
		GuestPhone string `json:"guest_phone"`
		PartySize  int    `json:"party_size"`
		Notes      string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	}
	if req.PartySize < 1 {
		writeError(w, http.StatusBadRequest, "party_size_required")
		return
	}
	if req.GuestName == "" {
		writeError(w, http.StatusBadRequest, "guest_name_required")
		return
	}

	averages, err := a.booking.TurnTimeAverages(r.Context(), restaurantID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	entry, quote, err := a.waitlist.CheckIn(r.Context(), waitlist.CheckInInput{
		RestaurantID: restaurantID,
		Date:         req.Date,
		GuestName:    req.GuestName,
		GuestPhone:   req.GuestPhone,
		PartySize:    req.PartySize,
		Notes:        req.Notes,
	}, averages)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	telemetry.WaitlistCheckInsTotal.Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"entry": entry,
		"quote": quote,
	})
}

func (a *API) handleWaitlistList(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	entries, err := a.waitlist.ActiveEntries(r.Context(), restaurantID, date)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleWaitlistQuote(w http.ResponseWriter, r *http.Request) {
	a.serveWaitlistQuote(w, r, chi.URLParam(r, "restaurantID"))
}

// handlePublicWaitlistQuote lets a guest ask for an estimated wait before
// walking in, same answer the host stand sees.
func (a *API) handlePublicWaitlistQuote(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := a.restaurantBySlug(r)
	if !ok {
		writeError(w, http.StatusNotFound, "restaurant_not_found")
		return
	}
	a.serveWaitlistQuote(w, r, restaurant.ID)
}

func (a *API) serveWaitlistQuote(w http.ResponseWriter, r *http.Request, restaurantID string) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	partySize, err := strconv.Atoi(r.URL.Query().Get("party_size"))
	if err != nil || partySize < 1 {
		writeError(w, http.StatusBadRequest, "party_size_required")
		return
	}

	averages, err := a.booking.TurnTimeAverages(r.Context(), restaurantID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	entries, err := a.waitlist.ActiveEntries(r.Context(), restaurantID, date)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, waitlist.Estimate(partySize, entries, averages))
}

func (a *API) handleWaitlistTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status_required")
		return
	}

	entry, err := a.waitlist.Transition(r.Context(),
		chi.URLParam(r, "restaurantID"),
		chi.URLParam(r, "entryID"),
		models.WaitlistStatus(req.Status))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
