/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seatwise/seatwise/internal/booking"
	"github.com/seatwise/seatwise/internal/models"
)

type reservationRequest struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	PartySize  int    `json:"party_size"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Notes      string `json:"notes"`
}

func (a *API) handlePublicReservationCreate(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := a.restaurantBySlug(r)
	if !ok {
		writeError(w, http.StatusNotFound, "restaurant_not_found")
		return
	}
	a.createReservation(w, r, restaurant.ID)
}

func (a *API) handleReservationCreate(w http.ResponseWriter, r *http.Request) {
	a.createReservation(w, r, chi.URLParam(r, "restaurantID"))
}

func (a *API) createReservation(w http.ResponseWriter, r *http.Request, restaurantID string) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := a.booking.Create(r.Context(), booking.CreateInput{
		RestaurantID: restaurantID,
		Date:         req.Date,
		Time:         req.Time,
		PartySize:    req.PartySize,
		GuestName:    req.GuestName,
		GuestEmail:   req.GuestEmail,
		GuestPhone:   req.GuestPhone,
		Notes:        req.Notes,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleReservationsList(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date_required")
		return
	}

	reservations, err := a.booking.ListDay(r.Context(), restaurantID, date)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (a *API) handleReservationGet(w http.ResponseWriter, r *http.Request) {
	res, err := a.booking.Get(r.Context(), chi.URLParam(r, "restaurantID"), chi.URLParam(r, "reservationID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleReservationTransition(w http.ResponseWriter, r *http.Request) {
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

	res, err := a.booking.Transition(r.Context(),
		chi.URLParam(r, "restaurantID"),
		chi.URLParam(r, "reservationID"),
		models.ReservationStatus(req.Status))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
