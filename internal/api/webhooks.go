/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/models"
)

func (a *API) handleWebhooksList(w http.ResponseWriter, r *http.Request) {
	var targets []models.WebhookTarget
	err := a.db.WithContext(r.Context()).
		Where("restaurant_id = ?", chi.URLParam(r, "restaurantID")).
		Order("created_at ASC").
		Find(&targets).Error
	if err != nil {
		a.logger.Error().Err(err).Msg("list webhooks failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	out := make([]map[string]any, 0, len(targets))
	for _, t := range targets {
		out = append(out, webhookProjection(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleWebhooksCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL    string `json:"url"`
		Secret string `json:"secret"`
		Events string `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "invalid_url")
		return
	}

	target := models.WebhookTarget{
		ID:           uuid.NewString(),
		RestaurantID: chi.URLParam(r, "restaurantID"),
		URL:          req.URL,
		Secret:       req.Secret,
		Events:       req.Events,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := a.db.WithContext(r.Context()).Create(&target).Error; err != nil {
		a.logger.Error().Err(err).Msg("create webhook failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusCreated, webhookProjection(target))
}

func (a *API) handleWebhooksDelete(w http.ResponseWriter, r *http.Request) {
	result := a.db.WithContext(r.Context()).
		Where("id = ? AND restaurant_id = ?", chi.URLParam(r, "webhookID"), chi.URLParam(r, "restaurantID")).
		Delete(&models.WebhookTarget{})
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("delete webhook failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleWebhooksTest(w http.ResponseWriter, r *http.Request) {
	var target models.WebhookTarget
	err := a.db.WithContext(r.Context()).
		Where("id = ? AND restaurant_id = ?", chi.URLParam(r, "webhookID"), chi.URLParam(r, "restaurantID")).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("webhook lookup failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if err := a.webhooks.TestDelivery(r.Context(), &target); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "failed",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

// webhookProjection omits the signing secret from responses.
func webhookProjection(t models.WebhookTarget) map[string]any {
	return map[string]any{
		"id":         t.ID,
		"url":        t.URL,
		"events":     t.Events,
		"active":     t.Active,
		"has_secret": t.Secret != "",
		"created_at": t.CreatedAt,
	}
}
