/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seatwise/seatwise/internal/auth"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

// publishAudit emits an audit event enriched with the acting user and
// request context. The audit service persists it off the bus.
func (a *API) publishAudit(r *http.Request, eventType events.EventType, payload events.Payload) {
	if payload == nil {
		payload = events.Payload{}
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		payload["user_id"] = claims.UserID
	}
	if restaurantID := chi.URLParam(r, "restaurantID"); restaurantID != "" {
		payload["restaurant_id"] = restaurantID
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		payload["ip_address"] = host
	} else {
		payload["ip_address"] = r.RemoteAddr
	}
	payload["user_agent"] = r.UserAgent()

	a.bus.Publish(eventType, payload)
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	query := a.db.WithContext(r.Context()).
		Model(&models.AuditLog{}).
		Where("restaurant_id = ?", restaurantID)

	if action := r.URL.Query().Get("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		start, err := time.Parse("2006-01-02", since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		query = query.Where("timestamp >= ?", start)
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		a.logger.Error().Err(err).Msg("audit count failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var logs []models.AuditLog
	if err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		a.logger.Error().Err(err).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":   total,
		"entries": logs,
	})
}
