/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/auth"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

const tokenTTL = 24 * time.Hour

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RestaurantID string `json:"restaurant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "credentials_required")
		return
	}

	var user models.User
	err := a.db.WithContext(r.Context()).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("login lookup failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	roles := []string{string(user.Role)}
	restaurantID := req.RestaurantID
	if restaurantID != "" {
		var membership models.RestaurantUser
		err := a.db.WithContext(r.Context()).
			Where("restaurant_id = ? AND user_id = ?", restaurantID, user.ID).
			First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && user.Role != models.RoleAdmin {
			writeError(w, http.StatusForbidden, "restaurant_access_denied")
			return
		}
		if err == nil {
			roles = append(roles, string(membership.Role))
		}
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID:       user.ID,
		Roles:        roles,
		RestaurantID: restaurantID,
	}, tokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	keys, err := auth.ListAPIKeys(a.db, claims.UserID)
	if err != nil {
		a.logger.Error().Err(err).Msg("list api keys failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]any{
			"id":           k.ID,
			"name":         k.Name,
			"key_prefix":   k.KeyPrefix,
			"last_used_at": k.LastUsedAt,
			"expires_at":   k.ExpiresAt,
			"revoked_at":   k.RevokedAt,
			"created_at":   k.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req struct {
		Name       string `json:"name"`
		ExpiryDays int    `json:"expiry_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.ExpiryDays <= 0 {
		req.ExpiryDays = 90
	}

	plaintext, key, err := auth.GenerateAPIKey(claims.UserID, req.Name, time.Duration(req.ExpiryDays)*24*time.Hour)
	if err != nil {
		a.logger.Error().Err(err).Msg("generate api key failed")
		writeError(w, http.StatusInternalServerError, "keygen_error")
		return
	}
	if err := a.db.WithContext(r.Context()).Create(key).Error; err != nil {
		a.logger.Error().Err(err).Msg("save api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publishAudit(r, events.EventAuditAPIKeyCreate, events.Payload{
		"resource_type": "apikey",
		"resource_id":   key.ID,
		"name":          key.Name,
	})

	// The plaintext key is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         key.ID,
		"name":       key.Name,
		"key":        plaintext,
		"key_prefix": key.KeyPrefix,
		"expires_at": key.ExpiresAt,
	})
}

func (a *API) handleAPIKeysRevoke(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	err := auth.RevokeAPIKey(a.db, chi.URLParam(r, "keyID"), claims.UserID)
	if errors.Is(err, auth.ErrAPIKeyNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("revoke api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	a.publishAudit(r, events.EventAuditAPIKeyRevoke, events.Payload{
		"resource_type": "apikey",
		"resource_id":   chi.URLParam(r, "keyID"),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
