/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/auth"
	"github.com/seatwise/seatwise/internal/booking"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/payments"
	"github.com/seatwise/seatwise/internal/schedule"
	"github.com/seatwise/seatwise/internal/settings"
	"github.com/seatwise/seatwise/internal/waitlist"
	"github.com/seatwise/seatwise/internal/webhooks"
)

var testSecret = []byte("test-secret-test-secret-test-secret")

func newTestAPI(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.APIKey{},
		&models.Restaurant{}, &models.RestaurantUser{}, &models.RestaurantSetting{},
		&models.Reservation{}, &models.WaitlistEntry{}, &models.Notification{},
		&models.WebhookTarget{}, &models.WebhookLog{}, &models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()
	logger := zerolog.Nop()
	store := settings.NewStore(db, nil, bus, 30, 0, logger)
	bookingSvc := booking.NewService(db, store, payments.NoopProcessor{}, bus, logger)
	waitlistSvc := waitlist.NewService(db, bus, logger)
	exportSvc := schedule.NewExportService(db, logger)
	webhookSvc := webhooks.NewService(db, bus, logger)

	a := New(db, testSecret, bookingSvc, waitlistSvc, store, exportSvc, webhookSvc, bus, logger)
	r := chi.NewRouter()
	a.Routes(r)
	return r, db
}

func seedRestaurant(t *testing.T, db *gorm.DB) models.Restaurant {
	t.Helper()

	restaurant := models.Restaurant{
		ID:       "r1",
		Name:     "Harbor Table",
		Slug:     "harbor-table",
		Timezone: "UTC",
		Currency: "USD",
	}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	setting := models.RestaurantSetting{
		RestaurantID: restaurant.ID,
		Key:          models.SettingWeeklySchedule,
		Value: `{"monday":{"open":"17:00","close":"22:00","max_covers":20},
			"tuesday":{"open":"17:00","close":"22:00","max_covers":20},
			"wednesday":{"open":"17:00","close":"22:00","max_covers":20},
			"thursday":{"open":"17:00","close":"22:00","max_covers":20},
			"friday":{"open":"17:00","close":"22:00","max_covers":20},
			"saturday":{"open":"17:00","close":"22:00","max_covers":20},
			"sunday":{"open":"17:00","close":"22:00","max_covers":20}}`,
	}
	if err := db.Create(&setting).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return restaurant
}

func seedStaff(t *testing.T, db *gorm.DB, email string, role models.RoleName, restaurantID string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		ID:       "u-" + email,
		Email:    email,
		Password: string(hash),
		Name:     "Staff",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if restaurantID != "" {
		link := models.RestaurantUser{RestaurantID: restaurantID, UserID: user.ID, Role: role}
		if err := db.Create(&link).Error; err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}
	return user
}

func staffToken(t *testing.T, user models.User, restaurantID string) string {
	t.Helper()

	token, err := auth.Issue(testSecret, auth.Claims{
		UserID:       user.ID,
		Roles:        []string{string(user.Role)},
		RestaurantID: restaurantID,
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	r, _ := newTestAPI(t)

	rr := doJSON(t, r, "GET", "/api/v1/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPublicAvailability(t *testing.T) {
	r, db := newTestAPI(t)
	seedRestaurant(t, db)

	rr := doJSON(t, r, "GET", "/api/v1/public/restaurants/harbor-table/availability?date=2025-06-06&party_size=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var day struct {
		Slots []struct {
			Time      string `json:"time"`
			Available bool   `json:"available"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &day); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(day.Slots) == 0 {
		t.Fatal("expected slots")
	}
	if day.Slots[0].Time != "17:00" || !day.Slots[0].Available {
		t.Fatalf("first slot = %+v", day.Slots[0])
	}
}

func TestPublicAvailabilityUnknownSlug(t *testing.T) {
	r, _ := newTestAPI(t)

	rr := doJSON(t, r, "GET", "/api/v1/public/restaurants/nope/availability?date=2025-06-06&party_size=2", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPublicReservationCreateAndConflict(t *testing.T) {
	r, db := newTestAPI(t)
	seedRestaurant(t, db)

	body := map[string]any{
		"date":       "2025-06-06",
		"time":       "19:00",
		"party_size": 12,
		"guest_name": "Ada",
	}
	rr := doJSON(t, r, "POST", "/api/v1/public/restaurants/harbor-table/reservations", "", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	// Room holds 20; a second twelve-top at the same time must lose.
	rr = doJSON(t, r, "POST", "/api/v1/public/restaurants/harbor-table/reservations", "", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body=%s", rr.Code, rr.Body.String())
	}
}

func TestLogin(t *testing.T) {
	r, db := newTestAPI(t)
	restaurant := seedRestaurant(t, db)
	seedStaff(t, db, "host@example.com", models.RoleHost, restaurant.ID)

	rr := doJSON(t, r, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":         "host@example.com",
		"password":      "hunter22",
		"restaurant_id": restaurant.ID,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token")
	}

	rr = doJSON(t, r, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "host@example.com",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rr.Code)
	}
}

func TestStaffEndpointsRequireAuth(t *testing.T) {
	r, db := newTestAPI(t)
	seedRestaurant(t, db)

	rr := doJSON(t, r, "GET", "/api/v1/restaurants/r1/reservations?date=2025-06-06", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestTenantIsolation(t *testing.T) {
	r, db := newTestAPI(t)
	seedRestaurant(t, db)
	other := models.Restaurant{ID: "r2", Name: "Elsewhere", Slug: "elsewhere", Timezone: "UTC"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	user := seedStaff(t, db, "host@example.com", models.RoleHost, "r2")
	token := staffToken(t, user, "r2")

	rr := doJSON(t, r, "GET", "/api/v1/restaurants/r1/reservations?date=2025-06-06", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body=%s", rr.Code, rr.Body.String())
	}
}

func TestSettingsRequireManagerRole(t *testing.T) {
	r, db := newTestAPI(t)
	restaurant := seedRestaurant(t, db)
	host := seedStaff(t, db, "host@example.com", models.RoleHost, restaurant.ID)
	manager := seedStaff(t, db, "mgr@example.com", models.RoleManager, restaurant.ID)

	policy := map[string]any{"enabled": true, "amount_cents": 2500, "min_party": 6}

	rr := doJSON(t, r, "PUT", "/api/v1/restaurants/r1/settings/deposit-policy",
		staffToken(t, host, restaurant.ID), policy)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("host status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, r, "PUT", "/api/v1/restaurants/r1/settings/deposit-policy",
		staffToken(t, manager, restaurant.ID), policy)
	if rr.Code != http.StatusOK {
		t.Fatalf("manager status = %d body=%s", rr.Code, rr.Body.String())
	}

	var bundle struct {
		DepositPolicy models.DepositPolicy `json:"deposit_policy"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bundle.DepositPolicy.Enabled || bundle.DepositPolicy.AmountCents != 2500 {
		t.Fatalf("policy = %+v", bundle.DepositPolicy)
	}
}

func TestWaitlistCheckInAndList(t *testing.T) {
	r, db := newTestAPI(t)
	restaurant := seedRestaurant(t, db)
	host := seedStaff(t, db, "host@example.com", models.RoleHost, restaurant.ID)
	token := staffToken(t, host, restaurant.ID)

	rr := doJSON(t, r, "POST", "/api/v1/restaurants/r1/waitlist", token, map[string]any{
		"date":        "2025-06-06",
		"guest_name":  "Ada",
		"guest_phone": "+15551234",
		"party_size":  4,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var created struct {
		Entry models.WaitlistEntry `json:"entry"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Entry.Position != 1 {
		t.Fatalf("position = %d, want 1", created.Entry.Position)
	}

	rr = doJSON(t, r, "GET", "/api/v1/restaurants/r1/waitlist?date=2025-06-06", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var entries []models.WaitlistEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestReservationTransitionEndpoint(t *testing.T) {
	r, db := newTestAPI(t)
	restaurant := seedRestaurant(t, db)
	host := seedStaff(t, db, "host@example.com", models.RoleHost, restaurant.ID)
	token := staffToken(t, host, restaurant.ID)

	rr := doJSON(t, r, "POST", "/api/v1/restaurants/r1/reservations", token, map[string]any{
		"date":       "2025-06-06",
		"time":       "18:00",
		"party_size": 2,
		"guest_name": "Ada",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	var res models.Reservation
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doJSON(t, r, "POST", "/api/v1/restaurants/r1/reservations/"+res.ID+"/transition", token,
		map[string]string{"status": "confirmed"})
	if rr.Code != http.StatusOK {
		t.Fatalf("transition status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, r, "POST", "/api/v1/restaurants/r1/reservations/"+res.ID+"/transition", token,
		map[string]string{"status": "completed"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid transition status = %d, want 422", rr.Code)
	}
}

func TestExportDaySheet(t *testing.T) {
	r, db := newTestAPI(t)
	restaurant := seedRestaurant(t, db)
	host := seedStaff(t, db, "host@example.com", models.RoleHost, restaurant.ID)
	token := staffToken(t, host, restaurant.ID)

	rr := doJSON(t, r, "POST", "/api/v1/restaurants/r1/reservations", token, map[string]any{
		"date":       "2025-06-06",
		"time":       "18:00",
		"party_size": 4,
		"guest_name": "Ada",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}

	rr = doJSON(t, r, "GET", "/api/v1/restaurants/r1/export/day-sheet?date=2025-06-06", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d body=%s", rr.Code, rr.Body.String())
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("Ada")) {
		t.Fatal("day sheet should contain the guest name")
	}
}

func TestPublicWaitlistQuote(t *testing.T) {
	r, db := newTestAPI(t)
	seedRestaurant(t, db)

	// Two four-tops already waiting today.
	today := time.Now().Format("2006-01-02")
	for i, name := range []string{"Ada", "Grace"} {
		entry := models.WaitlistEntry{
			ID:           name,
			RestaurantID: "r1",
			Date:         today,
			GuestName:    name,
			PartySize:    4,
			Status:       models.WaitlistWaiting,
			Position:     i + 1,
			QuotedAt:     time.Now(),
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	rr := doJSON(t, r, "GET", "/api/v1/public/restaurants/harbor-table/waitlist-quote?party_size=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("quote status = %d body=%s", rr.Code, rr.Body.String())
	}
	var quote struct {
		EstimatedMinutes int `json:"estimated_minutes"`
		PartiesAhead     int `json:"parties_ahead"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quote.PartiesAhead != 2 {
		t.Errorf("parties ahead = %d, want 2", quote.PartiesAhead)
	}
	if quote.EstimatedMinutes <= 0 {
		t.Errorf("estimated minutes = %d, want > 0", quote.EstimatedMinutes)
	}

	rr = doJSON(t, r, "GET", "/api/v1/public/restaurants/harbor-table/waitlist-quote", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing party size status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, r, "GET", "/api/v1/public/restaurants/nowhere/waitlist-quote?party_size=2", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown slug status = %d, want 404", rr.Code)
	}
}
