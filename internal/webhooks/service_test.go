/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Reservation{}, &models.WaitlistEntry{},
		&models.WebhookTarget{}, &models.WebhookLog{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// receiver collects webhook deliveries for assertions.
type receiver struct {
	mu        sync.Mutex
	bodies    [][]byte
	headers   []http.Header
	delivered chan struct{}
}

func newReceiver() *receiver {
	return &receiver{delivered: make(chan struct{}, 16)}
}

func (rc *receiver) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rc.mu.Lock()
		rc.bodies = append(rc.bodies, body)
		rc.headers = append(rc.headers, r.Header.Clone())
		rc.mu.Unlock()
		rc.delivered <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}
}

func (rc *receiver) wait(t *testing.T) ([]byte, http.Header) {
	t.Helper()
	select {
	case <-rc.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.bodies[len(rc.bodies)-1], rc.headers[len(rc.headers)-1]
}

func TestDeliversSignedReservationEvent(t *testing.T) {
	db := setupTestDB(t)
	bus := events.NewBus()
	svc := NewService(db, bus, zerolog.Nop())

	rc := newReceiver()
	endpoint := httptest.NewServer(rc.handler())
	defer endpoint.Close()

	res := models.Reservation{
		ID:           "res-1",
		RestaurantID: "r1",
		Date:         "2025-06-06",
		Time:         "19:00",
		PartySize:    4,
		Status:       models.ReservationConfirmed,
		GuestName:    "Ada",
	}
	if err := db.Create(&res).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	target := models.WebhookTarget{
		ID:           "wh-1",
		RestaurantID: "r1",
		URL:          endpoint.URL,
		Secret:       "topsecret",
		Active:       true,
	}
	if err := db.Create(&target).Error; err != nil {
		t.Fatalf("seed target: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	bus.Publish(events.EventReservationConfirmed, events.Payload{
		"reservation_id": "res-1",
		"restaurant_id":  "r1",
	})

	body, headers := rc.wait(t)

	if headers.Get("X-Seatwise-Event") != "reservation.confirmed" {
		t.Fatalf("event header = %s", headers.Get("X-Seatwise-Event"))
	}

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if headers.Get("X-Seatwise-Signature") != want {
		t.Fatalf("signature = %s, want %s", headers.Get("X-Seatwise-Signature"), want)
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Event != "reservation.confirmed" || payload.RestaurantID != "r1" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Reservation == nil || payload.Reservation.GuestName != "Ada" {
		t.Fatalf("reservation = %+v", payload.Reservation)
	}

	// Delivery attempt is logged.
	deadline := time.Now().Add(time.Second)
	for {
		var count int64
		if err := db.Model(&models.WebhookLog{}).Where("target_id = ?", "wh-1").Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("delivery log not written")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventFilterSkipsUnsubscribed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())

	target := models.WebhookTarget{Events: "reservation.created, reservation.cancelled"}
	if !svc.targetHandlesEvent(target, "reservation.created") {
		t.Fatal("should handle reservation.created")
	}
	if !svc.targetHandlesEvent(target, "reservation.cancelled") {
		t.Fatal("should handle reservation.cancelled")
	}
	if svc.targetHandlesEvent(target, "reservation.confirmed") {
		t.Fatal("should not handle reservation.confirmed")
	}

	all := models.WebhookTarget{}
	if !svc.targetHandlesEvent(all, "waitlist.notified") {
		t.Fatal("empty filter should match everything")
	}
}

func TestInactiveTargetNotFired(t *testing.T) {
	db := setupTestDB(t)
	bus := events.NewBus()
	svc := NewService(db, bus, zerolog.Nop())

	rc := newReceiver()
	endpoint := httptest.NewServer(rc.handler())
	defer endpoint.Close()

	res := models.Reservation{ID: "res-1", RestaurantID: "r1", Date: "2025-06-06", Time: "19:00", PartySize: 2, Status: models.ReservationPending, GuestName: "Ada"}
	if err := db.Create(&res).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	target := models.WebhookTarget{ID: "wh-1", RestaurantID: "r1", URL: endpoint.URL, Active: false}
	if err := db.Create(&target).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	bus.Publish(events.EventReservationCreated, events.Payload{"reservation_id": "res-1"})

	select {
	case <-rc.delivered:
		t.Fatal("inactive target should not receive deliveries")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTestDelivery(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())

	rc := newReceiver()
	endpoint := httptest.NewServer(rc.handler())
	defer endpoint.Close()

	target := &models.WebhookTarget{ID: "wh-1", RestaurantID: "r1", URL: endpoint.URL}
	if err := svc.TestDelivery(context.Background(), target); err != nil {
		t.Fatalf("test delivery: %v", err)
	}

	body, headers := rc.wait(t)
	if headers.Get("X-Seatwise-Event") != "test" {
		t.Fatalf("event = %s", headers.Get("X-Seatwise-Event"))
	}
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Event != "test" {
		t.Fatalf("payload event = %s", payload.Event)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	target.URL = failing.URL
	if err := svc.TestDelivery(context.Background(), target); err == nil {
		t.Fatal("expected error for failing endpoint")
	}
}
