/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	ws "nhooyr.io/websocket"

	"github.com/seatwise/seatwise/internal/booking"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/payments"
	"github.com/seatwise/seatwise/internal/schedule"
	"github.com/seatwise/seatwise/internal/settings"
	"github.com/seatwise/seatwise/internal/waitlist"
	"github.com/seatwise/seatwise/internal/webhooks"
)

type wsFrame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func newEventsTestServer(t *testing.T) (*httptest.Server, *events.Bus, *gorm.DB) {
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

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, bus, db
}

func dialEvents(t *testing.T, ctx context.Context, srv *httptest.Server, token, query string) *ws.Conn {
	t.Helper()

	url := "ws" + srv.URL[len("http"):] + "/api/v1/events" + query
	conn, _, err := ws.Dial(ctx, url, &ws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *ws.Conn) wsFrame {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame wsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func TestEventsStreamDeliversBusEvents(t *testing.T) {
	srv, bus, db := newEventsTestServer(t)
	user := seedStaff(t, db, "host@harbor.example", models.RoleHost, "r1")
	token := staffToken(t, user, "r1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialEvents(t, ctx, srv, token, "")
	defer conn.Close(ws.StatusNormalClosure, "done")

	// Give the handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	bus.Publish(events.EventReservationCreated, events.Payload{
		"reservation_id": "res-1",
		"restaurant_id":  "r1",
	})

	frame := readFrame(t, ctx, conn)
	if frame.Type != string(events.EventReservationCreated) {
		t.Fatalf("frame type = %s, want %s", frame.Type, events.EventReservationCreated)
	}
	if frame.Payload["reservation_id"] != "res-1" {
		t.Fatalf("payload = %v", frame.Payload)
	}
}

func TestEventsStreamFiltersTypes(t *testing.T) {
	srv, bus, db := newEventsTestServer(t)
	user := seedStaff(t, db, "host@harbor.example", models.RoleHost, "r1")
	token := staffToken(t, user, "r1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialEvents(t, ctx, srv, token, "?types=reservation.cancelled")
	defer conn.Close(ws.StatusNormalClosure, "done")

	time.Sleep(50 * time.Millisecond)

	// The created event is outside the requested set; only the
	// cancellation should come through.
	bus.Publish(events.EventReservationCreated, events.Payload{"reservation_id": "res-1"})
	bus.Publish(events.EventReservationCancelled, events.Payload{"reservation_id": "res-2"})

	frame := readFrame(t, ctx, conn)
	if frame.Type != string(events.EventReservationCancelled) {
		t.Fatalf("frame type = %s, want %s", frame.Type, events.EventReservationCancelled)
	}
	if frame.Payload["reservation_id"] != "res-2" {
		t.Fatalf("payload = %v", frame.Payload)
	}
}
