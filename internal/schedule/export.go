/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/models"
)

// ExportService renders reservation day sheets for calendar apps and the
// printed host stand sheet.
type ExportService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewExportService creates a new export service.
func NewExportService(db *gorm.DB, logger zerolog.Logger) *ExportService {
	return &ExportService{
		db:     db,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// ExportICalResult contains the iCal export data.
type ExportICalResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportToICal exports the confirmed book for a date range to iCal.
// Reservation times are interpreted in the restaurant's timezone.
func (s *ExportService) ExportToICal(ctx context.Context, restaurantID string, start, end time.Time) (*ExportICalResult, error) {
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		return nil, fmt.Errorf("restaurant not found: %w", err)
	}

	loc, err := time.LoadLocation(restaurant.Timezone)
	if err != nil {
		loc = time.UTC
	}

	var reservations []models.Reservation
	if err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND date >= ? AND date < ? AND status IN ?",
			restaurantID, start.Format("2006-01-02"), end.Format("2006-01-02"), models.CapacityStatuses).
		Order("date ASC, time ASC").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Seatwise//Day Sheet Export//EN\r\n")
	buf.WriteString(fmt.Sprintf("X-WR-CALNAME:%s Reservations\r\n", escapeICalText(restaurant.Name)))
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for _, res := range reservations {
		startsAt, ok := parseLocal(res.Date, res.Time, loc)
		if !ok {
			continue
		}
		endsAt, ok := parseLocal(res.Date, res.EndTime, loc)
		if !ok || !endsAt.After(startsAt) {
			endsAt = startsAt.Add(90 * time.Minute)
		}

		buf.WriteString("BEGIN:VEVENT\r\n")
		buf.WriteString(fmt.Sprintf("UID:%s@seatwise\r\n", res.ID))
		buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalTime(time.Now())))
		buf.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICalTime(startsAt)))
		buf.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICalTime(endsAt)))
		buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n",
			escapeICalText(fmt.Sprintf("%s (party of %d)", res.GuestName, res.PartySize))))

		desc := fmt.Sprintf("Status: %s", res.Status)
		if res.DepositRequired {
			desc += fmt.Sprintf("\nDeposit: %.2f", float64(res.DepositAmountCents)/100)
		}
		if res.Notes != "" {
			desc += "\nNotes: " + res.Notes
		}
		buf.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICalText(desc)))

		if res.GuestEmail != "" {
			buf.WriteString(fmt.Sprintf("ORGANIZER:mailto:%s\r\n", res.GuestEmail))
		}
		buf.WriteString("END:VEVENT\r\n")
	}

	buf.WriteString("END:VCALENDAR\r\n")

	filename := fmt.Sprintf("%s-reservations-%s.ics", slugify(restaurant.Name), start.Format("2006-01-02"))
	return &ExportICalResult{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

// ExportDaySheet renders a printable HTML day sheet for the host stand.
func (s *ExportService) ExportDaySheet(ctx context.Context, restaurantID, date string) ([]byte, error) {
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		return nil, fmt.Errorf("restaurant not found: %w", err)
	}

	var reservations []models.Reservation
	if err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND date = ? AND status IN ?",
			restaurantID, date, models.CapacityStatuses).
		Order("time ASC").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	buf.WriteString(fmt.Sprintf("<title>%s - %s</title>\n", htmlEscape(restaurant.Name), date))
	buf.WriteString("<style>body{font-family:sans-serif}table{border-collapse:collapse;width:100%}td,th{border:1px solid #ccc;padding:6px;text-align:left}</style>\n")
	buf.WriteString("</head>\n<body>\n")
	buf.WriteString(fmt.Sprintf("<h1>%s</h1>\n<h2>Day sheet for %s</h2>\n", htmlEscape(restaurant.Name), date))
	buf.WriteString("<table>\n<tr><th>Time</th><th>Guest</th><th>Party</th><th>Status</th><th>Deposit</th><th>Notes</th></tr>\n")

	totalCovers := 0
	for _, res := range reservations {
		depositCell := ""
		if res.DepositRequired {
			depositCell = fmt.Sprintf("%.2f", float64(res.DepositAmountCents)/100)
		}
		buf.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			res.Time, htmlEscape(res.GuestName), res.PartySize, res.Status, depositCell, htmlEscape(res.Notes)))
		totalCovers += res.PartySize
	}

	buf.WriteString("</table>\n")
	buf.WriteString(fmt.Sprintf("<p>%d reservations, %d covers</p>\n", len(reservations), totalCovers))
	buf.WriteString("</body>\n</html>\n")

	return buf.Bytes(), nil
}

func parseLocal(date, clock string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
