/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package slots

import (
	"testing"

	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/schedule"
)

func openDay() schedule.Effective {
	return schedule.Effective{Open: "17:00", Close: "22:00", MaxCovers: 40}
}

func baseParams() Params {
	return Params{
		PartySize:             4,
		Schedule:              openDay(),
		Durations:             models.DiningDurations{"4": 90, "8": 120},
		SlotIntervalMinutes:   30,
		LastSeatingBufferMins: 90,
	}
}

func slotByTime(t *testing.T, list []Slot, at string) Slot {
	t.Helper()
	for _, s := range list {
		if s.Time == at {
			return s
		}
	}
	t.Fatalf("no slot at %s in %+v", at, list)
	return Slot{}
}

func TestGenerateOpenDayNoReservations(t *testing.T) {
	got := Generate(baseParams())

	// 17:00 through 20:30 inclusive at 30-minute steps.
	want := []string{"17:00", "17:30", "18:00", "18:30", "19:00", "19:30", "20:00", "20:30"}
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %+v", len(got), len(want), got)
	}
	for i, s := range got {
		if s.Time != want[i] {
			t.Errorf("slot %d = %s, want %s", i, s.Time, want[i])
		}
		if !s.Available {
			t.Errorf("slot %s should be available", s.Time)
		}
	}
}

func TestGenerateClosedDay(t *testing.T) {
	p := baseParams()
	p.Schedule.Closed = true
	if got := Generate(p); len(got) != 0 {
		t.Fatalf("closed day must yield no slots, got %+v", got)
	}
}

func TestGenerateInvertedHours(t *testing.T) {
	p := baseParams()
	p.Schedule.Open = "22:00"
	p.Schedule.Close = "17:00"
	if got := Generate(p); len(got) != 0 {
		t.Fatalf("inverted hours must yield no slots, got %+v", got)
	}
}

func TestGenerateBufferEliminatesDay(t *testing.T) {
	p := baseParams()
	p.LastSeatingBufferMins = 6 * 60
	if got := Generate(p); len(got) != 0 {
		t.Fatalf("oversized buffer must yield no slots, got %+v", got)
	}
}

func TestGenerateFullHouseBlocksOverlapping(t *testing.T) {
	p := baseParams()
	// One party of 40 seated 18:00-19:30 fills the room.
	p.Footprints = []Footprint{{ReservationID: "r1", Start: 18 * 60, End: 19*60 + 30, PartySize: 40}}

	got := Generate(p)

	// 90-minute dining window: slots starting 17:30 through 19:00 overlap
	// 18:00-19:30; 17:00 (ends 18:30) overlaps too.
	blocked := []string{"17:00", "17:30", "18:00", "18:30", "19:00"}
	for _, at := range blocked {
		s := slotByTime(t, got, at)
		if s.Available {
			t.Errorf("slot %s should be blocked", at)
		}
		if s.Reason != ReasonFullyBooked {
			t.Errorf("slot %s reason = %q, want %q", at, s.Reason, ReasonFullyBooked)
		}
	}

	// 19:30 starts exactly when the party ends: closed-open overlap frees it.
	for _, at := range []string{"19:30", "20:00", "20:30"} {
		if s := slotByTime(t, got, at); !s.Available {
			t.Errorf("slot %s should be available", at)
		}
	}
}

func TestGenerateBoundaryTouchDoesNotBlock(t *testing.T) {
	p := baseParams()
	p.Footprints = []Footprint{
		// Ends exactly at 18:00; must not block the 18:00 slot.
		{ReservationID: "a", Start: 16 * 60, End: 18 * 60, PartySize: 40},
		// Starts exactly at 19:30 = the 18:00 slot's end; no block either.
		{ReservationID: "b", Start: 19*60 + 30, End: 21 * 60, PartySize: 40},
	}

	got := Generate(p)
	if s := slotByTime(t, got, "18:00"); !s.Available {
		t.Error("18:00 must be free of back-to-back boundary reservations")
	}
}

func TestGeneratePartialOverlapCounting(t *testing.T) {
	p := baseParams()
	p.Schedule.MaxCovers = 10
	p.PartySize = 4
	p.Footprints = []Footprint{
		{ReservationID: "a", Start: 17 * 60, End: 18*60 + 30, PartySize: 4},
		{ReservationID: "b", Start: 17*60 + 30, End: 19 * 60, PartySize: 4},
	}

	got := Generate(p)

	// At 17:30 both parties overlap: 8 + 4 > 10.
	if s := slotByTime(t, got, "17:30"); s.Available {
		t.Error("17:30 should exceed capacity")
	}
	// At 18:30 only the second party overlaps: 4 + 4 <= 10.
	if s := slotByTime(t, got, "18:30"); !s.Available {
		t.Error("18:30 should fit")
	}
}

func TestGenerateExcludesReservationWhenRebooking(t *testing.T) {
	p := baseParams()
	p.Schedule.MaxCovers = 4
	p.Footprints = []Footprint{{ReservationID: "mine", Start: 18 * 60, End: 19*60 + 30, PartySize: 4}}

	if s := slotByTime(t, Generate(p), "18:00"); s.Available {
		t.Fatal("own reservation should block when not excluded")
	}

	p.ExcludeReservationID = "mine"
	if s := slotByTime(t, Generate(p), "18:00"); !s.Available {
		t.Fatal("excluded reservation must not count against capacity")
	}
}

func TestGenerateUnevenIntervalHitsLastSeating(t *testing.T) {
	p := baseParams()
	// 45-minute steps across a 17:00-20:30 seating window: the loop must
	// include the final slot <= latestStart without overshooting.
	p.SlotIntervalMinutes = 45

	got := Generate(p)
	last := got[len(got)-1]
	if last.Time != "20:00" {
		t.Fatalf("last slot = %s, want 20:00", last.Time)
	}
	for _, s := range got {
		if m, _ := ParseClock(s.Time); m > 20*60+30 {
			t.Fatalf("slot %s past last seating", s.Time)
		}
	}
}

func TestGenerateCapacityInvariant(t *testing.T) {
	p := baseParams()
	p.Schedule.MaxCovers = 12
	p.Footprints = []Footprint{
		{ReservationID: "a", Start: 17 * 60, End: 18*60 + 30, PartySize: 6},
		{ReservationID: "b", Start: 18 * 60, End: 20 * 60, PartySize: 4},
		{ReservationID: "c", Start: 19 * 60, End: 21 * 60, PartySize: 5},
	}

	for _, s := range Generate(p) {
		start, _ := ParseClock(s.Time)
		end := start + DurationFor(p.Durations, p.PartySize)
		covers := 0
		for _, fp := range p.Footprints {
			if fp.Start < end && fp.End > start {
				covers += fp.PartySize
			}
		}
		if s.Available && covers+p.PartySize > p.Schedule.MaxCovers {
			t.Errorf("slot %s marked available at %d+%d covers over %d max",
				s.Time, covers, p.PartySize, p.Schedule.MaxCovers)
		}
	}
}

func TestDurationFor(t *testing.T) {
	durations := models.DiningDurations{"2": 75, "8": 120}

	tests := []struct {
		name      string
		partySize int
		want      int
	}{
		{"mapped size", 2, 75},
		{"unmapped falls back to size 8", 5, 120},
		{"large party falls back to size 8", 12, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationFor(durations, tt.partySize); got != tt.want {
				t.Errorf("DurationFor(%d) = %d, want %d", tt.partySize, got, tt.want)
			}
		})
	}

	if got := DurationFor(models.DiningDurations{}, 4); got != DefaultDiningMinutes {
		t.Errorf("empty table should default to %d, got %d", DefaultDiningMinutes, got)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"00:00", 0, true},
		{"17:30", 1050, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"9:00", 0, false},
		{"aa:bb", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseClock(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseClock(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
