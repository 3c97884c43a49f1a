/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package turntime computes rolling average seating durations per
// party-size bucket from completed reservations. The averages bound
// waitlist quotes and feed table-availability predictions.
package turntime

import (
	"math"
	"time"
)

// Bucket boundaries: small <=2, medium 3-4, large >=5.
type Bucket string

const (
	BucketSmall  Bucket = "small"
	BucketMedium Bucket = "medium"
	BucketLarge  Bucket = "large"
)

const (
	// DefaultMinutes is used for a bucket with no valid samples.
	DefaultMinutes = 15
	// FloorMinutes is the minimum any computed average may report,
	// protecting downstream ETA math from degenerate near-zero averages.
	FloorMinutes = 10
	// DefaultWindowDays is the policy default for the trailing sample
	// window. The window itself is the caller's responsibility.
	DefaultWindowDays = 7
)

// Sample is one completed reservation with both timestamps recorded.
type Sample struct {
	PartySize   int
	SeatedAt    time.Time
	CompletedAt time.Time
}

// Averages holds the per-bucket average turn time in minutes.
type Averages struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// BucketFor maps a party size to its turn-time bucket.
func BucketFor(partySize int) Bucket {
	switch {
	case partySize <= 2:
		return BucketSmall
	case partySize <= 4:
		return BucketMedium
	default:
		return BucketLarge
	}
}

// For returns the average for the bucket covering partySize.
func (a Averages) For(partySize int) int {
	switch BucketFor(partySize) {
	case BucketSmall:
		return a.Small
	case BucketMedium:
		return a.Medium
	default:
		return a.Large
	}
}

// ComputeAverages aggregates samples into per-bucket averages. Samples
// with missing, non-positive or non-finite durations are discarded; an
// empty bucket defaults to DefaultMinutes and every computed average is
// clamped to FloorMinutes. Never fails on bad data.
func ComputeAverages(samples []Sample) Averages {
	var sums, counts [3]float64

	for _, s := range samples {
		if s.SeatedAt.IsZero() || s.CompletedAt.IsZero() {
			continue
		}
		mins := s.CompletedAt.Sub(s.SeatedAt).Minutes()
		if mins <= 0 || math.IsNaN(mins) || math.IsInf(mins, 0) {
			continue
		}
		i := bucketIndex(s.PartySize)
		sums[i] += mins
		counts[i]++
	}

	avg := func(i int) int {
		if counts[i] == 0 {
			return DefaultMinutes
		}
		v := int(math.Round(sums[i] / counts[i]))
		if v < FloorMinutes {
			return FloorMinutes
		}
		return v
	}

	return Averages{Small: avg(0), Medium: avg(1), Large: avg(2)}
}

func bucketIndex(partySize int) int {
	switch BucketFor(partySize) {
	case BucketSmall:
		return 0
	case BucketMedium:
		return 1
	default:
		return 2
	}
}
