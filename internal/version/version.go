/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

// Version is the current version of Seatwise.
// Set at build time via ldflags:
//
//	-X github.com/seatwise/seatwise/internal/version.Version=X.Y.Z
var Version = "0.3.0"
