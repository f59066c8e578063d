// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package models

import "time"

// MaxContentBytes is the maximum UTF-8 encoded size of a message body.
const MaxContentBytes = 240

// GeoPrecision describes how precisely the poster chose to share a location.
type GeoPrecision string

const (
	GeoPrecisionExact  GeoPrecision = "exact"
	GeoPrecisionApprox GeoPrecision = "approx"
	GeoPrecisionRegion GeoPrecision = "region"
)

// Valid reports whether p is one of the known precision values.
func (p GeoPrecision) Valid() bool {
	switch p {
	case GeoPrecisionExact, GeoPrecisionApprox, GeoPrecisionRegion:
		return true
	}
	return false
}

// MessageStatus is the moderation state of a message. Only published
// messages are visible to readers; pending exists in the schema but
// nothing in the write path produces it.
type MessageStatus string

const (
	StatusPublished MessageStatus = "published"
	StatusPending   MessageStatus = "pending"
)

// BroadcastMessage is a public geotagged text post. Rows are immutable once
// inserted.
type BroadcastMessage struct {
	ID           string        `json:"id" db:"id"`
	Content      string        `json:"content" db:"content"`
	Latitude     float64       `json:"latitude" db:"latitude"`
	Longitude    float64       `json:"longitude" db:"longitude"`
	GeoPrecision GeoPrecision  `json:"geo_precision" db:"geo_precision"`
	Status       MessageStatus `json:"-" db:"status"`
	DeviceID     string        `json:"-" db:"device_id"`
	ProfileID    *string       `json:"-" db:"profile_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// AnonymousDevice is the rate-limit unit of account. DeviceIDHash is always a
// one-way hash and never the client's raw identifier.
type AnonymousDevice struct {
	ID               string     `json:"id" db:"id"`
	DeviceIDHash     string     `json:"device_id_hash" db:"device_id_hash"`
	DevicePublicKey  *string    `json:"device_public_key,omitempty" db:"device_public_key"`
	IPHash           string     `json:"ip_hash" db:"ip_hash"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	LastPostAt       *time.Time `json:"last_post_at,omitempty" db:"last_post_at"`
	PostCount24h     int        `json:"post_count_24h" db:"post_count_24h"`
	PostCountResetAt time.Time  `json:"post_count_reset_at" db:"post_count_reset_at"`
}

// RateLimitResult is the outcome of an atomic check-and-increment.
type RateLimitResult struct {
	DeviceID  string `db:"device_id"`
	Allowed   bool   `db:"allowed"`
	Remaining int    `db:"remaining"`
	// Count is the post counter after the increment.
	Count int `db:"post_count_24h"`
}
