// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package models

import "time"

// ErrorResponse is the body of every non-2xx response.
//
//	{"error": "Latitude must be between -90 and 90"}
//	{"error": "Failed to create message", "details": "..."}
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// CreateBroadcastRequest is the body of POST /api/broadcast. Coordinates and
// precision are left untyped because clients send numbers or numeric strings;
// they are normalized by the validation package.
type CreateBroadcastRequest struct {
	Content         any    `json:"content"`
	Latitude        any    `json:"latitude"`
	Longitude       any    `json:"longitude"`
	GeoPrecision    any    `json:"geo_precision,omitempty"`
	DeviceIDHash    string `json:"device_id_hash,omitempty" validate:"omitempty,max=512,nocontrol"`
	DevicePublicKey string `json:"device_public_key,omitempty" validate:"omitempty,max=4096"`
	CaptchaToken    string `json:"captcha_token,omitempty" validate:"omitempty,max=2048,nocontrol"`
}

// CreateBroadcastResponse is returned with 201 Created.
type CreateBroadcastResponse struct {
	ID           string       `json:"id"`
	Content      string       `json:"content"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	GeoPrecision GeoPrecision `json:"geo_precision"`
	CreatedAt    time.Time    `json:"created_at"`
	Remaining    int          `json:"remaining"`
}

// ListBroadcastsResponse is returned by GET /api/broadcast.
type ListBroadcastsResponse struct {
	Messages []BroadcastMessage `json:"messages"`
	Count    int                `json:"count"`
}

// Geolocation is the result of an IP lookup. City, Region and Country are
// null when the address could not be resolved.
type Geolocation struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      *string `json:"city"`
	Region    *string `json:"region"`
	Country   *string `json:"country"`
}

// UnknownLocation is returned for private, reserved and unknown addresses.
const UnknownLocation = "Unknown Location"

// PlaceSuggestion is a single place-name search hit.
type PlaceSuggestion struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Type       string  `json:"type"`
	Class      string  `json:"class"`
	Importance float64 `json:"importance"`
}

// LocationSearchResponse is returned by GET /api/location-search.
type LocationSearchResponse struct {
	Suggestions []PlaceSuggestion `json:"suggestions"`
	Attribution string            `json:"attribution"`
}

// OSMAttribution must accompany any data derived from OpenStreetMap.
const OSMAttribution = "© OpenStreetMap contributors"

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status           string            `json:"status"`
	Version          string            `json:"version"`
	Database         bool              `json:"database_connected"`
	Checks           map[string]string `json:"checks,omitempty"`
	Uptime           float64           `json:"uptime_seconds"`
	WebSocketClients int               `json:"websocket_clients"`
}
