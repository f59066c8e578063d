// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package validation rejects malformed input before any side effect.
//
// # Field validators
//
// ValidateContent, ValidateLatitude, ValidateLongitude, ValidateGeoPrecision,
// ValidateDeviceIdentifier, ValidateBoundingBox, ValidateSince and the place
// search helpers normalize raw request values. Every failure is a
// *FieldError carrying a Code and a message that names the violated rule:
//
//	if _, err := validation.ValidateContent(body.Content); errors.Is(err, validation.ErrContentTooLong) {
//	    ...
//	}
//
// ValidateGeoPrecision never fails; unknown values become approx.
//
// # Struct validation
//
// ValidateStruct runs go-playground/validator v10 tag checks through a
// thread-safe singleton. Field names in messages follow the json tag, so a
// failure on DeviceIDHash reads "device_id_hash must be at most 512 characters".
package validation
