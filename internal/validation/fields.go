// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/models"
)

// Code is a machine-readable validation failure code.
type Code string

const (
	CodeInvalidContent          Code = "InvalidContent"
	CodeEmptyContent            Code = "EmptyContent"
	CodeContentTooLong          Code = "ContentTooLong"
	CodeNotANumber              Code = "NotANumber"
	CodeOutOfRange              Code = "OutOfRange"
	CodeMissingDeviceIdentifier Code = "MissingDeviceIdentifier"
	CodeMissingBoundingBox      Code = "MissingBoundingBox"
	CodeMalformedBoundingBox    Code = "MalformedBoundingBox"
	CodeInvalidLatitudeRange    Code = "InvalidLatitudeRange"
	CodeInvalidSince            Code = "InvalidSince"
	CodeInvalidQuery            Code = "InvalidQuery"
	CodeInvalidLimit            Code = "InvalidLimit"
)

// FieldError is a client-fixable input error. Message is safe to return to
// the caller verbatim.
type FieldError struct {
	Field   string
	Code    Code
	Message string
}

func (e *FieldError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Is matches any *FieldError with the same code, so callers can test
// errors.Is(err, validation.ErrContentTooLong).
func (e *FieldError) Is(target error) bool {
	t, ok := target.(*FieldError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidContent          = &FieldError{Code: CodeInvalidContent}
	ErrEmptyContent            = &FieldError{Code: CodeEmptyContent}
	ErrContentTooLong          = &FieldError{Code: CodeContentTooLong}
	ErrNotANumber              = &FieldError{Code: CodeNotANumber}
	ErrOutOfRange              = &FieldError{Code: CodeOutOfRange}
	ErrMissingDeviceIdentifier = &FieldError{Code: CodeMissingDeviceIdentifier}
	ErrMissingBoundingBox      = &FieldError{Code: CodeMissingBoundingBox}
	ErrMalformedBoundingBox    = &FieldError{Code: CodeMalformedBoundingBox}
	ErrInvalidLatitudeRange    = &FieldError{Code: CodeInvalidLatitudeRange}
	ErrInvalidSince            = &FieldError{Code: CodeInvalidSince}
	ErrInvalidQuery            = &FieldError{Code: CodeInvalidQuery}
	ErrInvalidLimit            = &FieldError{Code: CodeInvalidLimit}
)

func fieldErr(field string, code Code, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Location search bounds.
const (
	MaxLocationQueryLength = 200
	DefaultSearchLimit     = 5
	MinSearchLimit         = 1
	MaxSearchLimit         = 10
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes every <...> sequence. Entities are left untouched.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// ValidateContent trims raw, strips tag-like substrings and enforces the
// non-empty and MaxContentBytes rules. Bytes that are not UTF-8 text are
// rejected here rather than by the store after quota is spent.
func ValidateContent(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fieldErr("content", CodeInvalidContent, "Content must be a string")
	}
	if !utf8.ValidString(s) {
		return "", fieldErr("content", CodeInvalidContent, "Content must be valid UTF-8 text")
	}

	sanitized := StripTags(strings.TrimSpace(s))
	if sanitized == "" {
		return "", fieldErr("content", CodeEmptyContent, "Content cannot be empty")
	}
	if len(sanitized) > models.MaxContentBytes {
		return "", fieldErr("content", CodeContentTooLong,
			"Content exceeds maximum length of %d characters", models.MaxContentBytes)
	}
	return sanitized, nil
}

// ValidateLatitude accepts a number or numeric string within [-90, 90].
func ValidateLatitude(raw any) (float64, error) {
	return validateCoordinate(raw, "latitude", "Latitude", 90)
}

// ValidateLongitude accepts a number or numeric string within [-180, 180].
func ValidateLongitude(raw any) (float64, error) {
	return validateCoordinate(raw, "longitude", "Longitude", 180)
}

func validateCoordinate(raw any, field, label string, bound float64) (float64, error) {
	num, ok := toFloat(raw)
	if !ok {
		return 0, fieldErr(field, CodeNotANumber, "%s must be a number", label)
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, fieldErr(field, CodeNotANumber, "%s must be a valid number", label)
	}
	if num < -bound || num > bound {
		return 0, fieldErr(field, CodeOutOfRange, "%s must be between %v and %v", label, -bound, bound)
	}
	return num, nil
}

// toFloat converts decoded JSON numbers and numeric strings. Strings that do
// not parse report NaN so the caller emits the "valid number" message.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	default:
		return 0, false
	}
}

// ValidateGeoPrecision maps raw to a known precision. Anything else,
// including a missing value, yields approx.
func ValidateGeoPrecision(raw any) models.GeoPrecision {
	s, ok := raw.(string)
	if !ok {
		return models.GeoPrecisionApprox
	}
	if p := models.GeoPrecision(s); p.Valid() {
		return p
	}
	return models.GeoPrecisionApprox
}

// ValidateDeviceIdentifier resolves the device hash. A non-empty idHash is
// used as is; otherwise a non-empty publicKey is hashed.
func ValidateDeviceIdentifier(idHash, publicKey string) (string, error) {
	if idHash != "" {
		return idHash, nil
	}
	if publicKey != "" {
		return identity.Hash(publicKey), nil
	}
	return "", fieldErr("device_id_hash", CodeMissingDeviceIdentifier,
		"Either device_id_hash or device_public_key must be provided")
}

// ValidateBoundingBox parses "minLat,maxLat,minLng,maxLng". Longitudes may
// fall outside [-180, 180] and minLng > maxLng is accepted as an
// antimeridian-crossing box.
func ValidateBoundingBox(s string) (geo.BoundingBox, error) {
	if strings.TrimSpace(s) == "" {
		return geo.BoundingBox{}, fieldErr("bbox", CodeMissingBoundingBox,
			"Missing required parameter: bbox")
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fieldErr("bbox", CodeMalformedBoundingBox,
			"Bounding box must be in format: minLat,maxLat,minLng,maxLng")
	}

	var vals [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) {
			return geo.BoundingBox{}, fieldErr("bbox", CodeMalformedBoundingBox,
				"All bounding box values must be valid numbers")
		}
		vals[i] = f
	}
	box := geo.BoundingBox{MinLat: vals[0], MaxLat: vals[1], MinLng: vals[2], MaxLng: vals[3]}

	for _, lat := range []float64{box.MinLat, box.MaxLat} {
		if math.IsInf(lat, 0) || lat < -90 || lat > 90 {
			return geo.BoundingBox{}, fieldErr("bbox", CodeInvalidLatitudeRange,
				"Latitude must be between -90 and 90")
		}
	}
	if math.IsInf(box.MinLng, 0) || math.IsInf(box.MaxLng, 0) {
		return geo.BoundingBox{}, fieldErr("bbox", CodeMalformedBoundingBox,
			"Longitude values must be finite numbers")
	}
	if box.MinLat >= box.MaxLat {
		return geo.BoundingBox{}, fieldErr("bbox", CodeInvalidLatitudeRange,
			"minLat must be less than maxLat")
	}
	return box, nil
}

var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ValidateSince parses an optional ISO-8601 timestamp. An empty string
// yields nil. Timestamps without a zone are read as UTC.
func ValidateSince(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fieldErr("since", CodeInvalidSince,
		"Invalid since parameter: must be a valid ISO timestamp")
}

// ParseListLimit reads the limit query parameter. Unparseable and
// non-positive values fall back to the default; large values are clamped.
func ParseListLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return geo.DefaultLimit
	}
	return geo.NormalizeLimit(n)
}

// ValidateLocationQuery trims and strips tags from a place search query.
func ValidateLocationQuery(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fieldErr("q", CodeInvalidQuery, `Query parameter "q" is required`)
	}
	if utf8.RuneCountInString(trimmed) > MaxLocationQueryLength {
		return "", fieldErr("q", CodeInvalidQuery,
			"Location string is too long (max %d characters)", MaxLocationQueryLength)
	}
	sanitized := strings.TrimSpace(StripTags(trimmed))
	if sanitized == "" {
		return "", fieldErr("q", CodeInvalidQuery, "Location cannot be empty after sanitization")
	}
	return sanitized, nil
}

// ValidateSearchLimit reads the place search limit; empty means the default.
func ValidateSearchLimit(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultSearchLimit, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < MinSearchLimit || n > MaxSearchLimit {
		return 0, fieldErr("limit", CodeInvalidLimit,
			"Limit must be between %d and %d", MinSearchLimit, MaxSearchLimit)
	}
	return n, nil
}
