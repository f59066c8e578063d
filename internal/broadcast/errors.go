// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package broadcast

import (
	"errors"
	"fmt"
)

// Public messages for upstream failures. They are returned to clients as the
// "error" field, with the underlying error as "details".
const (
	MsgRateLimitCheckFailed = "Failed to check rate limit"
	MsgCreateFailed         = "Failed to create message"
	MsgFetchFailed          = "Failed to fetch messages"
)

// RateLimitError means the device used up its posts for the window.
type RateLimitError struct {
	Limit int
}

func (e *RateLimitError) Error() string {
	return "Rate limit exceeded"
}

// Message is the human-readable explanation returned with 429.
func (e *RateLimitError) Message() string {
	return fmt.Sprintf("Maximum %d posts per 24 hours allowed", e.Limit)
}

// CaptchaError is an explicit rejection from the captcha provider.
type CaptchaError struct {
	Details []string
}

func (e *CaptchaError) Error() string {
	return "Captcha verification failed"
}

// UpstreamError is a datastore failure. Message is safe to show; Err is the
// cause.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Details returns the cause's message for the response body.
func (e *UpstreamError) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// ErrNoRateLimitResult is reported when the limiter returns nothing.
var ErrNoRateLimitResult = errors.New("rate limiter returned no result")
