// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/broadcast"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/validation"
)

// maxBodyBytes bounds request bodies. A post is a few hundred bytes plus an
// optional public key and captcha token.
const maxBodyBytes = 64 * 1024

// maxLoggedValue truncates request-derived strings written to the log.
const maxLoggedValue = 256

const (
	msgInternalError  = "Internal server error"
	msgInvalidBody    = "Invalid JSON body"
	msgBodyTooLarge   = "Request body too large"
	msgUnavailable    = "Service unavailable"
	msgTooManyRequest = "Too many requests"
)

// errBadBody marks a body that could not be decoded.
type errBadBody struct {
	msg string
	err error
}

func (e *errBadBody) Error() string { return e.msg }
func (e *errBadBody) Unwrap() error { return e.err }

// respondJSON writes v with the given status. API responses are not cached.
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		http.Error(w, `{"error":"`+msgInternalError+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondErrorMessage writes {"error": message}.
func respondErrorMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// respondError maps a domain error to its status code and body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErr    *validation.FieldError
		structErr   *validation.RequestValidationError
		badBody     *errBadBody
		captchaErr  *broadcast.CaptchaError
		rateErr     *broadcast.RateLimitError
		upstreamErr *broadcast.UpstreamError
	)

	switch {
	case errors.As(err, &fieldErr):
		respondErrorMessage(w, http.StatusBadRequest, fieldErr.Error())

	case errors.As(err, &structErr):
		respondErrorMessage(w, http.StatusBadRequest, structErr.Error())

	case errors.As(err, &badBody):
		status := http.StatusBadRequest
		if badBody.msg == msgBodyTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		respondErrorMessage(w, status, badBody.msg)

	case errors.As(err, &captchaErr):
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   captchaErr.Error(),
			Details: captchaErr.Details,
		})

	case errors.As(err, &rateErr):
		remaining := 0
		respondJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Error:     rateErr.Error(),
			Message:   rateErr.Message(),
			Remaining: &remaining,
		})

	case errors.As(err, &upstreamErr):
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   upstreamErr.Message,
			Details: upstreamErr.Details(),
		})

	default:
		logging.CtxErr(r.Context(), err).
			Str("path", logging.SanitizeValue(r.URL.Path, maxLoggedValue)).
			Msg("Unhandled API error")
		respondErrorMessage(w, http.StatusInternalServerError, msgInternalError)
	}
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &errBadBody{msg: msgBodyTooLarge, err: err}
		}
		return &errBadBody{msg: msgInvalidBody, err: err}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &errBadBody{msg: msgInvalidBody, err: err}
	}
	return nil
}
