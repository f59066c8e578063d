// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fieldsKey holds the *requestFields of a context.
type fieldsKey struct{}

// requestFields are copied on every write so parent contexts never change.
type requestFields struct {
	requestID     string
	correlationID string
	device        string
}

func fieldsFrom(ctx context.Context) requestFields {
	if f, ok := ctx.Value(fieldsKey{}).(*requestFields); ok {
		return *f
	}
	return requestFields{}
}

func withFields(ctx context.Context, update func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey{}, &f)
}

// GenerateCorrelationID returns a short random id for grouping related entries.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// GenerateRequestID returns a full UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.correlationID = id })
}

func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns "" when none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.requestID = id })
}

// RequestIDFromContext returns "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// ContextWithDevice tags later entries with a shortened device hash. The full
// hash never reaches the log.
func ContextWithDevice(ctx context.Context, deviceHash string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.device = ShortHash(deviceHash) })
}

// Ctx returns the global logger with the request fields of ctx attached.
// Handlers and services log through it.
//
//	logging.Ctx(ctx).Info().Msg("Broadcast created")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

// CtxWith is Ctx for callers that want to add fields before building.
func CtxWith(ctx context.Context) zerolog.Context {
	zctx := With()
	f := fieldsFrom(ctx)
	if f.correlationID != "" {
		zctx = zctx.Str("correlation_id", f.correlationID)
	}
	if f.requestID != "" {
		zctx = zctx.Str("request_id", f.requestID)
	}
	if f.device != "" {
		zctx = zctx.Str("device", f.device)
	}
	return zctx
}

// CtxErr starts an error entry with the request fields and err.
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
