// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package broadcast

import (
	"context"
	"time"

	"github.com/tomtom215/broadcastmap/internal/captcha"
	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
	"github.com/tomtom215/broadcastmap/internal/validation"
)

// Gateway is the part of a store the service needs.
type Gateway interface {
	store.RateLimiter
	store.MessageStore
}

// CaptchaVerifier checks captcha tokens. *captcha.Verifier implements it.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (*captcha.Verdict, error)
}

// Publisher receives every newly created message.
type Publisher interface {
	PublishBroadcast(msg *models.BroadcastMessage)
}

// Rejection reasons used as metric labels.
const (
	reasonValidation  = "validation"
	reasonCaptcha     = "captcha"
	reasonRateLimited = "rate_limited"
	reasonRateCheck   = "rate_check_failed"
	reasonInsert      = "insert_failed"
)

// Service runs the create and list pipelines. It holds no mutable state;
// concurrent calls are independent.
type Service struct {
	gateway    Gateway
	captcha    CaptchaVerifier
	publisher  Publisher
	dailyLimit int
}

// NewService creates a service. verifier and publisher may be nil.
func NewService(gateway Gateway, verifier CaptchaVerifier, publisher Publisher, dailyLimit int) *Service {
	return &Service{
		gateway:    gateway,
		captcha:    verifier,
		publisher:  publisher,
		dailyLimit: dailyLimit,
	}
}

// DailyLimit returns the configured posts per device per window.
func (s *Service) DailyLimit() int {
	return s.dailyLimit
}

// CreateRequest is a post attempt. ClientIP is the address picked from
// proxy headers, or identity.UnknownIP.
type CreateRequest struct {
	Body     models.CreateBroadcastRequest
	ClientIP string
}

// CreateResult is a stored message and the device's remaining posts.
type CreateResult struct {
	Message   *models.BroadcastMessage
	Remaining int
}

// Create validates, rate-limits and stores a broadcast.
//
// Errors: *validation.FieldError (400), *CaptchaError (400),
// *RateLimitError (429), *UpstreamError (500).
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := s.verifyCaptcha(ctx, req); err != nil {
		metrics.RecordBroadcastRejected(reasonCaptcha)
		return nil, err
	}

	msg, deviceHash, err := validateCreate(req.Body)
	if err != nil {
		metrics.RecordBroadcastRejected(reasonValidation)
		return nil, err
	}

	ctx = logging.ContextWithDevice(ctx, deviceHash)
	ipHash := identity.Hash(req.ClientIP)

	rl, err := s.gateway.CheckAndIncrement(ctx, deviceHash, ipHash, s.dailyLimit)
	if err == nil && rl == nil {
		err = ErrNoRateLimitResult
	}
	if err != nil {
		metrics.RecordBroadcastRejected(reasonRateCheck)
		logging.CtxErr(ctx, err).Msg("Rate limit check error")
		return nil, &UpstreamError{Message: MsgRateLimitCheckFailed, Err: err}
	}
	if !rl.Allowed {
		metrics.RecordBroadcastRejected(reasonRateLimited)
		logging.Ctx(ctx).Info().
			Int("count", rl.Count).
			Msg("Broadcast rate limited")
		return nil, &RateLimitError{Limit: s.dailyLimit}
	}

	msg.DeviceID = rl.DeviceID
	stored, err := s.gateway.InsertMessage(ctx, msg)
	if err != nil {
		metrics.RecordBroadcastRejected(reasonInsert)
		logging.CtxErr(ctx, err).Msg("Insert error")
		return nil, &UpstreamError{Message: MsgCreateFailed, Err: err}
	}

	metrics.RecordBroadcastCreated(string(stored.GeoPrecision))
	logging.Ctx(ctx).Debug().
		Str("message_id", stored.ID).
		Int("remaining", rl.Remaining).
		Msg("Broadcast created")

	if s.publisher != nil {
		s.publisher.PublishBroadcast(stored)
	}

	return &CreateResult{Message: stored, Remaining: rl.Remaining}, nil
}

// verifyCaptcha returns a *CaptchaError only for an explicit rejection.
// Provider outages and missing tokens are logged and let through.
func (s *Service) verifyCaptcha(ctx context.Context, req CreateRequest) error {
	if s.captcha == nil || !s.captcha.Enabled() {
		return nil
	}
	token := req.Body.CaptchaToken
	if token == "" {
		logging.Ctx(ctx).Warn().Msg("Broadcast request received without captcha token")
		return nil
	}

	remoteIP := req.ClientIP
	if remoteIP == identity.UnknownIP {
		remoteIP = ""
	}

	verdict, err := s.captcha.Verify(ctx, token, remoteIP)
	if err != nil {
		logging.CtxErr(ctx, err).Msg("Captcha verification error")
		return nil
	}
	if !verdict.Success {
		return &CaptchaError{Details: verdict.Details()}
	}
	return nil
}

func validateCreate(body models.CreateBroadcastRequest) (*models.BroadcastMessage, string, error) {
	if verr := validation.ValidateStruct(&body); verr != nil {
		return nil, "", verr
	}

	content, err := validation.ValidateContent(body.Content)
	if err != nil {
		return nil, "", err
	}
	lat, err := validation.ValidateLatitude(body.Latitude)
	if err != nil {
		return nil, "", err
	}
	lng, err := validation.ValidateLongitude(body.Longitude)
	if err != nil {
		return nil, "", err
	}
	precision := validation.ValidateGeoPrecision(body.GeoPrecision)

	deviceHash, err := validation.ValidateDeviceIdentifier(body.DeviceIDHash, body.DevicePublicKey)
	if err != nil {
		return nil, "", err
	}

	return &models.BroadcastMessage{
		Content:      content,
		Latitude:     lat,
		Longitude:    lng,
		GeoPrecision: precision,
		Status:       models.StatusPublished,
	}, deviceHash, nil
}

// ListRequest carries the raw query parameters of a map read.
type ListRequest struct {
	BBox  string
	Since string
	Limit string
}

// ListResult is the page of messages returned to the map.
type ListResult struct {
	Messages []models.BroadcastMessage
	Count    int
}

// List returns published messages inside the bounding box, newest first.
//
// Errors: *validation.FieldError (400), *UpstreamError (500).
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	box, err := validation.ValidateBoundingBox(req.BBox)
	if err != nil {
		return nil, err
	}
	since, err := validation.ValidateSince(req.Since)
	if err != nil {
		return nil, err
	}

	q := geo.Plan(box, since, validation.ParseListLimit(req.Limit))

	start := time.Now()
	rows, err := s.gateway.QueryByBounds(ctx, q)
	if err != nil {
		logging.CtxErr(ctx, err).Str("bbox", box.String()).Msg("Query error")
		return nil, &UpstreamError{Message: MsgFetchFailed, Err: err}
	}

	messages := geo.FilterWrapped(q, rows)
	if messages == nil {
		messages = []models.BroadcastMessage{}
	}
	metrics.RecordBroadcastQuery(q.Wraps, len(messages))

	logging.Ctx(ctx).Debug().
		Str("bbox", box.String()).
		Bool("wraps", q.Wraps).
		Int("fetched", len(rows)).
		Int("returned", len(messages)).
		Dur("duration", time.Since(start)).
		Msg("Broadcasts listed")

	return &ListResult{Messages: messages, Count: len(messages)}, nil
}
