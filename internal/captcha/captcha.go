// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package captcha verifies Cloudflare Turnstile tokens.
package captcha

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/breaker"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
)

const serviceName = "turnstile"

// maxResponseBytes bounds the siteverify body we are willing to decode.
const maxResponseBytes = 64 << 10

// Verdict is the provider's answer for one token.
type Verdict struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	Action     string   `json:"action,omitempty"`
}

// Details returns the error codes reported to clients for a failed verdict.
func (v *Verdict) Details() []string {
	if len(v.ErrorCodes) == 0 {
		return []string{"Unknown error"}
	}
	return v.ErrorCodes
}

type verifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

// Verifier calls the siteverify endpoint. The zero secret disables it.
type Verifier struct {
	client    *http.Client
	secret    string
	verifyURL string
	breaker   *breaker.Breaker[*Verdict]
}

// New creates a verifier from configuration.
func New(cfg config.CaptchaConfig) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithClient creates a verifier using client for outbound requests.
func NewWithClient(cfg config.CaptchaConfig, client *http.Client) *Verifier {
	return &Verifier{
		client:    client,
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		breaker:   breaker.New[*Verdict](breaker.Settings{Name: serviceName}),
	}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify checks token. A nil error with Success false is an explicit
// rejection; a non-nil error means the provider could not be consulted.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (*Verdict, error) {
	start := time.Now()
	verdict, err := v.breaker.Execute(func() (*Verdict, error) {
		return v.post(ctx, token, remoteIP)
	})
	metrics.RecordUpstream(serviceName, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if !verdict.Success {
		logging.Ctx(ctx).Info().Strs("error_codes", verdict.ErrorCodes).Msg("Captcha rejected")
	}
	return verdict, nil
}

func (v *Verifier) post(ctx context.Context, token, remoteIP string) (*Verdict, error) {
	body, err := json.Marshal(verifyRequest{Secret: v.secret, Response: token, RemoteIP: remoteIP})
	if err != nil {
		return nil, fmt.Errorf("encode siteverify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query siteverify: %w", err)
	}
	defer resp.Body.Close()

	var verdict Verdict
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to decode siteverify response (status %d): %w", resp.StatusCode, err)
	}
	return &verdict, nil
}
