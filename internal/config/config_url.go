// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// urlRule describes what a configured URL may look like.
type urlRule struct {
	env     string
	schemes []string
	// basePath rejects any path beyond "/", for base URLs that the client
	// appends endpoints to.
	basePath bool
	// noQuery rejects query strings on endpoint URLs.
	noQuery bool
}

var (
	databaseURLRule = urlRule{env: "DATABASE_URL", schemes: []string{"postgres", "postgresql"}}
	redisURLRule    = urlRule{env: "REDIS_URL", schemes: []string{"redis", "rediss"}}
	geoIPURLRule    = urlRule{env: "GEOIP_URL", schemes: []string{"http", "https"}, noQuery: true}
	nominatimRule   = urlRule{env: "NOMINATIM_URL", schemes: []string{"http", "https"}, basePath: true, noQuery: true}
	captchaURLRule  = urlRule{env: "CAPTCHA_VERIFY_URL", schemes: []string{"http", "https"}, noQuery: true}
)

// check returns an error naming the environment variable. Credentials in
// raw never appear in the message.
func (r urlRule) check(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL", r.env)
	}
	if !slices.Contains(r.schemes, u.Scheme) {
		return fmt.Errorf("%s scheme must be %s, got %q", r.env, strings.Join(r.schemes, " or "), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", r.env)
	}
	if r.basePath && u.Path != "" && u.Path != "/" {
		return fmt.Errorf("%s must be a base URL without a path, remove %s", r.env, u.Path)
	}
	if r.noQuery && u.RawQuery != "" {
		return fmt.Errorf("%s must not contain query parameters", r.env)
	}
	return nil
}
