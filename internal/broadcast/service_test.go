// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/broadcastmap/internal/captcha"
	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/identity"
	"github.com/tomtom215/broadcastmap/internal/models"
	"github.com/tomtom215/broadcastmap/internal/store"
	"github.com/tomtom215/broadcastmap/internal/validation"
)

// fakeGateway is an in-memory Gateway. Counters never expire.
type fakeGateway struct {
	mu        sync.Mutex
	counts    map[string]int
	ipHashes  map[string]string
	messages  []models.BroadcastMessage
	lastQuery geo.Query

	rateErr   error
	insertErr error
	queryErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{counts: map[string]int{}, ipHashes: map[string]string{}}
}

func (f *fakeGateway) CheckAndIncrement(_ context.Context, deviceIDHash, ipHash string, limit int) (*models.RateLimitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rateErr != nil {
		return nil, f.rateErr
	}
	f.counts[deviceIDHash]++
	f.ipHashes[deviceIDHash] = ipHash
	return store.Decide("dev-"+deviceIDHash, f.counts[deviceIDHash], limit), nil
}

func (f *fakeGateway) InsertMessage(_ context.Context, msg *models.BroadcastMessage) (*models.BroadcastMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	stored := *msg
	stored.ID = "msg-" + string(rune('a'+len(f.messages)))
	stored.CreatedAt = time.Date(2026, 5, 1, 12, 0, len(f.messages), 0, time.UTC)
	f.messages = append([]models.BroadcastMessage{stored}, f.messages...)
	return &stored, nil
}

func (f *fakeGateway) QueryByBounds(_ context.Context, q geo.Query) ([]models.BroadcastMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []models.BroadcastMessage
	for _, m := range f.messages {
		if m.Latitude < q.Box.MinLat || m.Latitude > q.Box.MaxLat {
			continue
		}
		if !q.Wraps && (m.Longitude < q.Box.MinLng || m.Longitude > q.Box.MaxLng) {
			continue
		}
		out = append(out, m)
		if len(out) == q.FetchLimit {
			break
		}
	}
	return out, nil
}

type fakeVerifier struct {
	enabled bool
	verdict *captcha.Verdict
	err     error

	calls    int
	remoteIP string
}

func (v *fakeVerifier) Enabled() bool { return v.enabled }

func (v *fakeVerifier) Verify(_ context.Context, _, remoteIP string) (*captcha.Verdict, error) {
	v.calls++
	v.remoteIP = remoteIP
	return v.verdict, v.err
}

type recordingPublisher struct {
	published []*models.BroadcastMessage
}

func (p *recordingPublisher) PublishBroadcast(msg *models.BroadcastMessage) {
	p.published = append(p.published, msg)
}

func validBody() models.CreateBroadcastRequest {
	return models.CreateBroadcastRequest{
		Content:      "Hello",
		Latitude:     37.7749,
		Longitude:    -122.4194,
		DeviceIDHash: "abc",
	}
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	pub := &recordingPublisher{}
	svc := NewService(gw, nil, pub, 20)

	res, err := svc.Create(context.Background(), CreateRequest{Body: validBody(), ClientIP: "203.0.113.5"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Remaining != 19 {
		t.Errorf("Remaining = %d, want 19", res.Remaining)
	}
	if res.Message.Content != "Hello" || res.Message.GeoPrecision != models.GeoPrecisionApprox {
		t.Errorf("Message = %+v", res.Message)
	}
	if res.Message.DeviceID != "dev-abc" {
		t.Errorf("DeviceID = %q, want device row id", res.Message.DeviceID)
	}
	if gw.ipHashes["abc"] != identity.Hash("203.0.113.5") {
		t.Error("ip hash should be the hash of the client IP")
	}
	if len(pub.published) != 1 || pub.published[0].ID != res.Message.ID {
		t.Errorf("published = %v", pub.published)
	}

	list, err := svc.List(context.Background(), ListRequest{BBox: "37,38,-123,-122"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Count != 1 || list.Messages[0].ID != res.Message.ID {
		t.Errorf("List() = %+v", list)
	}
}

func TestCreateUsesPublicKeyHash(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	svc := NewService(gw, nil, nil, 5)

	body := validBody()
	body.DeviceIDHash = ""
	body.DevicePublicKey = "-----BEGIN PUBLIC KEY-----"
	if _, err := svc.Create(context.Background(), CreateRequest{Body: body, ClientIP: identity.UnknownIP}); err != nil {
		t.Fatal(err)
	}
	if _, ok := gw.counts[identity.Hash(body.DevicePublicKey)]; !ok {
		t.Error("device should be keyed by the public key hash")
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*models.CreateBroadcastRequest)
		want   error
	}{
		{"empty content", func(b *models.CreateBroadcastRequest) { b.Content = "  <b></b> " }, validation.ErrEmptyContent},
		{"long content", func(b *models.CreateBroadcastRequest) { b.Content = strings.Repeat("x", 241) }, validation.ErrContentTooLong},
		{"latitude out of range", func(b *models.CreateBroadcastRequest) { b.Latitude = 91.0 }, validation.ErrOutOfRange},
		{"longitude not a number", func(b *models.CreateBroadcastRequest) { b.Longitude = "east" }, validation.ErrNotANumber},
		{"no device", func(b *models.CreateBroadcastRequest) { b.DeviceIDHash = "" }, validation.ErrMissingDeviceIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := newFakeGateway()
			svc := NewService(gw, nil, nil, 20)

			body := validBody()
			tt.mutate(&body)
			_, err := svc.Create(context.Background(), CreateRequest{Body: body, ClientIP: "1.2.3.4"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(gw.counts) != 0 {
				t.Error("invalid input must not touch the rate limiter")
			}
		})
	}
}

func TestCreateRateLimited(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	svc := NewService(gw, nil, nil, 20)
	ctx := context.Background()

	for i := 1; i <= 20; i++ {
		res, err := svc.Create(ctx, CreateRequest{Body: validBody(), ClientIP: "1.2.3.4"})
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		if res.Remaining != 20-i {
			t.Fatalf("post %d remaining = %d", i, res.Remaining)
		}
	}

	_, err := svc.Create(ctx, CreateRequest{Body: validBody(), ClientIP: "1.2.3.4"})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("21st post error = %v, want RateLimitError", err)
	}
	if rle.Message() != "Maximum 20 posts per 24 hours allowed" {
		t.Errorf("Message() = %q", rle.Message())
	}
	if len(gw.messages) != 20 {
		t.Errorf("stored messages = %d, want 20", len(gw.messages))
	}
}

func TestCreateUpstreamFailures(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection reset")

	gw := newFakeGateway()
	gw.rateErr = dbErr
	pub := &recordingPublisher{}
	_, err := NewService(gw, nil, pub, 20).Create(context.Background(), CreateRequest{Body: validBody()})
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Message != MsgRateLimitCheckFailed || !errors.Is(err, dbErr) {
		t.Fatalf("rate check error = %v", err)
	}
	if ue.Details() != "connection reset" {
		t.Errorf("Details() = %q", ue.Details())
	}

	gw = newFakeGateway()
	gw.insertErr = dbErr
	_, err = NewService(gw, nil, pub, 20).Create(context.Background(), CreateRequest{Body: validBody()})
	if !errors.As(err, &ue) || ue.Message != MsgCreateFailed {
		t.Fatalf("insert error = %v", err)
	}
	if gw.counts["abc"] != 1 {
		t.Error("counter increment is not rolled back when the insert fails")
	}
	if len(pub.published) != 0 {
		t.Error("failed inserts must not be published")
	}
}

func TestCreateCaptcha(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verifier  *fakeVerifier
		token     string
		clientIP  string
		wantErr   bool
		wantCalls int
		wantIP    string
	}{
		{"disabled", &fakeVerifier{enabled: false}, "tok", "1.2.3.4", false, 0, ""},
		{"missing token", &fakeVerifier{enabled: true}, "", "1.2.3.4", false, 0, ""},
		{"accepted", &fakeVerifier{enabled: true, verdict: &captcha.Verdict{Success: true}}, "tok", "1.2.3.4", false, 1, "1.2.3.4"},
		{"unknown ip omitted", &fakeVerifier{enabled: true, verdict: &captcha.Verdict{Success: true}}, "tok", identity.UnknownIP, false, 1, ""},
		{"provider down", &fakeVerifier{enabled: true, err: errors.New("timeout")}, "tok", "1.2.3.4", false, 1, "1.2.3.4"},
		{"rejected", &fakeVerifier{enabled: true, verdict: &captcha.Verdict{ErrorCodes: []string{"timeout-or-duplicate"}}}, "tok", "1.2.3.4", true, 1, "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := newFakeGateway()
			svc := NewService(gw, tt.verifier, nil, 20)

			body := validBody()
			body.CaptchaToken = tt.token
			_, err := svc.Create(context.Background(), CreateRequest{Body: body, ClientIP: tt.clientIP})

			var ce *CaptchaError
			if tt.wantErr {
				if !errors.As(err, &ce) {
					t.Fatalf("error = %v, want CaptchaError", err)
				}
				if len(ce.Details) != 1 || ce.Details[0] != "timeout-or-duplicate" {
					t.Errorf("Details = %v", ce.Details)
				}
				if len(gw.counts) != 0 {
					t.Error("rejected captcha must not consume a post")
				}
			} else if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if tt.verifier.calls != tt.wantCalls {
				t.Errorf("Verify calls = %d, want %d", tt.verifier.calls, tt.wantCalls)
			}
			if tt.verifier.remoteIP != tt.wantIP {
				t.Errorf("remoteIP = %q, want %q", tt.verifier.remoteIP, tt.wantIP)
			}
		})
	}
}

func TestListWrappingBounds(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	svc := NewService(gw, nil, nil, 100)
	ctx := context.Background()

	for _, lng := range []float64{175, 0, -175} {
		body := validBody()
		body.Latitude = 0.5
		body.Longitude = lng
		if _, err := svc.Create(ctx, CreateRequest{Body: body}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.List(ctx, ListRequest{BBox: "-10,10,170,-170", Limit: "10"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("Count = %d, want 2", list.Count)
	}
	for _, m := range list.Messages {
		if m.Longitude == 0 {
			t.Error("longitude 0 is outside the wrapping box")
		}
	}
	if !gw.lastQuery.Wraps || gw.lastQuery.FetchLimit <= gw.lastQuery.Limit {
		t.Errorf("query = %+v, want over-fetching wrap query", gw.lastQuery)
	}
}

func TestListErrors(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeGateway(), nil, nil, 20)
	ctx := context.Background()

	if _, err := svc.List(ctx, ListRequest{}); !errors.Is(err, validation.ErrMissingBoundingBox) {
		t.Errorf("missing bbox error = %v", err)
	}
	if _, err := svc.List(ctx, ListRequest{BBox: "1,2,3"}); !errors.Is(err, validation.ErrMalformedBoundingBox) {
		t.Errorf("malformed bbox error = %v", err)
	}
	if _, err := svc.List(ctx, ListRequest{BBox: "0,1,0,1", Since: "yesterday"}); !errors.Is(err, validation.ErrInvalidSince) {
		t.Errorf("bad since error = %v", err)
	}

	gw := newFakeGateway()
	gw.queryErr = errors.New("disk full")
	_, err := NewService(gw, nil, nil, 20).List(ctx, ListRequest{BBox: "0,1,0,1"})
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Message != MsgFetchFailed {
		t.Errorf("query error = %v", err)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	t.Parallel()

	list, err := NewService(newFakeGateway(), nil, nil, 20).List(context.Background(), ListRequest{BBox: "0,1,0,1", Limit: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if list.Messages == nil || list.Count != 0 {
		t.Errorf("List() = %+v, want empty non-nil slice", list)
	}
}
