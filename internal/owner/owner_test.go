// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package owner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/security"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuth(t *testing.T) (*Authenticator, *fakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	clk := &fakeClock{t: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
	return NewFile(dir, WithClock(clk.Now)), clk, dir
}

func TestInit_RejectsShortPINWithoutWriting(t *testing.T) {
	a, _, dir := newAuth(t)
	_, err := a.Init(security.FromString("ab"))
	if !model.IsKind(err, model.KindPinLength) {
		t.Fatalf("expected pin_length, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, CredentialFile)); !os.IsNotExist(statErr) {
		t.Fatalf("credential document must not be created, stat err=%v", statErr)
	}
}

func TestInit_PersistsCredential(t *testing.T) {
	a, clk, dir := newAuth(t)
	c, err := a.Init(security.FromString("1234"))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.CreatedUTC != clk.t.Unix() {
		t.Fatalf("created_utc = %d, want %d", c.CreatedUTC, clk.t.Unix())
	}
	data, err := os.ReadFile(filepath.Join(dir, CredentialFile))
	if err != nil {
		t.Fatalf("read credential: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode credential: %v", err)
	}
	for _, k := range []string{"salt_b64", "pin_hash_b64", "created_utc"} {
		if _, ok := doc[k]; !ok {
			t.Fatalf("credential missing %q: %s", k, data)
		}
	}
	if strings.Contains(string(data), "1234") {
		t.Fatalf("credential leaks the PIN: %s", data)
	}
	ok, err := a.Initialized()
	if err != nil || !ok {
		t.Fatalf("Initialized = %v, %v", ok, err)
	}
}

func TestVerify_Errors(t *testing.T) {
	a, _, dir := newAuth(t)
	if _, err := a.Verify(security.FromString("1234"), time.Minute); !model.IsKind(err, model.KindNotInitialized) {
		t.Fatalf("expected not_initialized, got %v", err)
	}
	if _, err := a.Init(security.FromString("1234")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := a.Verify(security.FromString("1234"), 0); !model.IsKind(err, model.KindInvalidTTL) {
		t.Fatalf("expected invalid_ttl, got %v", err)
	}
	if _, err := a.Verify(security.FromString("9999"), time.Minute); !model.IsKind(err, model.KindInvalidPin) {
		t.Fatalf("expected invalid_pin, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, TokenFile)); !os.IsNotExist(err) {
		t.Fatalf("wrong PIN must not issue a token, stat err=%v", err)
	}
	if err := a.RequireToken("anything"); !model.IsKind(err, model.KindNoActiveSession) {
		t.Fatalf("expected no_active_session, got %v", err)
	}
}

func TestVerifyThenRequireToken(t *testing.T) {
	a, clk, _ := newAuth(t)
	if _, err := a.Init(security.FromString("246810")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s, err := a.Verify(security.FromString("246810"), 5*time.Minute)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(s.Token) != 32 {
		t.Fatalf("expected 32-char url-safe token, got %q", s.Token)
	}
	if s.ExpiresIn != 300 || !s.ExpiresAt.Equal(clk.t.Add(5*time.Minute)) {
		t.Fatalf("unexpected expiry %+v", s)
	}

	for i := 0; i < 3; i++ {
		if err := a.RequireToken(s.Token); err != nil {
			t.Fatalf("token should be reusable, attempt %d: %v", i, err)
		}
	}
	if err := a.RequireToken(s.Token + "x"); !model.IsKind(err, model.KindInvalidToken) {
		t.Fatalf("expected invalid_token, got %v", err)
	}
	if err := a.RequireToken(s.Token); err != nil {
		t.Fatalf("a mismatch must not revoke the token: %v", err)
	}

	clk.Advance(5*time.Minute - time.Second)
	if err := a.RequireToken(s.Token); err != nil {
		t.Fatalf("token valid one second before expiry: %v", err)
	}
	clk.Advance(time.Second)
	if err := a.RequireToken(s.Token); !model.IsKind(err, model.KindTokenExpired) {
		t.Fatalf("expected token_expired at expiry, got %v", err)
	}
}

func TestRequireToken_ExpiredIsReaped(t *testing.T) {
	a, clk, dir := newAuth(t)
	if _, err := a.Init(security.FromString("1234")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s, err := a.Verify(security.FromString("1234"), time.Second)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	clk.Advance(2 * time.Second)

	if err := a.RequireToken(s.Token); !model.IsKind(err, model.KindTokenExpired) {
		t.Fatalf("expected token_expired, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, TokenFile)); !os.IsNotExist(err) {
		t.Fatalf("expired token document must be removed, stat err=%v", err)
	}
	if err := a.RequireToken(s.Token); !model.IsKind(err, model.KindNoActiveSession) {
		t.Fatalf("expected no_active_session after reaping, got %v", err)
	}
}

func TestVerify_ReplacesPreviousToken(t *testing.T) {
	a, _, _ := newAuth(t)
	if _, err := a.Init(security.FromString("1234")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	first, err := a.Verify(security.FromString("1234"), time.Minute)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	second, err := a.Verify(security.FromString("1234"), time.Minute)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("expected a fresh token")
	}
	if err := a.RequireToken(first.Token); !model.IsKind(err, model.KindInvalidToken) {
		t.Fatalf("old token must be superseded, got %v", err)
	}
	if err := a.RequireToken(second.Token); err != nil {
		t.Fatalf("new token rejected: %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	a, _, _ := newAuth(t)
	if had, err := a.Invalidate(); err != nil || had {
		t.Fatalf("Invalidate without token = %v, %v", had, err)
	}
	if _, err := a.Init(security.FromString("1234")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s, err := a.Verify(security.FromString("1234"), time.Minute)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if had, err := a.Invalidate(); err != nil || !had {
		t.Fatalf("Invalidate = %v, %v", had, err)
	}
	if err := a.RequireToken(s.Token); !model.IsKind(err, model.KindNoActiveSession) {
		t.Fatalf("expected no_active_session after logout, got %v", err)
	}
}

func TestInit_PINLengthCountsCharacters(t *testing.T) {
	a := NewFile(t.TempDir())
	if _, err := a.Init(security.FromString("日本")); !model.IsKind(err, model.KindPinLength) {
		t.Fatalf("two characters must be rejected, got %v", err)
	}
	if _, err := a.Init(security.FromString(strings.Repeat("ä", 18))); err != nil {
		t.Fatalf("eighteen characters must be accepted, got %v", err)
	}
	if _, err := a.Init(security.FromString(strings.Repeat("日", 33))); !model.IsKind(err, model.KindPinLength) {
		t.Fatalf("thirty-three characters must be rejected, got %v", err)
	}
}

func TestInit_PINLengthProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)
	a := NewFile(t.TempDir())

	properties.Property("PIN accepted iff 4 <= len <= 32", prop.ForAll(
		func(n int, glyph string) bool {
			_, err := a.Init(security.FromString(strings.Repeat(glyph, n)))
			if n >= MinPINLength && n <= MaxPINLength {
				return err == nil
			}
			return model.IsKind(err, model.KindPinLength)
		},
		gen.IntRange(0, 40),
		gen.OneConstOf("7", "ä", "日", "🔑"),
	))

	properties.TestingRun(t)
}
