// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package owner implements the local owner credential: a PIN hashed with
// PBKDF2, exchanged for a short-lived bearer token that gates privileged
// actions.
//
// State machine: Uninitialized -> Initialized (Init) -> ActiveToken (Verify).
// An expired token is removed lazily by the next RequireToken call.
package owner // import "github.com/hostwarden/hostwarden/internal/owner"

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/hostwarden/hostwarden/internal/docstore"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/security"
)

// Document file names inside the state directory.
const (
	CredentialFile = "owner.json"
	TokenFile      = "owner_token.json"
)

// KDF and token parameters.
const (
	MinPINLength     = 4
	MaxPINLength     = 32
	SaltBytes        = 16
	KeyBytes         = 32
	PBKDF2Iterations = 120000
	TokenBytes       = 24
)

// DefaultTTL is the token lifetime used when the caller does not pick one.
const DefaultTTL = 5 * time.Minute

// Session is the result of a successful Verify.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithRand replaces the randomness source used for salts and tokens.
func WithRand(r io.Reader) Option {
	return func(a *Authenticator) { a.rand = r }
}

// Authenticator manages the credential and session token documents.
type Authenticator struct {
	cred  docstore.Repository[model.OwnerCredential]
	token docstore.Repository[model.SessionToken]
	now   func() time.Time
	rand  io.Reader
}

// New builds an authenticator over the given repositories.
func New(cred docstore.Repository[model.OwnerCredential], token docstore.Repository[model.SessionToken], opts ...Option) *Authenticator {
	a := &Authenticator{cred: cred, token: token, now: time.Now, rand: rand.Reader}
	for _, o := range opts {
		o(a)
	}
	return a
}

// NewFile stores the credential and token in stateDir with owner-only
// permissions.
func NewFile(stateDir string, opts ...Option) *Authenticator {
	return New(
		docstore.NewFile[model.OwnerCredential](filepath.Join(stateDir, CredentialFile), 0o600),
		docstore.NewFile[model.SessionToken](filepath.Join(stateDir, TokenFile), 0o600),
		opts...,
	)
}

func hashPIN(pin security.Secret, salt []byte) []byte {
	var key []byte
	_ = pin.Use(func(b []byte) error {
		key = pbkdf2.Key(b, salt, PBKDF2Iterations, KeyBytes, sha256.New)
		return nil
	})
	return key
}

// Init sets or replaces the owner PIN. Replacing the PIN does not revoke an
// already issued token.
func (a *Authenticator) Init(pin security.Secret) (model.OwnerCredential, error) {
	if n := pin.RuneCount(); n < MinPINLength || n > MaxPINLength {
		return model.OwnerCredential{}, model.Errorf(model.KindPinLength,
			"PIN must be %d-%d characters", MinPINLength, MaxPINLength)
	}
	salt := make([]byte, SaltBytes)
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return model.OwnerCredential{}, model.StorageError(err, "could not generate salt")
	}
	c := model.OwnerCredential{
		SaltB64:    base64.StdEncoding.EncodeToString(salt),
		PinHashB64: base64.StdEncoding.EncodeToString(hashPIN(pin, salt)),
		CreatedUTC: a.now().Unix(),
	}
	if err := a.cred.Save(c); err != nil {
		return model.OwnerCredential{}, model.StorageError(err, "could not save owner credential")
	}
	return c, nil
}

// Initialized reports whether an owner credential exists.
func (a *Authenticator) Initialized() (bool, error) {
	_, exists, err := a.cred.Load()
	if err != nil {
		return false, model.StorageError(err, "could not load owner credential")
	}
	return exists, nil
}

// Verify checks pin against the stored credential and, on match, issues a
// token valid for ttl, replacing any previous token.
func (a *Authenticator) Verify(pin security.Secret, ttl time.Duration) (Session, error) {
	if ttl < time.Second {
		return Session{}, model.Errorf(model.KindInvalidTTL, "token ttl must be at least 1s, got %s", ttl)
	}
	c, exists, err := a.cred.Load()
	if err != nil {
		return Session{}, model.StorageError(err, "could not load owner credential")
	}
	if !exists {
		return Session{}, model.Errorf(model.KindNotInitialized, "owner not initialized; run `hostwarden owner init`")
	}
	salt, err := base64.StdEncoding.DecodeString(c.SaltB64)
	if err != nil {
		return Session{}, model.StorageError(err, "owner credential has a malformed salt")
	}
	want, err := base64.StdEncoding.DecodeString(c.PinHashB64)
	if err != nil {
		return Session{}, model.StorageError(err, "owner credential has a malformed hash")
	}
	got := security.Secret(hashPIN(pin, salt))
	defer got.Zero()
	if !got.Equal(want) {
		return Session{}, model.Errorf(model.KindInvalidPin, "invalid PIN")
	}

	raw := make([]byte, TokenBytes)
	if _, err := io.ReadFull(a.rand, raw); err != nil {
		return Session{}, model.StorageError(err, "could not generate token")
	}
	secs := int64(ttl / time.Second)
	now := a.now()
	tok := model.SessionToken{
		Token: base64.RawURLEncoding.EncodeToString(raw),
		Exp:   now.Unix() + secs,
	}
	if err := a.token.Save(tok); err != nil {
		return Session{}, model.StorageError(err, "could not save session token")
	}
	return Session{Token: tok.Token, ExpiresAt: time.Unix(tok.Exp, 0).UTC(), ExpiresIn: secs}, nil
}

// RequireToken succeeds when candidate matches the active token. An expired
// token is deleted and reported as expired; a mismatch leaves state intact.
// Tokens stay valid for reuse until they expire.
func (a *Authenticator) RequireToken(candidate string) error {
	expired := false
	err := a.token.Update(func(cur model.SessionToken, exists bool) (model.SessionToken, docstore.Op, error) {
		if !exists {
			return cur, docstore.Keep, model.Errorf(model.KindNoActiveSession,
				"no active session; run `hostwarden owner verify`")
		}
		if a.now().Unix() >= cur.Exp {
			expired = true
			return cur, docstore.Remove, nil
		}
		if !security.FromString(candidate).Equal([]byte(cur.Token)) {
			return cur, docstore.Keep, model.Errorf(model.KindInvalidToken, "invalid token")
		}
		return cur, docstore.Keep, nil
	})
	if err != nil {
		var me *model.Error
		if errors.As(err, &me) {
			return err
		}
		return model.StorageError(err, "could not check session token")
	}
	if expired {
		return model.Errorf(model.KindTokenExpired, "token expired; run `hostwarden owner verify`")
	}
	return nil
}

// Invalidate removes the active token, if any. It reports whether a token
// was present.
func (a *Authenticator) Invalidate() (bool, error) {
	had := false
	err := a.token.Update(func(cur model.SessionToken, exists bool) (model.SessionToken, docstore.Op, error) {
		had = exists
		if !exists {
			return cur, docstore.Keep, nil
		}
		return cur, docstore.Remove, nil
	})
	if err != nil {
		return false, model.StorageError(err, "could not remove session token")
	}
	return had, nil
}
