package services

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/varunock/shareport/internal/config"
)

// Session keys.
const (
	keyAuthenticated = "authenticated"
	keyAuthAttempts  = "auth_attempts"
	keyLockoutUntil  = "lockout_until"
	keyLastActivity  = "last_activity"
)

// SessionState is the slice of the fiber session API the authenticator
// needs. *session.Session satisfies it; tests inject a fake.
type SessionState interface {
	Get(key string) interface{}
	Set(key string, value interface{})
	Destroy() error
	Save() error
	SetExpiry(exp time.Duration)
}

// AuthResult reports the outcome of one code submission.
type AuthResult struct {
	OK                bool
	Locked            bool
	RetryAfter        int // seconds until the lockout lifts
	AttemptsRemaining int
}

// SessionStatus is the answer to a status check.
type SessionStatus struct {
	Authenticated bool
	Expired       bool
	CodeHint      string
	ExpiresIn     int // seconds of idle time left
}

// AuthService validates connection-code submissions and tracks per-session
// attempt, lockout and activity state. The connection code is generated once
// at startup and never rotates.
type AuthService struct {
	cfg  *config.Config
	code string
}

func NewAuthService(cfg *config.Config, code string) *AuthService {
	return &AuthService{cfg: cfg, code: code}
}

// Code returns the process connection code.
func (a *AuthService) Code() string {
	return a.code
}

// CodeHint returns the first four characters of the code with the rest
// masked, shown to already-authenticated clients.
func (a *AuthService) CodeHint() string {
	n := 4
	if len(a.code) < n {
		n = len(a.code)
	}
	return a.code[:n] + "****"
}

// Authenticate compares a submitted code against the connection code.
// An active lockout fails fast without consuming an attempt; an expired
// lockout resets the attempt counter before the code is evaluated.
func (a *AuthService) Authenticate(sess SessionState, submitted string) (AuthResult, error) {
	now := time.Now()
	attempts := sessInt(sess, keyAuthAttempts)
	lockoutUntil := sessInt64(sess, keyLockoutUntil)

	if attempts >= a.cfg.MaxAuthAttempts && now.Unix() < lockoutUntil {
		return AuthResult{Locked: true, RetryAfter: int(lockoutUntil - now.Unix())}, nil
	}

	// An elapsed lockout grants a fresh set of attempts.
	if lockoutUntil > 0 && now.Unix() >= lockoutUntil {
		attempts = 0
		sess.Set(keyAuthAttempts, 0)
		sess.Set(keyLockoutUntil, int64(0))
	}

	submitted = strings.ToUpper(strings.TrimSpace(submitted))
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(a.code)) == 1 {
		sess.Set(keyAuthenticated, true)
		sess.Set(keyAuthAttempts, 0)
		sess.Set(keyLastActivity, now.Unix())
		sess.SetExpiry(a.cfg.SessionLifetime)
		if err := sess.Save(); err != nil {
			return AuthResult{}, fmt.Errorf("failed to save session: %w", err)
		}
		return AuthResult{OK: true}, nil
	}

	attempts++
	sess.Set(keyAuthAttempts, attempts)

	if attempts >= a.cfg.MaxAuthAttempts {
		retry := int(a.cfg.LockoutDuration / time.Second)
		sess.Set(keyLockoutUntil, now.Add(a.cfg.LockoutDuration).Unix())
		if err := sess.Save(); err != nil {
			return AuthResult{}, fmt.Errorf("failed to save session: %w", err)
		}
		return AuthResult{Locked: true, RetryAfter: retry}, nil
	}

	if err := sess.Save(); err != nil {
		return AuthResult{}, fmt.Errorf("failed to save session: %w", err)
	}
	return AuthResult{AttemptsRemaining: a.cfg.MaxAuthAttempts - attempts}, nil
}

// Status reports whether the session is authenticated, refreshing activity
// on success and destroying the session when idle time exceeded the
// configured lifetime.
func (a *AuthService) Status(sess SessionState) (SessionStatus, error) {
	if !sessBool(sess, keyAuthenticated) {
		return SessionStatus{}, nil
	}

	now := time.Now()
	idle := now.Unix() - sessInt64(sess, keyLastActivity)
	lifetime := int64(a.cfg.SessionLifetime / time.Second)

	if idle > lifetime {
		if err := sess.Destroy(); err != nil {
			return SessionStatus{}, fmt.Errorf("failed to clear expired session: %w", err)
		}
		return SessionStatus{Expired: true}, nil
	}

	sess.Set(keyLastActivity, now.Unix())
	if err := sess.Save(); err != nil {
		return SessionStatus{}, fmt.Errorf("failed to save session: %w", err)
	}
	return SessionStatus{
		Authenticated: true,
		CodeHint:      a.CodeHint(),
		ExpiresIn:     int(lifetime - idle),
	}, nil
}

// Touch is the middleware-facing check: it validates the session, refreshes
// activity when valid, and destroys it when idle-expired.
func (a *AuthService) Touch(sess SessionState) (authenticated, expired bool, err error) {
	st, err := a.Status(sess)
	if err != nil {
		return false, false, err
	}
	return st.Authenticated, st.Expired, nil
}

// Disconnect unconditionally clears all session state, lockout included.
func (a *AuthService) Disconnect(sess SessionState) error {
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func sessBool(sess SessionState, key string) bool {
	v, _ := sess.Get(key).(bool)
	return v
}

func sessInt(sess SessionState, key string) int {
	switch v := sess.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func sessInt64(sess SessionState, key string) int64 {
	switch v := sess.Get(key).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
