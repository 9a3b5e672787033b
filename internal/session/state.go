// File: internal/session/state.go
package session

import (
	"time"

	"desirius_backend/internal/config"
	"desirius_backend/internal/shared"
)

// State is the reconciled view of one browser's authentication.
// Once IsLoading is false, IsAuthenticated == (Profile != nil).
type State struct {
	Profile         *shared.Profile
	IsAuthenticated bool
	IsLoading       bool
	// Error is the last user-facing failure message; empty means none.
	Error string
	// Fallback reports that Profile was synthesized from session metadata.
	Fallback bool
}

func (s State) clone() State {
	if s.Profile != nil {
		p := *s.Profile
		if p.LastLogin != nil {
			t := *p.LastLogin
			p.LastLogin = &t
		}
		s.Profile = &p
	}
	return s
}

// Options are the controller's timing knobs.
type Options struct {
	FetchTimeout   time.Duration
	RetryDelay     time.Duration
	MaxAttempts    int
	SignOutTimeout time.Duration
}

// OptionsFromConfig reads the SESSION_* settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FetchTimeout:   cfg.SessionFetchTimeout,
		RetryDelay:     cfg.SessionFetchRetry,
		MaxAttempts:    cfg.SessionFetchAttempts,
		SignOutTimeout: cfg.SessionSignOutTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 5 * time.Second
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.SignOutTimeout <= 0 {
		o.SignOutTimeout = 10 * time.Second
	}
	return o
}

// Recorder receives reconciliation telemetry.
type Recorder interface {
	ReconcileFinished(path, outcome string)
	FetchAttempt(outcome string, elapsed time.Duration)
	SessionsActive(n int)
}

type nopRecorder struct{}

func (nopRecorder) ReconcileFinished(string, string)   {}
func (nopRecorder) FetchAttempt(string, time.Duration) {}
func (nopRecorder) SessionsActive(int)                 {}

// Reconciliation paths and outcomes reported to the Recorder.
const (
	PathStartup     = "startup"
	PathCheck       = "check"
	PathSignedIn    = "signed_in"
	PathExplicit    = "explicit"
	PathUserUpdated = "user_updated"
	PathSignedOut   = "signed_out"
	PathLogout      = "logout"

	OutcomeVerified        = "verified"
	OutcomeFallback        = "fallback"
	OutcomeFailed          = "failed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeCleared         = "cleared"
	OutcomeDiscarded       = "discarded"
	OutcomeIgnored         = "ignored"
)
