// File: internal/session/fetcher.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"desirius_backend/internal/common"
	"desirius_backend/internal/shared"
)

// errFetchTimeout marks an attempt that lost the race against its timer.
var errFetchTimeout = errors.New("profile fetch timed out")

type fetchResult struct {
	profile *shared.Profile
	err     error
}

// fetcher reads profile rows under a per-attempt timeout.
type fetcher struct {
	store  shared.ProfileStore
	opts   Options
	rec    Recorder
	logger *zap.Logger
}

// once runs a single attempt. The store call races a timer; a late result is dropped.
func (f *fetcher) once(ctx context.Context, id string) (*shared.Profile, error) {
	actx, cancel := context.WithTimeout(ctx, f.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		p, err := f.store.GetProfile(actx, id)
		done <- fetchResult{profile: p, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-actx.Done():
		if ctx.Err() != nil {
			res.err = ctx.Err()
		} else {
			res.err = errFetchTimeout
		}
	}

	switch {
	case res.err == nil && res.profile == nil:
		res.err = common.ErrNotFound
	case res.err == nil:
		f.rec.FetchAttempt("ok", time.Since(start))
		return res.profile, nil
	}

	outcome := "error"
	if errors.Is(res.err, errFetchTimeout) {
		outcome = "timeout"
	} else if errors.Is(res.err, common.ErrNotFound) {
		outcome = "not_found"
	}
	f.rec.FetchAttempt(outcome, time.Since(start))
	return nil, res.err
}

// withRetry is the explicit-action variant: up to MaxAttempts attempts, RetryDelay apart.
// A missing row is created from the session and the next attempt runs without waiting;
// on the last attempt the new row is read back once more.
func (f *fetcher) withRetry(ctx context.Context, sess *shared.Session, seed func() *shared.Profile) (*shared.Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		p, err := f.once(ctx, sess.UserID)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		f.logger.Warn("Profile fetch attempt failed",
			zap.String("userID", sess.UserID), zap.Int("attempt", attempt), zap.Error(err))

		if errors.Is(err, common.ErrNotFound) {
			upErr := f.upsert(ctx, seed())
			if upErr == nil {
				if attempt < f.opts.MaxAttempts {
					continue
				}
				// the last attempt found no row, read back the one just written
				p, err := f.once(ctx, sess.UserID)
				if err == nil {
					return p, nil
				}
				lastErr = err
				break
			}
			f.logger.Warn("Creating missing profile failed", zap.String("userID", sess.UserID), zap.Error(upErr))
		}

		if attempt < f.opts.MaxAttempts {
			timer := time.NewTimer(f.opts.RetryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("profile fetch for %s: %w", sess.UserID, ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("profile fetch for %s failed after %d attempts: %w", sess.UserID, f.opts.MaxAttempts, lastErr)
}

func (f *fetcher) upsert(ctx context.Context, p *shared.Profile) error {
	uctx, cancel := context.WithTimeout(ctx, f.opts.FetchTimeout)
	defer cancel()
	return f.store.UpsertProfile(uctx, p)
}
