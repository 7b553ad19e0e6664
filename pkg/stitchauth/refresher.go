package stitchauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/jwtx"
)

// refreshTarget is the part of Auth the refresher needs.
type refreshTarget interface {
	activeAccessToken() (token string, loggedIn bool)
	RefreshAccessToken(ctx context.Context) error
}

// AccessTokenRefresher refreshes the active user's access token shortly
// before it expires, so requests rarely hit the InvalidSession path.
//
// Ticks never overlap: the next check is armed only after the previous one,
// including its refresh call, has returned.
type AccessTokenRefresher struct {
	target   refreshTarget
	logger   *slog.Logger
	window   time.Duration
	interval time.Duration
	now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func newAccessTokenRefresher(target refreshTarget, logger *slog.Logger, window, interval time.Duration, now func() time.Time) *AccessTokenRefresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &AccessTokenRefresher{
		target:   target,
		logger:   logger,
		window:   window,
		interval: interval,
		now:      now,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// ShouldRefresh reports whether the active access token expires within the
// window. It is false when nobody is logged in or the token cannot be read.
func (r *AccessTokenRefresher) ShouldRefresh() bool {
	token, ok := r.target.activeAccessToken()
	if !ok {
		return false
	}

	claims, err := jwtx.Decode(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}

	return !r.now().Before(claims.Expires().Add(-r.window))
}

// Start launches the loop. Calling it more than once has no effect.
func (r *AccessTokenRefresher) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Stop cancels the pending check and any refresh in flight, then waits for
// the loop to exit. Safe to call without Start and more than once.
func (r *AccessTokenRefresher) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		close(r.stopCh)
	})

	started := true
	r.startOnce.Do(func() {
		started = false
		close(r.doneCh)
	})
	if started {
		<-r.doneCh
	}
}

func (r *AccessTokenRefresher) run() {
	defer close(r.doneCh)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-timer.C:
		}

		r.tick()
		timer.Reset(r.interval)
	}
}

func (r *AccessTokenRefresher) tick() {
	if !r.ShouldRefresh() {
		return
	}

	if err := r.target.RefreshAccessToken(r.ctx); err != nil {
		if r.ctx.Err() != nil {
			return
		}
		r.logger.Warn("background token refresh failed", "error", err)
		return
	}
	r.logger.Debug("access token refreshed in background")
}
