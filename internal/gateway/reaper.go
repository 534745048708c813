package gateway

import (
	"context"
	"time"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// Reaper periodically closes sessions nobody has talked to for a while.
type Reaper struct {
	sessions *SessionManager
	timeout  time.Duration
	interval time.Duration
	logger   *pkgLogger.Logger
}

// NewReaper checks every timeout/4, but at least once a minute.
func NewReaper(sessions *SessionManager, timeout time.Duration, logger *pkgLogger.Logger) *Reaper {
	interval := timeout / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	return &Reaper{
		sessions: sessions,
		timeout:  timeout,
		interval: interval,
		logger:   logger.WithComponent("reaper"),
	}
}

// Start runs the ticker loop. Blocks until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	r.logger.DebugWithIntention(pkgLogger.IntentionStatus, "Reaper started", "timeout", r.timeout, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sessions.ExpireIdle(ctx, r.timeout); n > 0 {
				r.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Closed idle sessions", "count", n)
			}
		}
	}
}
