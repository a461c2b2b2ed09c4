package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRenewalThreshold is how stale lastRenewed may get before a touch.
const DefaultRenewalThreshold = 15 * time.Minute

// RenewalOutcome reports what Apply did to a session.
type RenewalOutcome int

const (
	// RenewalSkipped means the session was renewed recently; nothing changed.
	RenewalSkipped RenewalOutcome = iota
	// RenewalStamped means lastRenewed was absent and has been set to now.
	RenewalStamped
	// RenewalTouched means the session was touched and lastRenewed reset.
	RenewalTouched
)

func (o RenewalOutcome) String() string {
	switch o {
	case RenewalStamped:
		return "stamped"
	case RenewalTouched:
		return "touched"
	default:
		return "skipped"
	}
}

// RenewalPolicy slides an authenticated session's expiry at most once per
// Threshold, so active users stay logged in without a store write on every
// request.
type RenewalPolicy struct {
	Threshold time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewRenewalPolicy(threshold time.Duration, logger *slog.Logger) *RenewalPolicy {
	if threshold <= 0 {
		threshold = DefaultRenewalThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalPolicy{
		Threshold: threshold,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Apply stamps, touches or skips c. A failed touch is logged and the stamp
// is still reset; renewal never fails the request.
func (p *RenewalPolicy) Apply(ctx context.Context, c Carrier) RenewalOutcome {
	if c == nil {
		return RenewalSkipped
	}
	now := p.Now()

	last, ok := c.LastRenewed()
	if !ok {
		c.SetLastRenewed(now)
		return RenewalStamped
	}

	if now.Sub(last) <= p.Threshold {
		return RenewalSkipped
	}

	if err := c.Touch(ctx); err != nil {
		p.Logger.WarnContext(ctx, "session touch failed",
			slog.String("user_id", c.UserID()),
			slog.String("error", err.Error()),
		)
	}
	c.SetLastRenewed(now)
	return RenewalTouched
}
