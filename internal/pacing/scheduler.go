package pacing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minertopia/rollout/internal/logger"
)

type (
	// Mode selects how long the rollout pauses between transactions.
	Mode string

	// Intervals holds the pause used in each mode.
	Intervals struct {
		Fork time.Duration
		Live time.Duration
	}

	// Scheduler pauses the rollout between steps so the next nonce, explorers and
	// indexers catch up and the RPC provider is not rate limited.
	Scheduler struct {
		mode     Mode
		interval time.Duration
		logger   *slog.Logger
	}
)

const (
	ModeFork Mode = "FORK"
	ModeLive Mode = "LIVE"
)

// DefaultIntervals are one second on a local fork and three minutes on a public network.
var DefaultIntervals = Intervals{
	Fork: time.Second,
	Live: 3 * time.Minute,
}

// ParseMode accepts fork or live in any case. An empty string means live.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeFork:
		return ModeFork, nil
	case ModeLive, "":
		return ModeLive, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected FORK or LIVE)", s)
	}
}

// Validate rejects intervals a caller could not tell apart.
func (i Intervals) Validate() error {
	if i.Fork <= 0 || i.Live <= 0 {
		return fmt.Errorf("pacing intervals must be positive (fork=%s, live=%s)", i.Fork, i.Live)
	}
	if i.Fork >= i.Live {
		return fmt.Errorf("fork interval %s must be shorter than live interval %s", i.Fork, i.Live)
	}
	return nil
}

// For returns the interval of mode.
func (i Intervals) For(mode Mode) time.Duration {
	if mode == ModeFork {
		return i.Fork
	}
	return i.Live
}

// NewScheduler picks the interval for mode.
func NewScheduler(mode Mode, intervals Intervals) *Scheduler {
	return &Scheduler{
		mode:     mode,
		interval: intervals.For(mode),
		logger:   logger.Named("pacing_scheduler"),
	}
}

// Mode returns the configured execution mode.
func (s *Scheduler) Mode() Mode {
	return s.mode
}

// Interval returns the pause between steps.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Wait blocks for the interval or until ctx is done, whichever comes first.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.logger.With("mode", s.mode).With("wait", s.interval.String()).Info("waiting before next step")

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
