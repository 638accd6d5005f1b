// Package ratelimit bounds how often a student may attempt to check in to a
// session, using a sliding window over recorded attempt timestamps.
package ratelimit

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultWindow is the trailing period attempts are counted over.
	DefaultWindow = 60 * time.Second

	// DefaultMaxAttempts is the cap within one window.
	DefaultMaxAttempts = 5
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed          bool  `json:"allowed"`
	Remaining        int   `json:"remaining"`
	ResetAt          int64 `json:"resetAtEpochMs"`
	AttemptsInWindow int   `json:"attemptsInWindow"`
}

// Limiter checks and records attempts against an injected window store. The
// store owns all mutable state; the limiter itself is stateless and safe for
// concurrent use.
type Limiter struct {
	repo    WindowRepo
	window  time.Duration
	max     int
	nowFunc func() time.Time
}

type LimiterOption func(*Limiter)

// WithLimits overrides the window length and attempt cap.
func WithLimits(window time.Duration, max int) LimiterOption {
	return func(l *Limiter) {
		l.window = window
		l.max = max
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

func NewLimiter(repo WindowRepo, options ...LimiterOption) (*Limiter, error) {
	if repo == nil {
		return nil, errors.New("[NewLimiter] window repo is required")
	}

	l := &Limiter{
		repo:    repo,
		window:  DefaultWindow,
		max:     DefaultMaxAttempts,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

// Check records an attempt for the (student, session) pair unless the window
// is already full, in which case the attempt is rejected without recording.
func (l *Limiter) Check(studentID, sessionID string) (Decision, error) {
	nowMs := l.nowFunc().UnixMilli()
	windowMs := l.window.Milliseconds()

	taken, err := l.repo.Take(Key{StudentID: studentID, SessionID: sessionID}, nowMs, windowMs, l.max)
	if err != nil {
		return Decision{}, errors.Wrap(err, "[Limiter.Check] repo.Take")
	}

	resetAt := nowMs + windowMs
	if taken.OldestMs > 0 {
		resetAt = taken.OldestMs + windowMs
	}

	remaining := l.max - taken.Attempts
	if !taken.Allowed {
		remaining = 0
	}

	return Decision{
		Allowed:          taken.Allowed,
		Remaining:        remaining,
		ResetAt:          resetAt,
		AttemptsInWindow: taken.Attempts,
	}, nil
}
