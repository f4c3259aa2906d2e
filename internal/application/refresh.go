package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

const (
	RefreshInterval = domain.TokenLifetime - domain.RefreshMargin
	RefreshRetry    = 60 * time.Second
	SleepCap        = 60 * time.Second
)

// RefreshSchedule keeps a credential alive across waits that outlast its
// lifetime. Failed refreshes are retried after Retry and never surface as
// errors.
type RefreshSchedule struct {
	refresh  func(ctx context.Context) error
	clock    ports.Clock
	logger   *zap.Logger
	interval time.Duration
	retry    time.Duration
	notify   func(next time.Time)
	issuedAt time.Time
	next     time.Time
}

type RefreshOption func(*RefreshSchedule)

func WithRefreshLogger(logger *zap.Logger) RefreshOption {
	return func(s *RefreshSchedule) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRefreshNotifier registers a callback invoked with the next deadline
// after every successful refresh.
func WithRefreshNotifier(notify func(next time.Time)) RefreshOption {
	return func(s *RefreshSchedule) { s.notify = notify }
}

func WithRefreshTiming(interval, retry time.Duration) RefreshOption {
	return func(s *RefreshSchedule) {
		if interval > 0 {
			s.interval = interval
		}
		if retry > 0 {
			s.retry = retry
		}
	}
}

// WithRefreshIssuedAt anchors the first deadline to when the current
// credential was issued rather than to when the schedule is created.
func WithRefreshIssuedAt(issuedAt time.Time) RefreshOption {
	return func(s *RefreshSchedule) { s.issuedAt = issuedAt }
}

func NewRefreshSchedule(refresh func(ctx context.Context) error, clock ports.Clock, opts ...RefreshOption) *RefreshSchedule {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &RefreshSchedule{
		refresh:  refresh,
		clock:    clock,
		logger:   zap.NewNop(),
		interval: RefreshInterval,
		retry:    RefreshRetry,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.next = clock.Now().Add(s.interval)
	if !s.issuedAt.IsZero() {
		s.next = s.issuedAt.Add(s.interval)
	}
	return s
}

// newCredentialSchedule builds the schedule for refresher, or returns nil
// when there is nothing to refresh. Refreshers that expose their lease anchor
// the first deadline to its issue time.
func newCredentialSchedule(refresher ports.CredentialRefresher, clock ports.Clock, opts ...RefreshOption) *RefreshSchedule {
	if refresher == nil {
		return nil
	}
	if holder, ok := refresher.(ports.LeaseHolder); ok {
		if issued := holder.Lease().IssuedAt; !issued.IsZero() {
			opts = append(opts, WithRefreshIssuedAt(issued))
		}
	}
	return NewRefreshSchedule(refresher.Refresh, clock, opts...)
}

func (s *RefreshSchedule) Next() time.Time {
	return s.next
}

func (s *RefreshSchedule) Due(now time.Time) bool {
	return !now.Before(s.next)
}

func (s *RefreshSchedule) Run(ctx context.Context) {
	if err := s.refresh(ctx); err != nil {
		s.next = s.clock.Now().Add(s.retry)
		s.logger.Warn("credential refresh failed", zap.Error(err), zap.Time("retry_at", s.next))
		return
	}

	s.next = s.clock.Now().Add(s.interval)
	s.logger.Debug("credential refreshed", zap.Time("next_refresh", s.next))
	if s.notify != nil {
		s.notify(s.next)
	}
}

// WaitWithRefresh blocks for duration, sleeping in slices no longer than
// SleepCap and running the refresh schedule whenever it falls due.
func WaitWithRefresh(ctx context.Context, clock ports.Clock, duration time.Duration, schedule *RefreshSchedule) error {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	end := clock.Now().Add(duration)
	for {
		now := clock.Now()
		remaining := end.Sub(now)
		if remaining <= 0 {
			return nil
		}

		slice := min(remaining, SleepCap)
		if schedule != nil {
			slice = min(slice, schedule.Next().Sub(now))
		}
		if slice > 0 {
			if err := clock.Sleep(ctx, slice); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if schedule != nil && schedule.Due(clock.Now()) {
			schedule.Run(ctx)
		}
	}
}
