package application

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"go.uber.org/zap"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

const (
	DefaultTimeout      = 30 * time.Minute
	DefaultPollInterval = 10 * time.Second
	DefaultRefreshRate  = 4
	DefaultSpinnerEvery = 2
)

// Display receives successive renderings of a monitored operation. Each
// Draw replaces the previous view.
type Display interface {
	Draw(view string) error
	Close() error
}

type RenderFunc[T any] func(op domain.MonitoredOperation, snapshot T, frame string, elapsed time.Duration) string

// Monitor drives a single-threaded poll/render loop for one remote
// operation. Render runs RefreshRate times per second; Poll runs at most once
// per PollInterval. IsComplete is evaluated only on freshly polled snapshots.
type Monitor[T any] struct {
	Operation    domain.MonitoredOperation
	Poll         func(ctx context.Context) (T, error)
	Render       RenderFunc[T]
	IsComplete   func(snapshot T) (bool, error)
	RefreshRate  int
	SpinnerEvery int
	Display      Display
	Clock        ports.Clock
	Refresh      *RefreshSchedule
	Logger       *zap.Logger
}

func (m *Monitor[T]) Run(ctx context.Context) (T, error) {
	var zero T

	clock := m.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	display := m.Display
	if display == nil {
		display = DiscardDisplay{}
	}
	defer func() { _ = display.Close() }()

	rate := m.RefreshRate
	if rate <= 0 {
		rate = DefaultRefreshRate
	}
	every := m.SpinnerEvery
	if every <= 0 {
		every = DefaultSpinnerEvery
	}
	tick := time.Second / time.Duration(rate)
	frames := spinner.MiniDot.Frames
	op := m.Operation

	var (
		cached   T
		haveSnap bool
		lastPoll time.Time
		polls    int
	)

	start := clock.Now()
	for n := 0; ; n++ {
		now := clock.Now()
		elapsed := now.Sub(start)
		if elapsed > op.Timeout {
			logger.Debug("monitor timed out", zap.String("operation", op.ID), zap.Int("polls", polls))
			return zero, &domain.TimeoutError{OperationID: op.ID, Timeout: op.Timeout}
		}

		if lastPoll.IsZero() || now.Sub(lastPoll) >= op.PollInterval {
			lastPoll = now
			snapshot, err := m.Poll(ctx)
			if err != nil {
				return zero, fmt.Errorf("poll %s: %w", op.ID, err)
			}
			polls++
			cached, haveSnap = snapshot, true

			done, err := m.IsComplete(snapshot)
			if err != nil || done {
				_ = display.Draw(m.Render(op, snapshot, frames[(n/every)%len(frames)], elapsed))
			}
			if err != nil {
				return zero, err
			}
			if done {
				logger.Debug("monitor completed", zap.String("operation", op.ID), zap.Int("polls", polls), zap.Duration("elapsed", elapsed))
				return snapshot, nil
			}
		}

		if m.Refresh != nil && m.Refresh.Due(now) {
			m.Refresh.Run(ctx)
		}

		if haveSnap {
			if err := display.Draw(m.Render(op, cached, frames[(n/every)%len(frames)], elapsed)); err != nil {
				logger.Debug("draw progress", zap.Error(err))
			}
		}

		// A slow poll may overrun several ticks; resume at the next boundary
		// still ahead instead of replaying the missed ones.
		n = max(n, int(clock.Now().Sub(start)/tick))
		next := start.Add(time.Duration(n+1) * tick)
		if err := clock.Sleep(ctx, next.Sub(clock.Now())); err != nil {
			return zero, err
		}
	}
}

// DiscardDisplay swallows every frame, for piped output and JSON mode.
type DiscardDisplay struct{}

func (DiscardDisplay) Draw(string) error { return nil }
func (DiscardDisplay) Close() error      { return nil }
