package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testStart = time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)

// fakeClock advances only when slept on.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

type recordingDisplay struct {
	views  []string
	closed bool
}

func (d *recordingDisplay) Draw(view string) error {
	d.views = append(d.views, view)
	return nil
}

func (d *recordingDisplay) Close() error {
	d.closed = true
	return nil
}

// scriptedJobAPI returns the configured states for a job in order, repeating
// the last one once the script runs out.
type scriptedJobAPI struct {
	states     map[domain.JobID][]string
	messages   map[domain.JobID]string
	history    []domain.JobEvent
	historyErr error
	jobs       []domain.Job
	listErr    error
	getCalls   map[domain.JobID]int
}

func newScriptedJobAPI() *scriptedJobAPI {
	return &scriptedJobAPI{
		states:   map[domain.JobID][]string{},
		messages: map[domain.JobID]string{},
		getCalls: map[domain.JobID]int{},
	}
}

func (a *scriptedJobAPI) GetJob(_ context.Context, id domain.JobID) (domain.Job, error) {
	a.getCalls[id]++
	script := a.states[id]
	if len(script) == 0 {
		return domain.Job{}, domain.ErrNotFound
	}
	idx := min(a.getCalls[id]-1, len(script)-1)
	return domain.Job{ID: id, State: script[idx], Message: a.messages[id]}, nil
}

func (a *scriptedJobAPI) GetJobHistory(context.Context, domain.JobID) ([]domain.JobEvent, error) {
	if a.historyErr != nil {
		return nil, a.historyErr
	}
	return a.history, nil
}

func (a *scriptedJobAPI) ListJobs(_ context.Context, query domain.JobListQuery) ([]domain.Job, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	if query.Limit > 0 && len(a.jobs) > query.Limit {
		return a.jobs[:query.Limit], nil
	}
	return a.jobs, nil
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func mockAnyContext() any {
	return mock.Anything
}

// leasedRefresher also reports the lease it currently holds.
type leasedRefresher struct {
	mockRefresher
	lease domain.CredentialLease
}

func (r *leasedRefresher) Lease() domain.CredentialLease {
	return r.lease
}
