package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

// WaitOptions tunes a single wait. Zero values fall back to defaults.
type WaitOptions struct {
	Name         string
	Timeout      time.Duration
	PollInterval time.Duration
	RefreshRate  int
	Display      Display
}

func (o WaitOptions) operation(id string, startedAt time.Time, defaultPoll time.Duration) domain.MonitoredOperation {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	poll := o.PollInterval
	if poll <= 0 {
		poll = defaultPoll
	}
	name := o.Name
	if name == "" {
		name = id
	}

	return domain.MonitoredOperation{
		ID:           id,
		Name:         name,
		StartedAt:    startedAt,
		Timeout:      timeout,
		PollInterval: poll,
	}
}

type ResumeResult struct {
	Snapshot domain.JobSnapshot
	// Attached is false when the located job was already terminal and no
	// wait was started.
	Attached bool
}

type JobService struct {
	jobs      ports.JobAPI
	refresher ports.CredentialRefresher
	render    RenderFunc[domain.JobSnapshot]
	clock     ports.Clock
	logger    *zap.Logger
}

func NewJobService(jobs ports.JobAPI, refresher ports.CredentialRefresher, render RenderFunc[domain.JobSnapshot], clock ports.Clock, logger *zap.Logger) *JobService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JobService{
		jobs:      jobs,
		refresher: refresher,
		render:    render,
		clock:     clock,
		logger:    logger,
	}
}

func (s *JobService) List(ctx context.Context, query domain.JobListQuery) ([]domain.Job, error) {
	jobs, err := s.jobs.ListJobs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobService) Get(ctx context.Context, id domain.JobID) (domain.Job, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// History returns the events of a job, oldest first. Unlike Snapshot it
// reports a failed fetch.
func (s *JobService) History(ctx context.Context, id domain.JobID) ([]domain.JobEvent, error) {
	history, err := s.jobs.GetJobHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("job history %s: %w", id, err)
	}
	return history, nil
}

// Snapshot fetches a job and its history. A history failure is logged and
// yields an empty history rather than failing the fetch.
func (s *JobService) Snapshot(ctx context.Context, id domain.JobID) (domain.JobSnapshot, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return domain.JobSnapshot{}, err
	}

	history, err := s.jobs.GetJobHistory(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.JobSnapshot{}, ctxErr
		}
		s.logger.Debug("job history unavailable", zap.String("job_id", string(id)), zap.Error(err))
		history = nil
	}

	return domain.JobSnapshot{Job: job, History: history}, nil
}

// WaitForJob polls a job until it succeeds, fails, reports an unknown state
// or the timeout elapses.
func (s *JobService) WaitForJob(ctx context.Context, id domain.JobID, opts WaitOptions) (domain.JobSnapshot, error) {
	op := opts.operation(string(id), s.clock.Now(), DefaultPollInterval)

	monitor := &Monitor[domain.JobSnapshot]{
		Operation: op,
		Poll: func(ctx context.Context) (domain.JobSnapshot, error) {
			return s.Snapshot(ctx, id)
		},
		Render:      s.renderer(),
		IsComplete:  domain.JobCompletion,
		RefreshRate: opts.RefreshRate,
		Display:     opts.Display,
		Clock:       s.clock,
		Logger:      s.logger,
	}
	monitor.Refresh = newCredentialSchedule(s.refresher, s.clock, WithRefreshLogger(s.logger))

	s.logger.Debug("waiting for job", zap.String("job_id", op.ID), zap.Duration("timeout", op.Timeout), zap.Duration("poll_interval", op.PollInterval))
	return monitor.Run(ctx)
}

// FindAndResume locates the newest job of kind, optionally scoped to a zpool,
// and attaches to it. Jobs that already finished are returned as they are.
func (s *JobService) FindAndResume(ctx context.Context, kind string, scopingKey string, opts WaitOptions) (ResumeResult, error) {
	jobs, err := s.jobs.ListJobs(ctx, domain.JobListQuery{Limit: resumeScanLimit, Sort: domain.SortDesc})
	if err != nil {
		return ResumeResult{}, fmt.Errorf("list jobs: %w", err)
	}

	job, err := FindResumable(jobs, kind, scopingKey)
	if err != nil {
		return ResumeResult{}, err
	}

	s.logger.Debug("located job", zap.String("job_id", string(job.ID)), zap.String("kind", kind), zap.String("state", job.State))

	state := domain.ClassifyState(job.State)
	switch {
	case state.Erroneous():
		return ResumeResult{}, &domain.ProtocolViolationError{OperationID: string(job.ID), Status: job.State}
	case state.Terminal():
		return ResumeResult{Snapshot: domain.JobSnapshot{Job: job}}, nil
	}

	snapshot, err := s.WaitForJob(ctx, job.ID, opts)
	if err != nil {
		return ResumeResult{Attached: true}, err
	}
	return ResumeResult{Snapshot: snapshot, Attached: true}, nil
}

func (s *JobService) renderer() RenderFunc[domain.JobSnapshot] {
	if s.render != nil {
		return s.render
	}
	return func(domain.MonitoredOperation, domain.JobSnapshot, string, time.Duration) string { return "" }
}
