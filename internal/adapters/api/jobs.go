package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

var _ ports.JobAPI = (*Client)(nil)

// jobWire tolerates both the documented schema (status, error) and the
// fields the service actually returns (current_status, job_type).
type jobWire struct {
	JobID         string          `json:"job_id"`
	ID            string          `json:"id"`
	Operation     string          `json:"operation"`
	JobType       string          `json:"job_type"`
	Status        string          `json:"status"`
	Error         string          `json:"error"`
	CurrentStatus json.RawMessage `json:"current_status"`
	Parameters    json.RawMessage `json:"parameters"`
	ZpoolID       string          `json:"zpool_id"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type currentStatusWire struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

func (w jobWire) toDomain() domain.Job {
	job := domain.Job{
		ID:         domain.JobID(firstNonEmpty(w.JobID, w.ID)),
		Kind:       firstNonEmpty(w.Operation, w.JobType),
		State:      w.Status,
		Message:    w.Error,
		ZpoolID:    domain.ZpoolID(w.ZpoolID),
		Parameters: w.Parameters,
	}

	var status currentStatusWire
	if raw := bytes.TrimSpace(w.CurrentStatus); len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &status); err == nil {
			job.State = firstNonEmpty(status.State, job.State)
			job.Message = firstNonEmpty(status.Message, job.Message)
		}
	}

	if ts, ok, err := domain.ParseTimestamp(w.CreatedAt); err == nil && ok {
		job.CreatedAt = ts
	}
	if ts, ok, err := domain.ParseTimestamp(w.UpdatedAt); err == nil && ok {
		job.UpdatedAt = ts
	}
	return job
}

type jobEventWire struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Message   string `json:"message"`
}

func (c *Client) GetJob(ctx context.Context, id domain.JobID) (domain.Job, error) {
	var resp envelope[struct {
		Job *jobWire `json:"job"`
	}]
	path := "job/" + escapeID(id)
	if err := c.do(ctx, request{method: http.MethodGet, path: path, authenticated: true}, &resp); err != nil {
		return domain.Job{}, err
	}
	if resp.Detail.Job == nil {
		return domain.Job{}, fmt.Errorf("%s: response missing job", path)
	}

	job := resp.Detail.Job.toDomain()
	if job.ID == "" {
		job.ID = id
	}
	return job, nil
}

func (c *Client) GetJobHistory(ctx context.Context, id domain.JobID) ([]domain.JobEvent, error) {
	var resp envelope[struct {
		History []jobEventWire `json:"history"`
	}]
	if err := c.do(ctx, request{method: http.MethodGet, path: "job/" + escapeID(id) + "/history", authenticated: true}, &resp); err != nil {
		return nil, err
	}

	events := make([]domain.JobEvent, 0, len(resp.Detail.History))
	for _, wire := range resp.Detail.History {
		event := domain.JobEvent{Type: wire.EventType, Message: wire.Message}
		if ts, ok, err := domain.ParseTimestamp(wire.Timestamp); err == nil && ok {
			event.Timestamp = ts
		}
		events = append(events, event)
	}
	return events, nil
}

func (c *Client) ListJobs(ctx context.Context, query domain.JobListQuery) ([]domain.Job, error) {
	if query.Limit < 0 || query.Limit > 1000 {
		return nil, errors.New("job list limit must be between 1 and 1000")
	}

	values := url.Values{}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Sort != "" {
		values.Set("sort", string(query.Sort))
	}
	if !query.Before.IsZero() {
		values.Set("before", query.Before.UTC().Format(time.RFC3339))
	}
	if !query.After.IsZero() {
		values.Set("after", query.After.UTC().Format(time.RFC3339))
	}

	var resp envelope[struct {
		Jobs []jobWire `json:"jobs"`
	}]
	if err := c.do(ctx, request{method: http.MethodGet, path: "jobs", query: values, authenticated: true}, &resp); err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(resp.Detail.Jobs))
	for _, wire := range resp.Detail.Jobs {
		jobs = append(jobs, wire.toDomain())
	}
	return jobs, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
