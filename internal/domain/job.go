package domain

import (
	"encoding/json"
	"time"
)

type JobID string

const (
	JobKindZpoolCreate = "zpool_create"
	JobKindZpoolScrub  = "zpool_scrub"
	JobKindZpoolModify = "zpool_modify"
	JobKindZpoolDelete = "zpool_delete"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Job is a server-side operation as reported by the jobs endpoints.
// State holds the raw status string; use ClassifyState to interpret it.
type Job struct {
	ID         JobID           `json:"job_id"`
	Kind       string          `json:"operation"`
	State      string          `json:"state"`
	Message    string          `json:"message,omitempty"`
	ZpoolID    ZpoolID         `json:"zpool_id,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type JobEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"event_type"`
	Message   string    `json:"message"`
}

// JobSnapshot is the result of one poll of a job: its current status and
// event history, oldest first. Each poll replaces the previous snapshot.
type JobSnapshot struct {
	Job     Job        `json:"job"`
	History []JobEvent `json:"history"`
}

func (s JobSnapshot) State() JobState {
	return ClassifyState(s.Job.State)
}

type JobListQuery struct {
	Limit  int
	Sort   SortOrder
	Before time.Time
	After  time.Time
}

// JobCompletion decides whether a freshly polled job snapshot ends the wait.
// A failed job yields a RemoteFailureError and an unrecognised status a
// ProtocolViolationError.
func JobCompletion(snapshot JobSnapshot) (bool, error) {
	switch snapshot.State() {
	case JobStateSucceeded:
		return true, nil
	case JobStateFailed:
		return false, &RemoteFailureError{OperationID: string(snapshot.Job.ID), Message: snapshot.Job.Message}
	case JobStateUnknown:
		return false, &ProtocolViolationError{OperationID: string(snapshot.Job.ID), Status: snapshot.Job.State}
	default:
		return false, nil
	}
}
