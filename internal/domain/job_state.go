package domain

import "strings"

// JobState is the classified form of a job's remote status string.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateUnknown   JobState = "unknown"
)

// ClassifyState maps a remote status string onto a JobState. Each call is
// independent; the service is the only source of truth.
func ClassifyState(status string) JobState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending", "queued":
		return JobStatePending
	case "running", "in progress":
		return JobStateRunning
	case "succeeded":
		return JobStateSucceeded
	case "failed":
		return JobStateFailed
	default:
		return JobStateUnknown
	}
}

// Terminal reports whether no further polling can change the outcome.
// Unknown is terminal as well as erroneous.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateUnknown:
		return true
	default:
		return false
	}
}

func (s JobState) Erroneous() bool {
	return s == JobStateUnknown
}

func (s JobState) String() string {
	return string(s)
}
