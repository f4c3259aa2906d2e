package domain

import "time"

// MonitoredOperation describes one wait from the moment it begins. It is
// never mutated; a new wait builds a new value.
type MonitoredOperation struct {
	ID           string
	Name         string
	StartedAt    time.Time
	Timeout      time.Duration
	PollInterval time.Duration
}

func (o MonitoredOperation) Deadline() time.Time {
	return o.StartedAt.Add(o.Timeout)
}
