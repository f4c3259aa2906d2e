package domain

import (
	"strings"
	"time"
)

type ZpoolID string

const (
	VolumeTypeGP3 = "gp3"
	VolumeTypeSC1 = "sc1"

	DefaultZpoolSizeGiB = 125
)

const (
	ModStateModifying  = "modifying"
	ModStateOptimizing = "optimizing"
	ModStateCompleted  = "completed"
)

type Zpool struct {
	ID            ZpoolID    `json:"zpool_id"`
	Name          string     `json:"name,omitempty"`
	SizeGiB       int        `json:"size_gb,omitempty"`
	VolumeType    string     `json:"volume_type,omitempty"`
	Status        string     `json:"status,omitempty"`
	Username      string     `json:"username,omitempty"`
	CreateTime    *time.Time `json:"create_time,omitempty"`
	LastScrubTime *time.Time `json:"last_scrub_time,omitempty"`
	Volumes       []Volume   `json:"volumes"`
}

type Volume struct {
	ID           string     `json:"volume_id"`
	State        string     `json:"state"`
	ModState     string     `json:"mod_state,omitempty"`
	ModProgress  int        `json:"mod_progress"`
	VolumeType   string     `json:"volume_type"`
	SizeGiB      int        `json:"size_gb,omitempty"`
	ModLastTime  *time.Time `json:"mod_last_time,omitempty"`
	CanModifyNow *bool      `json:"can_modify_now,omitempty"`
}

func (v Volume) Modifying() bool {
	switch strings.ToLower(v.ModState) {
	case ModStateModifying, ModStateOptimizing:
		return true
	default:
		return false
	}
}

// ModificationInProgress reports whether any volume is still being modified
// or optimized.
func (z Zpool) ModificationInProgress() bool {
	for _, volume := range z.Volumes {
		if volume.Modifying() {
			return true
		}
	}
	return false
}

// LastModifiedTime is the most recent volume modification across the pool,
// or nil when no volume was ever modified.
func (z Zpool) LastModifiedTime() *time.Time {
	var latest *time.Time
	for _, volume := range z.Volumes {
		if volume.ModLastTime == nil {
			continue
		}
		if latest == nil || volume.ModLastTime.After(*latest) {
			ts := volume.ModLastTime.UTC()
			latest = &ts
		}
	}
	return latest
}

type VolumeSnapshot struct {
	Zpool Zpool `json:"zpool"`
}

func VolumeModificationComplete(snapshot VolumeSnapshot) (bool, error) {
	return !snapshot.Zpool.ModificationInProgress(), nil
}

type CreateZpoolRequest struct {
	SizeGiB    int
	VolumeType string
}

// SubmitResult is what the service returns when it accepts an asynchronous
// zpool action. JobID may be empty, in which case the job has to be located
// through the job list.
type SubmitResult struct {
	JobID   JobID   `json:"job_id,omitempty"`
	ZpoolID ZpoolID `json:"zpool_id,omitempty"`
	Message string  `json:"message,omitempty"`
}

type ModifyZpoolRequest struct {
	VolumeType string
	SizeGiB    int
}
