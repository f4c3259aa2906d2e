package domain

import (
	"fmt"
	"strings"
	"time"
)

// CooldownDuration is the minimum gap the service enforces between two
// modifications of the same zpool.
const CooldownDuration = 6 * time.Hour

const retryLayout = "2006-01-02 15:04:05"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

type Cooldown struct {
	InCooldown  bool
	RetryTime   *time.Time
	WaitSeconds int64
	WaitString  string
	RetryString string
}

// ParseTimestamp normalises a timestamp given as nil, string, time.Time or
// *time.Time. Strings without a zone are read as UTC. The boolean is false
// when there is no timestamp at all.
func ParseTimestamp(value any) (time.Time, bool, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false, nil
		}
		return v.UTC(), true, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false, nil
		}
		return v.UTC(), true, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false, nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			return ts.UTC(), true, nil
		}
		for _, layout := range naiveLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts.UTC(), true, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("parse timestamp %q: unrecognised format", v)
	default:
		return time.Time{}, false, fmt.Errorf("parse timestamp: unsupported type %T", value)
	}
}

// CooldownInfo derives the cooldown window from the last modification time.
// It performs no I/O; callers pass a fresh now on every call.
func CooldownInfo(lastModified any, cooldown time.Duration, now time.Time) (Cooldown, error) {
	ts, ok, err := ParseTimestamp(lastModified)
	if err != nil {
		return Cooldown{}, err
	}
	if !ok {
		return Cooldown{}, nil
	}

	retry := ts.Add(cooldown)
	info := Cooldown{RetryTime: &retry}
	if !retry.After(now) {
		return info, nil
	}

	wait := int64(retry.Sub(now) / time.Second)
	info.InCooldown = true
	info.WaitSeconds = wait
	info.WaitString = fmt.Sprintf("%dh %dm", wait/3600, (wait%3600)/60)
	info.RetryString = retry.Format(retryLayout) + " UTC"
	return info, nil
}

// RetryLocalString renders the retry time in loc, suffixed with the zone
// abbreviation.
func (c Cooldown) RetryLocalString(loc *time.Location) string {
	if c.RetryTime == nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return c.RetryTime.In(loc).Format(retryLayout + " MST")
}
