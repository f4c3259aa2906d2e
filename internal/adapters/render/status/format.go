package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	maxMessageWidth = 50
	volumeIDWidth   = 12
)

// FormatEventAge renders how long ago ts happened as "12s ago", "3m ago" or
// "2h ago".
func FormatEventAge(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}

	seconds := int64(now.Sub(ts) / time.Second)
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	default:
		return fmt.Sprintf("%dh ago", seconds/3600)
	}
}

// FormatCompactAge renders the age of ts as "-1d3h", "-2h15m", "-5m" or
// "-3s", keeping only the two most significant units.
func FormatCompactAge(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}

	total := int64(now.Sub(ts) / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("-%dd%dh", days, hours)
	case days > 0:
		return fmt.Sprintf("-%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("-%dh%dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("-%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("-%dm", minutes)
	default:
		return fmt.Sprintf("-%ds", seconds)
	}
}

// FormatTimestamp renders ts in loc with its zone label, or in UTC when loc
// is nil.
func FormatTimestamp(ts time.Time, loc *time.Location) string {
	if ts.IsZero() {
		return "-"
	}
	if loc == nil {
		return ts.UTC().Format("2006-01-02 15:04:05") + " UTC"
	}
	return ts.In(loc).Format("2006-01-02 15:04:05 MST")
}

func truncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= maxMessageWidth {
		return message
	}
	return string(runes[:maxMessageWidth-3]) + "..."
}

func shortVolumeID(id string) string {
	if len(id) <= volumeIDWidth {
		return id
	}
	return id[len(id)-volumeIDWidth:]
}

func elapsedSeconds(elapsed time.Duration) string {
	return fmt.Sprintf("%ds", int64(elapsed/time.Second))
}

func renderProgressBar(percent int, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * float64(clampPercent(percent)) / 100))
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
