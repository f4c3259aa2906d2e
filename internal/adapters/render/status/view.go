package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

// Renderer turns snapshots and listings into terminal text. Relative ages are
// computed against now at render time.
type Renderer struct {
	now    func() time.Time
	loc    *time.Location
	styles styles
}

func NewRenderer(now func() time.Time, loc *time.Location) *Renderer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{now: now, loc: loc, styles: newStyles()}
}

// JobPanel is the live view of a job wait.
func (r *Renderer) JobPanel(op domain.MonitoredOperation, snapshot domain.JobSnapshot, frame string, elapsed time.Duration) string {
	s := r.styles
	state := snapshot.State()

	status := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.spinner.Render(frame), " ",
		s.name.Render(op.Name), " ",
		s.forState(state).Render("["+snapshot.Job.State+"]"), " ",
		s.elapsed.Render("("+elapsedSeconds(elapsed)+")"),
	)

	var body string
	if len(snapshot.History) == 0 {
		body = s.empty.Render("No events yet")
	} else {
		now := r.now()
		rows := make([][]string, 0, len(snapshot.History))
		for _, event := range snapshot.History {
			rows = append(rows, []string{FormatEventAge(event.Timestamp, now), event.Message})
		}
		body = r.plainTable([]string{"Time", "Message"}, rows)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, status, "", body)
	return r.panel("Job "+op.ID, content)
}

// VolumePanel is the live view of a volume modification wait.
func (r *Renderer) VolumePanel(op domain.MonitoredOperation, snapshot domain.VolumeSnapshot, frame string, elapsed time.Duration) string {
	s := r.styles

	status := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.spinner.Render(frame), " ",
		s.name.Render(op.Name), " ",
		s.elapsed.Render("("+elapsedSeconds(elapsed)+")"),
	)

	rows := make([][]string, 0, len(snapshot.Zpool.Volumes))
	for _, volume := range snapshot.Zpool.Volumes {
		rows = append(rows, []string{
			shortVolumeID(volume.ID),
			volume.State,
			dash(volume.ModState),
			r.volumeProgress(volume),
			volume.VolumeType,
		})
	}

	var body string
	if len(rows) == 0 {
		body = s.empty.Render("No volumes reported")
	} else {
		body = r.plainTable([]string{"Volume", "State", "Mod State", "Progress", "Type"}, rows)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, status, "", body)
	return r.panel("Zpool "+string(snapshot.Zpool.ID), content)
}

func (r *Renderer) JobList(jobs []domain.Job) string {
	if len(jobs) == 0 {
		return "No jobs found."
	}

	now := r.now()
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			string(job.ID),
			job.Kind,
			dash(job.State),
			FormatCompactAge(job.CreatedAt, now),
			truncateMessage(job.Message),
		})
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		r.styles.title.Render("Your Jobs"),
		r.borderedTable([]string{"ID", "Type", "Status", "Age", "Message"}, rows),
	)
}

func (r *Renderer) JobDetail(job domain.Job) string {
	s := r.styles
	lines := []string{
		s.title.Render("Job ID: ") + string(job.ID),
		s.title.Render("Type: ") + job.Kind,
		s.title.Render("Status: ") + s.forState(domain.ClassifyState(job.State)).Render(dash(job.State)),
		s.title.Render("Created At: ") + FormatTimestamp(job.CreatedAt, r.loc),
	}
	if !job.UpdatedAt.IsZero() {
		lines = append(lines, s.title.Render("Updated At: ")+FormatTimestamp(job.UpdatedAt, r.loc))
	}
	if job.Message != "" {
		lines = append(lines, s.title.Render("Message: ")+job.Message)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (r *Renderer) JobHistory(id domain.JobID, events []domain.JobEvent) string {
	if len(events) == 0 {
		return "No history found for this job."
	}

	now := r.now()
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			FormatTimestamp(event.Timestamp, r.loc),
			FormatCompactAge(event.Timestamp, now),
			event.Type,
			event.Message,
		})
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		r.styles.title.Render("History for Job "+string(id)),
		r.borderedTable([]string{"Timestamp", "Age", "Status", "Message"}, rows),
	)
}

func (r *Renderer) ZpoolList(zpools []domain.Zpool) string {
	if len(zpools) == 0 {
		return "No zpools found."
	}

	rows := make([][]string, 0, len(zpools))
	for _, zpool := range zpools {
		size := "-"
		if zpool.SizeGiB > 0 {
			size = strconv.Itoa(zpool.SizeGiB)
		}
		rows = append(rows, []string{
			string(zpool.ID),
			dash(zpool.Name),
			size,
			dash(zpool.VolumeType),
			dash(zpool.Status),
		})
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		r.styles.title.Render("Your Zpools"),
		r.borderedTable([]string{"ID", "Name", "Size (GiB)", "Volume Type", "Status"}, rows),
	)
}

// Cooldown describes the modification window of a zpool.
func (r *Renderer) Cooldown(id domain.ZpoolID, info domain.Cooldown) string {
	s := r.styles
	if !info.InCooldown {
		line := s.success.Render(fmt.Sprintf("✓ Zpool %s can be modified now.", id))
		if info.RetryTime != nil {
			line += "\n" + s.detail.Render("Cooldown ended "+FormatTimestamp(*info.RetryTime, nil))
		}
		return line
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.warning.Render(fmt.Sprintf("Zpool %s is in modification cooldown.", id)),
		s.detail.Render("Wait time:  "+info.WaitString),
		s.detail.Render("Retry at:   "+info.RetryString),
		s.detail.Render("Local time: "+info.RetryLocalString(r.loc)),
	)
}

// RefreshNotice reports the next scheduled credential refresh.
func (r *Renderer) RefreshNotice(next time.Time) string {
	return r.styles.detail.Render(fmt.Sprintf("Token refreshed. Next refresh at %s (%s)",
		FormatTimestamp(next, nil), FormatTimestamp(next, r.loc)))
}

func (r *Renderer) Submitted(action string, result domain.SubmitResult) string {
	s := r.styles
	lines := []string{s.success.Render("✓ " + action)}
	if result.Message != "" {
		lines = append(lines, s.detail.Render(result.Message))
	}
	if result.ZpoolID != "" {
		lines = append(lines, s.detail.Render("Zpool ID: ")+s.id.Render(string(result.ZpoolID)))
	}
	if result.JobID != "" {
		lines = append(lines, s.detail.Render("Job ID:   ")+s.id.Render(string(result.JobID)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Outcome is the one-line summary printed after a job wait ends.
func (r *Renderer) Outcome(name string, job domain.Job) string {
	s := r.styles
	switch domain.ClassifyState(job.State) {
	case domain.JobStateSucceeded:
		return s.success.Render(fmt.Sprintf("✓ %s completed successfully!", name))
	case domain.JobStateFailed:
		message := job.Message
		if message == "" {
			message = "Unknown error"
		}
		return s.failure.Render(fmt.Sprintf("✗ %s failed: %s", name, message))
	default:
		return s.warning.Render(fmt.Sprintf("%s is %s", name, dash(job.State)))
	}
}

func (r *Renderer) ModificationComplete(zpool domain.Zpool) string {
	return r.styles.success.Render(fmt.Sprintf("✓ Volume modification of zpool %s completed.", zpool.ID))
}

func (r *Renderer) volumeProgress(volume domain.Volume) string {
	switch strings.ToLower(volume.ModState) {
	case domain.ModStateModifying, domain.ModStateOptimizing:
		return renderProgressBar(volume.ModProgress, 10, r.styles) + fmt.Sprintf(" %d%%", volume.ModProgress)
	case domain.ModStateCompleted:
		return "✓ Done"
	default:
		return "-"
	}
}

func (r *Renderer) panel(title, content string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		r.styles.title.Render(title),
		r.styles.panel.Render(content),
	)
}

func (r *Renderer) plainTable(headers []string, rows [][]string) string {
	header := r.styles.header
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.PaddingRight(1)
			}
			return lipgloss.NewStyle().PaddingRight(1)
		}).
		String()
}

func (r *Renderer) borderedTable(headers []string, rows [][]string) string {
	header := r.styles.header
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.barBracket).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
