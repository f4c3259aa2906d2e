package status

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	spinner    lipgloss.Style
	name       lipgloss.Style
	state      lipgloss.Style
	elapsed    lipgloss.Style
	id         lipgloss.Style
	detail     lipgloss.Style
	success    lipgloss.Style
	warning    lipgloss.Style
	failure    lipgloss.Style
	empty      lipgloss.Style
	panel      lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241")),
		spinner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		name:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		state:      lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		elapsed:    lipgloss.NewStyle().Faint(true),
		id:         lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		success:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		failure:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:      lipgloss.NewStyle().Faint(true),
		panel:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("33")).Padding(0, 1),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}

func (s styles) forState(state domain.JobState) lipgloss.Style {
	switch state {
	case domain.JobStateSucceeded:
		return s.success
	case domain.JobStateFailed, domain.JobStateUnknown:
		return s.failure
	default:
		return s.state
	}
}
